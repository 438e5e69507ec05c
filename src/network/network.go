package network

import (
	"context"
	"fmt"
	"market-gateway/src/logger"
	"market-gateway/src/models"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// StatusError is returned for any non-2xx upstream response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status %d from %s", e.StatusCode, e.URL)
}

// IsAuthFailure reports whether the upstream rejected the session or credential.
func (e *StatusError) IsAuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// -----------------------------------------------------------------------------

// RestyNetworkManager issues single-attempt GET requests. Retrying is left to the
// next inbound request, so a transient failure costs one miss.
type RestyNetworkManager struct {
	Config *models.MConfig
	Client *resty.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRestyNetworkManager(cfg *models.MConfig, log *logger.Logger) *RestyNetworkManager {
	client := resty.New().
		SetTimeout(time.Duration(cfg.Network.RequestTimeout) * time.Second).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	if cfg.Network.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.Network.UserAgent)
	}
	if cfg.Network.Proxy != "" {
		client.SetProxy(cfg.Network.Proxy)
	}

	return &RestyNetworkManager{
		Config: cfg,
		Client: client,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request bound to ctx. The body is returned only for 2xx responses.
func (nm *RestyNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	resp, err := nm.Client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(urlStr)
	if err != nil {
		nm.Logger.Debug("Request to %s failed: %v", urlStr, err)
		return nil, err
	}

	if !resp.IsSuccess() {
		nm.Logger.Info("Bad status %d from %s", resp.StatusCode(), urlStr)
		return nil, &StatusError{StatusCode: resp.StatusCode(), URL: urlStr}
	}

	return resp.Body(), nil
}
