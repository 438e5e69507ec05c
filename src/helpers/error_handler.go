package helpers

import (
	"errors"
	"fmt"
	"market-gateway/src/logger"
)

// -----------------------------------------------------------------------------
// Error Kinds
// -----------------------------------------------------------------------------

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindBadRequest
	KindUnauthorized
	KindNotFound
	KindStoreUnavailable
	KindUpstreamUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "BadRequest"
	case KindUnauthorized:
		return "Unauthorized"
	case KindNotFound:
		return "NotFound"
	case KindStoreUnavailable:
		return "StoreUnavailable"
	case KindUpstreamUnavailable:
		return "UpstreamUnavailable"
	default:
		return "Internal"
	}
}

// -----------------------------------------------------------------------------
// Sentinels for the "no data" outcomes of a provider. These are not failures.
// -----------------------------------------------------------------------------

var (
	ErrNoData        = errors.New("no data available")
	ErrUnsupported   = errors.New("operation not supported by provider")
	ErrInvalidTicker = errors.New("invalid option ticker")
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type GatewayError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

func NewBadRequest(message string) error {
	return &GatewayError{Kind: KindBadRequest, Message: message}
}

func NewUnauthorized(message string, cause error) error {
	return &GatewayError{Kind: KindUnauthorized, Message: message, Cause: cause}
}

func NewNotFound(message string, cause error) error {
	return &GatewayError{Kind: KindNotFound, Message: message, Cause: cause}
}

func NewStoreUnavailable(operation string, cause error) error {
	return &GatewayError{Kind: KindStoreUnavailable, Message: operation + " failed", Cause: cause}
}

func NewUpstreamUnavailable(operation string, cause error) error {
	return &GatewayError{Kind: KindUpstreamUnavailable, Message: operation + " failed", Cause: cause}
}

// -----------------------------------------------------------------------------

// KindOf classifies any error. Provider sentinels count as NotFound.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	if errors.Is(err, ErrNoData) || errors.Is(err, ErrUnsupported) || errors.Is(err, ErrInvalidTicker) {
		return KindNotFound
	}
	return KindInternal
}

// IsNoData reports whether err is one of the recoverable "nothing found" outcomes.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData) || errors.Is(err, ErrUnsupported) || errors.Is(err, ErrInvalidTicker)
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger *logger.Logger
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger("ErrorHandler")
	}
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

// Handle records the cause of a failure for diagnosis. No-data outcomes are debug noise.
func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}
	if IsNoData(err) {
		e.Logger.Debug("%s: %v", context, err)
		return
	}
	switch KindOf(err) {
	case KindStoreUnavailable, KindUpstreamUnavailable, KindInternal:
		e.Logger.Error("Error in %s: %v", context, err)
	default:
		e.Logger.Warning("%s: %v", context, err)
	}
}
