package models

import "time"

type OptionType string

const (
	OptionTypeCall OptionType = "call"
	OptionTypePut  OptionType = "put"
)

// MOptionContract represents a single option instrument. Never cached.
type MOptionContract struct {
	ExpirationDate string     `json:"expirationDate"` // YYYY-MM-DD
	LastPrice      string     `json:"lastPrice"`
	StrikePrice    string     `json:"strikePrice"`
	Type           OptionType `json:"type"`
}

// MOptionTicker holds the components of a compact option ticker such as AAPL250621C00150000.
type MOptionTicker struct {
	Symbol     string
	Underlying string
	Expiration time.Time // UTC midnight
	Remainder  string    // right + strike digits
}
