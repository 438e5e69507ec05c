package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"market-gateway/src/models"
)

var (
	instrumentSymbolPattern = regexp.MustCompile(`^[A-Za-z]{1,5}$`)
	// <underlying><YYMMDD><right><strike digits>, e.g. AAPL250621C00150000
	optionTickerPattern = regexp.MustCompile(`^([A-Za-z]+)(\d{2})(\d{2})(\d{2})([A-Za-z]\d+)$`)
)

// -----------------------------------------------------------------------------

// IsValidInstrumentSymbol reports whether s is 1-5 ASCII letters.
func IsValidInstrumentSymbol(s string) bool {
	return instrumentSymbolPattern.MatchString(s)
}

// -----------------------------------------------------------------------------

// ParseOptionTicker splits a compact option ticker. The two-digit year is offset by 2000.
func ParseOptionTicker(ticker string) (*models.MOptionTicker, error) {
	m := optionTickerPattern.FindStringSubmatch(ticker)
	if m == nil {
		return nil, fmt.Errorf("ticker %q does not match <symbol><YYMMDD><right><strike>", ticker)
	}

	yy, _ := strconv.Atoi(m[2])
	mm, _ := strconv.Atoi(m[3])
	dd, _ := strconv.Atoi(m[4])
	expiration := time.Date(2000+yy, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)

	// time.Date normalizes overflow (e.g. month 13); reject instead
	if expiration.Month() != time.Month(mm) || expiration.Day() != dd {
		return nil, fmt.Errorf("ticker %q has invalid expiration date %s%s%s", ticker, m[2], m[3], m[4])
	}

	return &models.MOptionTicker{
		Symbol:     ticker,
		Underlying: strings.ToUpper(m[1]),
		Expiration: expiration,
		Remainder:  m[5],
	}, nil
}

// -----------------------------------------------------------------------------

// ClassifyBySymbol is the naming-convention fallback: any "C" in the identifier means call.
// Callers should prefer which side of the chain the contract was listed on.
func ClassifyBySymbol(contractSymbol string) models.OptionType {
	if strings.Contains(contractSymbol, "C") {
		return models.OptionTypeCall
	}
	return models.OptionTypePut
}
