package utils

// -----------------------------------------------------------------------------

// Document store tables used by the gateway.
const (
	TableStocks         = "stocks"
	TableAuthorizedKeys = "authorized_keys"
)

// KnownTables is every table the stores create and accept.
var KnownTables = []string{TableStocks, TableAuthorizedKeys}

// -----------------------------------------------------------------------------

// IsKnownTable guards table names before they reach SQL text.
func IsKnownTable(table string) bool {
	for _, t := range KnownTables {
		if t == table {
			return true
		}
	}
	return false
}
