package interfaces

// -----------------------------------------------------------------------------
// IDataExchanger defines the lifecycle of the external-facing server.
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// -----------------------------------------------------------------------------
	// Start the server (blocks until it stops)
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
