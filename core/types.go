package core

import (
	"context"
)

// Module is a ledger served by the run command. Modules mount their API when they're created.
type Module interface {
	// Shutdown releases the module resources.
	Shutdown(ctx context.Context) error
}
