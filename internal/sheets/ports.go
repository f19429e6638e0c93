package sheets

import (
	"context"

	"bloombook/internal/core"
)

// Ports for outbound mirror adapters.
type (
	// TransactionWriter appends one transaction row to the mirror target.
	TransactionWriter interface {
		AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// TransactionRemover flags a mirrored transaction as deleted.
	TransactionRemover interface {
		RemoveTransaction(ctx context.Context, id string) error
	}
)
