package sheets

import (
	"context"

	"budgetcal/internal/core"
)

// TransactionAppender mirrors a transaction to an external sheet.
type TransactionAppender interface {
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
