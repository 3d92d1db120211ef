package owned

import (
	"context"

	"github.com/rubiojr/itemsearch/pkg/core"
)

// Fetcher is the account data collaborator. Each method returns the records of
// one source or an error meaning the source is unavailable for this pass.
// Implementations own their retry policy; the aggregator never retries.
type Fetcher interface {
	Bank(ctx context.Context) ([]*core.ItemSlot, error)
	SharedInventory(ctx context.Context) ([]*core.ItemSlot, error)
	Materials(ctx context.Context) ([]core.MaterialSlot, error)
	Characters(ctx context.Context) ([]*core.Character, error)
	Delivery(ctx context.Context) (*core.Delivery, error)
	Sells(ctx context.Context) ([]core.Listing, error)
}
