package gw2api

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rubiojr/itemsearch/pkg/core"
)

// Files read by DumpFetcher, one per endpoint.
const (
	FileTokenInfo  = "tokeninfo.json"
	FileBank       = "bank.json"
	FileInventory  = "inventory.json"
	FileMaterials  = "materials.json"
	FileCharacters = "characters.json"
	FileDelivery   = "delivery.json"
	FileSells      = "sells.json"
)

// DumpFetcher reads account documents saved from the API into a directory.
// A missing or unreadable file makes that source unavailable.
type DumpFetcher struct {
	dir string
}

func NewDumpFetcher(dir string) *DumpFetcher {
	return &DumpFetcher{dir: dir}
}

// Dir is the directory the documents are read from.
func (d *DumpFetcher) Dir() string {
	return d.dir
}

func (d *DumpFetcher) read(ctx context.Context, name string, out any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, name, err)
	}
	data, err := os.ReadFile(filepath.Join(d.dir, name))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrUnavailable, name, err)
	}
	return nil
}

// TokenInfo reads tokeninfo.json, which lists the permissions the dump was
// taken with.
func (d *DumpFetcher) TokenInfo(ctx context.Context) (*TokenInfo, error) {
	var info TokenInfo
	if err := d.read(ctx, FileTokenInfo, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (d *DumpFetcher) Bank(ctx context.Context) ([]*core.ItemSlot, error) {
	var slots []*core.ItemSlot
	if err := d.read(ctx, FileBank, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (d *DumpFetcher) SharedInventory(ctx context.Context) ([]*core.ItemSlot, error) {
	var slots []*core.ItemSlot
	if err := d.read(ctx, FileInventory, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (d *DumpFetcher) Materials(ctx context.Context) ([]core.MaterialSlot, error) {
	var mats []core.MaterialSlot
	if err := d.read(ctx, FileMaterials, &mats); err != nil {
		return nil, err
	}
	return mats, nil
}

func (d *DumpFetcher) Characters(ctx context.Context) ([]*core.Character, error) {
	var chars []*core.Character
	if err := d.read(ctx, FileCharacters, &chars); err != nil {
		return nil, err
	}
	return chars, nil
}

func (d *DumpFetcher) Delivery(ctx context.Context) (*core.Delivery, error) {
	var box core.Delivery
	if err := d.read(ctx, FileDelivery, &box); err != nil {
		return nil, err
	}
	return &box, nil
}

func (d *DumpFetcher) Sells(ctx context.Context) ([]core.Listing, error) {
	var listings []core.Listing
	if err := d.read(ctx, FileSells, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}
