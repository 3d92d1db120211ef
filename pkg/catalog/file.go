package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rubiojr/itemsearch/pkg/core"
)

// LoadFile reads a JSON array of entries. Files ending in ".zst" are zstd
// compressed. Extra fields, as in full item API dumps, are ignored.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	entries, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return New(entries), nil
}

// Decode reads a JSON array of entries.
func Decode(r io.Reader) ([]core.CatalogEntry, error) {
	var entries []core.CatalogEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// WriteFile writes entries as JSON, zstd compressed when path ends in ".zst".
func WriteFile(path string, entries []core.CatalogEntry) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating catalog file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing catalog file: %w", cerr)
		}
	}()

	var w io.Writer = f
	var enc *zstd.Encoder
	if strings.HasSuffix(path, ".zst") {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("creating zstd encoder: %w", err)
		}
		w = enc
	}

	if err := json.NewEncoder(w).Encode(entries); err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("flushing zstd stream: %w", err)
		}
	}
	return nil
}
