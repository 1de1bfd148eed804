package main

import (
	"fmt"
	"os"

	"github.com/cshekharsharma/doctree/doc"
	"github.com/spf13/viper"
)

// newDocument constructs a fresh, empty Document for peer. Used by
// create, which starts a document from nothing.
func newDocument(peer uint64) *doc.Document {
	return doc.New(peer)
}

// loadDocument reads path's snapshot bytes into a freshly constructed
// Document bound to peer. Every subcommand but create requires a
// document to already exist on disk.
func loadDocument(path string, peer uint64) (*doc.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("doctreectl: no document at %s, run `create` first: %w", path, err)
	}
	d := newDocument(peer)
	if err := d.ImportSnapshot(data); err != nil {
		return nil, fmt.Errorf("doctreectl: import snapshot: %w", err)
	}
	return d, nil
}

// saveDocument writes d's full snapshot to path, overwriting it.
func saveDocument(path string, d *doc.Document) error {
	data, err := d.ExportSnapshot()
	if err != nil {
		return fmt.Errorf("doctreectl: export snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("doctreectl: write snapshot: %w", err)
	}
	return nil
}

// runOnDocument loads the document named by the --file/--peer flags,
// runs fn against it, then persists the result. Every mutating
// subcommand is one call to this.
func runOnDocument(fn func(d *doc.Document) error) error {
	d, err := loadDocument(viper.GetString("file"), viper.GetUint64("peer"))
	if err != nil {
		return err
	}
	defer d.Close()

	if err := fn(d); err != nil {
		return err
	}
	return saveDocument(viper.GetString("file"), d)
}
