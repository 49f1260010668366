package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xmhha/sso-session/pkg/logger"
	"github.com/0xmhha/sso-session/pkg/policy"
	"github.com/0xmhha/sso-session/pkg/session"
	"github.com/0xmhha/sso-session/pkg/store"
)

// Importer records session config files in the registry under their
// session hash, named after the file.
type Importer struct {
	Store store.Store

	// Account is attached to new records when set.
	Account string

	Logger logger.Logger
}

// Import parses path and upserts its record. An earlier watched session
// that carried the same file name gives the name up; a name held by a
// session from another source is left alone and the new record is stored
// unnamed.
func (i *Importer) Import(path string) (*store.Record, error) {
	spec, err := policy.LoadSessionConfigFile(path)
	if err != nil {
		return nil, err
	}

	hash, err := session.Hash(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	specJSON, err := policy.MarshalSessionConfig(spec)
	if err != nil {
		return nil, err
	}

	rec := &store.Record{
		Hash:    hash.Hex(),
		Name:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Account: i.Account,
		Spec:    specJSON,
		Source:  store.SourceWatched,
	}

	existing, err := i.Store.Get(rec.Hash)
	switch {
	case err == nil:
		if existing.Name != "" {
			rec.Name = existing.Name
		}
		if existing.Account != "" {
			rec.Account = existing.Account
		}
		rec.Source = existing.Source
		rec.RevokedAt = existing.RevokedAt
	case !errors.Is(err, store.ErrSessionNotFound):
		return nil, err
	}

	if err := i.releaseName(rec); err != nil {
		return nil, err
	}

	if err := i.Store.Put(rec); err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", path, err)
	}

	i.Logger.Info("session config imported",
		"path", path,
		"hash", rec.Hash,
		"name", rec.Name)

	return rec, nil
}

func (i *Importer) releaseName(rec *store.Record) error {
	if rec.Name == "" {
		return nil
	}

	owner, err := i.Store.GetByName(rec.Name)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if owner.Hash == rec.Hash {
		return nil
	}

	if owner.Source != store.SourceWatched {
		i.Logger.Warn("name taken by another session, importing unnamed",
			"name", rec.Name,
			"owner", owner.Hash)
		rec.Name = ""
		return nil
	}

	owner.Name = ""
	return i.Store.Put(owner)
}

// ImportDir imports every matching file directly inside dir. Files that
// fail to parse are logged and skipped.
func (i *Importer) ImportDir(dir, ext string) ([]*store.Record, error) {
	entries, err := os.ReadDir(expandHome(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var records []*store.Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}

		rec, err := i.Import(filepath.Join(expandHome(dir), entry.Name()))
		if err != nil {
			i.Logger.Warn("skipping session config", "file", entry.Name(), "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Handle imports created and written files. Removing a file does not touch
// the registry.
func (i *Importer) Handle(event Event) (*store.Record, error) {
	switch event.Op {
	case OpCreate, OpWrite:
		return i.Import(event.Path)
	default:
		i.Logger.Debug("ignoring file event", "path", event.Path, "op", event.Op.String())
		return nil, nil
	}
}

// Run imports events from w until ctx ends or w is closed. onImport, if
// set, is called after every successful import.
func (i *Importer) Run(ctx context.Context, w Watcher, onImport func(*store.Record)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.Events():
			if !ok {
				return nil
			}
			rec, err := i.Handle(event)
			if err != nil {
				i.Logger.Error("failed to import session config", "path", event.Path, "error", err)
				continue
			}
			if rec != nil && onImport != nil {
				onImport(rec)
			}

		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			if errors.Is(err, ErrCircuitBreakerOpen) {
				return err
			}
			i.Logger.Warn("watcher error", "error", err)
		}
	}
}
