package catalogue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/anime-shed/image-search-go/internal/analyzer"
	apperrors "github.com/anime-shed/image-search-go/internal/errors"
	"github.com/anime-shed/image-search-go/internal/logger"
	"github.com/anime-shed/image-search-go/internal/observer"
	"github.com/anime-shed/image-search-go/internal/storage"
	"github.com/anime-shed/image-search-go/pkg/validation"
)

const maxIDAttempts = 32

// Catalogue owns the images table and the set of taggers whose values it
// stores.
type Catalogue struct {
	pool     ConnectionPool
	registry *analyzer.Registry
	loader   storage.ImageLoader
	events   observer.Subject
	newID    func() uuid.UUID
}

// Option configures a Catalogue.
type Option func(*Catalogue)

// WithEvents publishes pass events to s.
func WithEvents(s observer.Subject) Option {
	return func(c *Catalogue) { c.events = s }
}

// WithIDGenerator replaces uuid.New for new images.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(c *Catalogue) { c.newID = fn }
}

// Open creates the images table if needed. Tag columns are added by Register.
func Open(ctx context.Context, pool ConnectionPool, registry *analyzer.Registry, loader storage.ImageLoader, opts ...Option) (*Catalogue, error) {
	c := &Catalogue{
		pool:     pool,
		registry: registry,
		loader:   loader,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(c)
	}

	h, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	_, err = h.Conn().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS images (id TEXT PRIMARY KEY, path TEXT NOT NULL)`)
	if err != nil {
		return nil, apperrors.NewStorageFailure("create images table", err)
	}
	return c, nil
}

// Taggers returns the registry backing the catalogue.
func (c *Catalogue) Taggers() *analyzer.Registry { return c.registry }

// Register adds the column for name when missing and makes the tagger
// known. The returned pass backfills every image and is not run.
func (c *Catalogue) Register(ctx context.Context, name string, tagger analyzer.Tagger) (*Pass, error) {
	if err := analyzer.ValidateName(name); err != nil {
		return nil, err
	}
	if tagger == nil {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("nil tagger for %q", name), nil)
	}
	typ, err := columnType(tagger.Kind())
	if err != nil {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("tagger %q", name), err)
	}

	h, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	conn := h.Conn()

	column := ColumnName(name)
	exists, err := columnExists(ctx, conn, column)
	if err != nil {
		return nil, apperrors.NewStorageFailure(fmt.Sprintf("probe column for tagger %q", name), err)
	}
	if !exists {
		_, err := conn.ExecContext(ctx, fmt.Sprintf("ALTER TABLE images ADD COLUMN %s %s", quoteIdent(column), typ))
		// a concurrent registration may have won the race
		if err != nil {
			if again, _ := columnExists(ctx, conn, column); !again {
				return nil, apperrors.NewStorageFailure(fmt.Sprintf("add column for tagger %q", name), err)
			}
		}
		logger.ForTagger(name).WithField("kind", tagger.Kind().String()).Info("Added tag column")
	}

	if err := c.registry.Register(name, tagger); err != nil {
		return nil, err
	}
	return &Pass{cat: c, entries: []analyzer.Entry{{Name: name, Tagger: tagger}}, selection: All()}, nil
}

// columnExists looks the column up in the table schema. Selecting the
// column instead would not fail when it is missing: SQLite reads an
// unknown double-quoted name as a string literal.
func columnExists(ctx context.Context, conn *sql.Conn, column string) (bool, error) {
	var n int
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('images') WHERE name = ?`, column).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddImage checks that location decodes, then inserts it under a fresh id.
// The returned pass tags the new image with every registered tagger.
func (c *Catalogue) AddImage(ctx context.Context, location string) (*Pass, uuid.UUID, error) {
	if _, err := c.loader.Load(ctx, location); err != nil {
		return nil, uuid.Nil, err
	}

	path := location
	if !validation.IsRemote(location) {
		abs, err := filepath.Abs(location)
		if err != nil {
			return nil, uuid.Nil, apperrors.NewValidationError(fmt.Sprintf("resolve path %q", location), err)
		}
		path = abs
	}

	h, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, uuid.Nil, err
	}
	defer h.Release()
	conn := h.Conn()

	id, err := c.uniqueID(ctx, conn)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if _, err := conn.ExecContext(ctx, `INSERT INTO images (id, path) VALUES (?, ?)`, id.String(), path); err != nil {
		return nil, uuid.Nil, apperrors.NewStorageFailure("insert image", err)
	}

	logger.ForImage(id.String()).WithField(logger.FieldPath, path).Info("Catalogued image")

	return &Pass{cat: c, entries: c.registry.Entries(), selection: Equal(ColumnID, id.String())}, id, nil
}

func (c *Catalogue) uniqueID(ctx context.Context, conn *sql.Conn) (uuid.UUID, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := c.newID()
		var one int
		err := conn.QueryRowContext(ctx, `SELECT 1 FROM images WHERE id = ?`, id.String()).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return id, nil
		}
		if err != nil {
			return uuid.Nil, apperrors.NewStorageFailure("check image id", err)
		}
		logger.ForImage(id.String()).Warn("Image id collision, drawing another")
	}
	return uuid.Nil, apperrors.NewStorageFailure(fmt.Sprintf("no unused image id after %d attempts", maxIDAttempts), nil)
}

// Images returns every image matched by sel with all registered tags.
func (c *Catalogue) Images(ctx context.Context, sel Selection) ([]Image, error) {
	entries := c.registry.Entries()

	h, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := queryRows(ctx, h.Conn(), sel, tagColumns(entries))
	h.Release()
	if err != nil {
		return nil, err
	}

	out := make([]Image, 0, len(rows))
	for _, r := range rows {
		img, err := decodeImage(r, entries)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

// Image looks up one image by id.
func (c *Catalogue) Image(ctx context.Context, id uuid.UUID) (*Image, error) {
	images, err := c.Images(ctx, Equal(ColumnID, id.String()))
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("image %s", id), ErrImageNotFound)
	}
	return &images[0], nil
}

// Tag returns one stored value. A nil value means the tag is absent.
func (c *Catalogue) Tag(ctx context.Context, id uuid.UUID, name string) (any, error) {
	if _, ok := c.registry.Get(name); !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("tagger %q", name), analyzer.ErrUnknownTagger)
	}
	img, err := c.Image(ctx, id)
	if err != nil {
		return nil, err
	}
	return img.Tags[name], nil
}

// PassWithAllTaggers builds a pass of every registered tagger over sel.
func (c *Catalogue) PassWithAllTaggers(sel Selection) *Pass {
	return &Pass{cat: c, entries: c.registry.Entries(), selection: sel}
}

// PassFor builds a pass of the named taggers over sel.
func (c *Catalogue) PassFor(sel Selection, names ...string) (*Pass, error) {
	entries, err := c.registry.Select(names...)
	if err != nil {
		return nil, err
	}
	return &Pass{cat: c, entries: entries, selection: sel}, nil
}
