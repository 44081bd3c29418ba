package catalogue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/anime-shed/image-search-go/internal/analyzer"
	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

// ErrImageNotFound is the cause of lookups for ids that are not catalogued.
var ErrImageNotFound = errors.New("image not found")

// Image is one catalogued image and its tag values. Absent tags map to nil.
type Image struct {
	ID   uuid.UUID
	Path string
	Tags map[string]any
}

// Tag returns a present tag value.
func (img Image) Tag(name string) (any, bool) {
	v, ok := img.Tags[name]
	return v, ok && v != nil
}

type imageRow struct {
	id   string
	path string
	raw  []any
}

// queryRows runs each predicate of sel in order and keeps the first
// occurrence of every id. extra names tag columns to read alongside id and
// path.
func queryRows(ctx context.Context, conn *sql.Conn, sel Selection, extra []string) ([]imageRow, error) {
	cols := make([]string, 0, 2+len(extra))
	cols = append(cols, quoteIdent(ColumnID), quoteIdent(ColumnPath))
	for _, c := range extra {
		cols = append(cols, quoteIdent(c))
	}
	columnList := strings.Join(cols, ", ")

	var out []imageRow
	seen := make(map[string]bool)
	for _, p := range sel.Predicates() {
		query, args := p.compile(columnList)
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, apperrors.NewStorageFailure(fmt.Sprintf("query images where %s", p.key()), err)
		}
		for rows.Next() {
			r := imageRow{raw: make([]any, len(extra))}
			dest := make([]any, 0, len(cols))
			dest = append(dest, &r.id, &r.path)
			for i := range r.raw {
				dest = append(dest, &r.raw[i])
			}
			if err := rows.Scan(dest...); err != nil {
				rows.Close()
				return nil, apperrors.NewStorageFailure("scan image row", err)
			}
			if seen[r.id] {
				continue
			}
			seen[r.id] = true
			out = append(out, r)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, apperrors.NewStorageFailure("iterate image rows", err)
		}
	}
	return out, nil
}

func decodeImage(r imageRow, entries []analyzer.Entry) (Image, error) {
	id, err := uuid.Parse(r.id)
	if err != nil {
		return Image{}, apperrors.NewStorageFailure(fmt.Sprintf("malformed image id %q", r.id), err)
	}
	img := Image{ID: id, Path: r.path, Tags: make(map[string]any, len(entries))}
	for i, e := range entries {
		v, err := decodeValue(e.Tagger.Kind(), r.raw[i])
		if err != nil {
			return Image{}, apperrors.NewStorageFailure(fmt.Sprintf("decode %s of image %s", e.Name, r.id), err)
		}
		img.Tags[e.Name] = v
	}
	return img, nil
}

func tagColumns(entries []analyzer.Entry) []string {
	cols := make([]string, len(entries))
	for i, e := range entries {
		cols[i] = ColumnName(e.Name)
	}
	return cols
}
