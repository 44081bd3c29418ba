package ingest

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"
	"github.com/anime-shed/image-search-go/internal/logger"
)

// Index is a directory of image copies named by content hash.
type Index struct {
	Dir string
}

// Result describes one ingested file.
type Result struct {
	Source    string `json:"source"`
	Path      string `json:"path"`
	Hash      string `json:"hash"`
	Duplicate bool   `json:"duplicate"`
}

// New returns an index rooted at dir. The directory is created on first Add.
func New(dir string) *Index {
	return &Index{Dir: dir}
}

// HashFile returns the hex SHA-1 of the file content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.NewNotFoundError(fmt.Sprintf("image file %q not found", path), err)
		}
		return "", apperrors.NewStorageFailure(fmt.Sprintf("open %q", path), err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", apperrors.NewStorageFailure(fmt.Sprintf("hash %q", path), err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Add copies src into the index as <hash><ext>. When a copy with the same
// hash exists the file is not copied again; the result has Duplicate set
// and the error is a DuplicateImage.
func (ix *Index) Add(src string) (*Result, error) {
	hash, err := HashFile(src)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(src))
	if ext == "" {
		ext = ".img"
	}
	dest, err := filepath.Abs(filepath.Join(ix.Dir, hash+ext))
	if err != nil {
		return nil, apperrors.NewStorageFailure("resolve index path", err)
	}
	res := &Result{Source: src, Path: dest, Hash: hash}

	if _, err := os.Stat(dest); err == nil {
		res.Duplicate = true
		logger.WithFields(logrus.Fields{
			"source": src,
			"hash":   hash,
		}).Warn("Image already exists in index")
		return res, apperrors.NewDuplicateImage(fmt.Sprintf("%s is already indexed as %s", src, dest), nil)
	}

	if err := os.MkdirAll(ix.Dir, 0o755); err != nil {
		return nil, apperrors.NewStorageFailure(fmt.Sprintf("create index directory %q", ix.Dir), err)
	}
	if err := copyFile(src, dest); err != nil {
		return nil, apperrors.NewStorageFailure(fmt.Sprintf("copy %q into index", src), err)
	}

	logger.WithFields(logrus.Fields{
		"source": src,
		"hash":   hash,
		"path":   dest,
	}).Info("Added image to index")
	return res, nil
}

// copyFile writes through a temporary file so a partial copy is never
// visible under the final name.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".ingest-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
