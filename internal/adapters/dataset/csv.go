// Package dataset loads the reference component catalog from CSV files.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/pkg/logger"
)

const fileSuffix = "_dataset.csv"

// FileName returns the dataset file name of c.
func FileName(c model.Category) string {
	return string(c) + fileSuffix
}

// CSVLoader reads one <category>_dataset.csv per category from a directory.
// Every component it yields is reference only.
type CSVLoader struct {
	dir string
	log logger.Logger
}

// Option configures a CSVLoader.
type Option func(*CSVLoader)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *CSVLoader) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCSVLoader returns a loader over dir.
func NewCSVLoader(dir string, opts ...Option) *CSVLoader {
	c := &CSVLoader{dir: dir, log: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load implements catalog.Loader. Missing files are logged and skipped, as
// are rows without a usable id.
func (c *CSVLoader) Load(ctx context.Context) ([]model.Component, error) {
	var out []model.Component
	for _, cat := range model.Categories() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(c.dir, FileName(cat))
		comps, err := c.loadFile(ctx, cat, path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				c.log.Warn(ctx, "dataset file missing", logger.String("path", path))
				continue
			}
			return nil, err
		}
		c.log.Debug(ctx, "dataset file loaded",
			logger.String("category", string(cat)), logger.Int("components", len(comps)))
		out = append(out, comps...)
	}
	return out, nil
}

func (c *CSVLoader) loadFile(ctx context.Context, cat model.Category, path string) ([]model.Component, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the configured directory
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	comps, skipped, err := Read(cat, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if skipped > 0 {
		c.log.Warn(ctx, "dataset rows skipped",
			logger.String("path", path), logger.Int("rows", skipped))
	}
	return comps, nil
}

// Read decodes CSV rows of category cat from r. The first record is the
// header. It returns the decoded components and the number of rows that
// were dropped for lacking a valid id.
func Read(cat model.Category, r io.Reader) ([]model.Component, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, ErrNoHeader
		}
		return nil, 0, err
	}
	for i, h := range header {
		// strip a UTF-8 byte order mark left by spreadsheet exports
		header[i] = strings.TrimPrefix(h, "\ufeff")
	}
	if !hasID(header) {
		return nil, 0, ErrNoIDCol
	}

	var (
		out     []model.Component
		skipped int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		fields := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				fields[h] = rec[i]
			}
		}
		comp, err := model.Decode(cat, fields)
		if err != nil {
			skipped++
			continue
		}
		comp.Availability = model.AvailabilityReferenceOnly
		out = append(out, comp)
	}
	return out, skipped, nil
}

func hasID(header []string) bool {
	for _, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "id") {
			return true
		}
	}
	return false
}
