package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern selects the files of a CSVDir source.
const DefaultPattern = "**/*.csv"

// CSVOptions configures a CSVDir source.
type CSVOptions struct {
	// Dir is the root directory holding the table files. Required.
	Dir string

	// Pattern is a doublestar glob relative to Dir. Default "**/*.csv".
	Pattern string

	// Separator joins multiple values inside one cell. Default ",".
	Separator string

	// Comma is the field delimiter of the files. Default ','.
	Comma rune

	Logger *slog.Logger
}

// CSVDir is a Source backed by a directory of CSV files. A file's table name
// is its path relative to Dir without extension, using forward slashes:
// "concepts/sensors.csv" is table "concepts/sensors".
type CSVDir struct {
	opts   CSVOptions
	logger *slog.Logger
}

// NewCSVDir creates a CSV directory source. The directory must exist.
func NewCSVDir(opts CSVOptions) (*CSVDir, error) {
	if opts.Dir == "" {
		return nil, errors.New("source: CSVOptions.Dir is required")
	}
	info, err := os.Stat(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("stat source dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", opts.Dir)
	}
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(opts.Pattern) {
		return nil, fmt.Errorf("invalid table pattern: %q", opts.Pattern)
	}
	if opts.Separator == "" {
		opts.Separator = DefaultSeparator
	}
	if opts.Comma == 0 {
		opts.Comma = ','
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVDir{opts: opts, logger: logger}, nil
}

// Dir returns the root directory.
func (d *CSVDir) Dir() string { return d.opts.Dir }

// Pattern returns the glob selecting table files.
func (d *CSVDir) Pattern() string { return d.opts.Pattern }

// Tables lists all table names matched by the pattern, sorted.
func (d *CSVDir) Tables(_ context.Context) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(d.opts.Dir), d.opts.Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob tables: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, tableName(m))
	}
	sort.Strings(names)
	return names, nil
}

// Open returns a cursor over the named table.
func (d *CSVDir) Open(ctx context.Context, name string) (Table, error) {
	file, err := d.resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(d.opts.Dir, filepath.FromSlash(file)))
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", name, err)
	}

	r := csv.NewReader(f)
	r.Comma = d.opts.Comma
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	cells, err := r.Read()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s is empty", ErrInvalidTable, name)
		}
		return nil, fmt.Errorf("%w: %s header: %v", ErrInvalidTable, name, err)
	}
	if len(cells) > 0 {
		cells[0] = strings.TrimPrefix(cells[0], "\ufeff")
	}

	return &csvCursor{
		name:      name,
		file:      f,
		reader:    r,
		header:    ParseHeader(cells),
		separator: d.opts.Separator,
		logger:    d.logger,
	}, nil
}

// Matches reports whether a path relative to Dir selects a table file.
func (d *CSVDir) Matches(rel string) bool {
	ok, err := doublestar.Match(d.opts.Pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

func (d *CSVDir) resolve(ctx context.Context, name string) (string, error) {
	matches, err := doublestar.Glob(os.DirFS(d.opts.Dir), d.opts.Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return "", fmt.Errorf("glob tables: %w", err)
	}
	for _, m := range matches {
		if tableName(m) == name {
			return m, nil
		}
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return "", fmt.Errorf("%w: %s", ErrTableNotFound, name)
}

func tableName(file string) string {
	file = filepath.ToSlash(file)
	return strings.TrimSuffix(file, path.Ext(file))
}

type csvCursor struct {
	name      string
	file      fs.File
	reader    *csv.Reader
	header    Header
	separator string
	logger    *slog.Logger

	row    Row
	number int
	err    error
	done   bool
}

func (c *csvCursor) Name() string   { return c.name }
func (c *csvCursor) Header() Header { return c.header }
func (c *csvCursor) Row() Row       { return c.row }
func (c *csvCursor) Err() error     { return c.err }

func (c *csvCursor) Next() bool {
	for !c.done {
		values, err := c.reader.Read()
		if errors.Is(err, io.EOF) {
			c.done = true
			return false
		}
		c.number++
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			c.logger.Warn("Skipping malformed row",
				"table", c.name, "row", c.number, "error", err)
			continue
		}
		if err != nil {
			c.err = fmt.Errorf("read table %s: %w", c.name, err)
			c.done = true
			return false
		}
		if blank(values) {
			continue
		}
		c.row = NewRow(c.header, values, c.number, c.separator)
		return true
	}
	return false
}

func (c *csvCursor) Close() error {
	c.done = true
	return c.file.Close()
}

func blank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
