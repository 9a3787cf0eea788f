// Package export encodes and decodes transaction snapshots as CSV, JSON or
// YAML. Each format is a Codec; the worker and the HTTP layer pick one by name.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ledger/internal/core"
)

type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	YAML Format = "yaml"
)

// Columns is the CSV header, in order.
var Columns = []string{"type", "amount", "date", "category", "description", "id"}

type Codec interface {
	Encode(w io.Writer, txs []core.Transaction) error
	Decode(r io.Reader) ([]core.Transaction, error)
	ContentType() string
}

// ParseFormat accepts a format name or file extension, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

func ForFormat(f Format) (Codec, error) {
	switch f {
	case CSV:
		return CSVCodec{}, nil
	case JSON:
		return JSONCodec{}, nil
	case YAML:
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
}

// WriteFile replaces path with the encoded snapshot. The data is written to a
// temporary file in the same directory and renamed into place.
func WriteFile(path string, codec Codec, txs []core.Transaction) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := codec.Encode(tmp, txs); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// ReadFile decodes the snapshot at path using the codec for its extension.
func ReadFile(path string) ([]core.Transaction, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	codec, err := ForFormat(f)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return codec.Decode(file)
}

func rowError(row int, err error) error {
	return &core.ValidationError{Field: fmt.Sprintf("row %d", row), Message: err.Error()}
}
