package util

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// SafeJoin places the base name of an uploaded file under root. Names that
// reduce to nothing usable are rejected.
func SafeJoin(root, name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(root, base), nil
}

// writeAtomic streams write into a temp file next to path and renames it
// into place, so readers never see a partial result or brief.
func writeAtomic(path, pattern string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// WriteJSONAtomic writes v as indented JSON, e.g. a pipeline result for --out.
func WriteJSONAtomic(path string, v any) error {
	return writeAtomic(path, ".result-*.json", func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	})
}

// WriteJSONLines writes one JSON document per row.
func WriteJSONLines[T any](path string, rows []T) error {
	return writeAtomic(path, ".rows-*.jsonl", func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for i, row := range rows {
			if err := enc.Encode(row); err != nil {
				return fmt.Errorf("encode row %d: %w", i, err)
			}
		}
		return nil
	})
}

// WriteTextAtomic writes extracted brief text beside its upload.
func WriteTextAtomic(path, content string) error {
	return writeAtomic(path, ".brief-*.txt", func(w io.Writer) error {
		_, err := io.WriteString(w, content)
		return err
	})
}
