// Package migrate moves the species cache in and out of JSONL files, one
// JSON object per cached pokemon.
package migrate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
)

// maxLineSize bounds one JSONL record.
const maxLineSize = 1 << 20

// Source lists cached pokemon.
type Source interface {
	ListEntitiesContext(ctx context.Context, filter schema.Filter) ([]*schema.Pokemon, error)
}

// Sink stores pokemon in one batch.
type Sink interface {
	UpsertEntitiesContext(ctx context.Context, list []*schema.Pokemon) error
}

// ImportOptions contains configuration for an import
type ImportOptions struct {
	DryRun bool // Parse and validate without writing
}

// ImportResult contains statistics about an import
type ImportResult struct {
	Imported int
	Invalid  int
	// Duplicates counts records whose id appeared earlier in the file;
	// the last occurrence wins.
	Duplicates int
	Errors     []string
}

// Export writes the pokemon matching filter to w as JSONL, ordered by id.
func Export(ctx context.Context, src Source, filter schema.Filter, w io.Writer) (int, error) {
	list, err := src.ListEntitiesContext(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to list pokemon: %w", err)
	}

	bw := bufio.NewWriter(w)
	encoder := json.NewEncoder(bw)
	for _, p := range list {
		if err := encoder.Encode(p); err != nil {
			return 0, fmt.Errorf("failed to encode pokemon %d: %w", p.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}
	return len(list), nil
}

// ExportFile writes an export to path atomically via a temp file.
func ExportFile(ctx context.Context, src Source, filter schema.Filter, path string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	tmpPath := path + ".tmp"
	// #nosec G304 - controlled path from CLI
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	n, err := Export(ctx, src, filter, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close temp file: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to rename temp file: %w", err)
	}
	return n, nil
}

// Import reads JSONL from r, validates each record and upserts the valid
// ones in one batch. Malformed or invalid lines are counted and skipped;
// blank lines are ignored.
func Import(ctx context.Context, dst Sink, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		list  []*schema.Pokemon
		index = make(map[int]int) // id -> position in list
	)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var p schema.Pokemon
		if err := json.Unmarshal(line, &p); err != nil {
			result.Invalid++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: invalid JSON: %v", lineNum, err))
			continue
		}
		if err := p.Validate(); err != nil {
			result.Invalid++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", lineNum, err))
			continue
		}

		if i, seen := index[p.ID]; seen {
			result.Duplicates++
			list[i] = &p
			continue
		}
		index[p.ID] = len(list)
		list = append(list, &p)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("failed to read JSONL: record exceeds %d bytes: %w", maxLineSize, schema.ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to read JSONL: %w", err)
	}

	if !opts.DryRun && len(list) > 0 {
		if err := dst.UpsertEntitiesContext(ctx, list); err != nil {
			return nil, fmt.Errorf("failed to store imported pokemon: %w", err)
		}
	}
	result.Imported = len(list)
	return result, nil
}

// ImportFile imports the JSONL file at path.
func ImportFile(ctx context.Context, dst Sink, path string, opts ImportOptions) (*ImportResult, error) {
	// #nosec G304 - controlled path from CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL file: %w", err)
	}
	defer file.Close()

	return Import(ctx, dst, file, opts)
}
