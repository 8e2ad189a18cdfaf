package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var ErrNoSource = errors.New("no ingestion source configured")

// RecordSource yields pre-split batch records, e.g. rows of a database table.
type RecordSource interface {
	ListInboundRecords(ctx context.Context) ([]Record, error)
}

func FromSource(ctx context.Context, src RecordSource) (Report, error) {
	if src == nil {
		return Report{}, ErrNoSource
	}
	records, err := src.ListInboundRecords(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list inbound records: %w", err)
	}
	return FromRecords(records), nil
}

// FromFile parses a delimited batch file. A missing path or file is reported
// as ErrNoSource.
func FromFile(path string) (Report, error) {
	if path == "" {
		return Report{}, ErrNoSource
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Report{}, fmt.Errorf("%w: %s", ErrNoSource, path)
	}
	if err != nil {
		return Report{}, fmt.Errorf("read batch file: %w", err)
	}
	return ParseReport(string(b)), nil
}
