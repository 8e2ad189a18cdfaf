package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triage_inbox/backend/internal/ingest"
)

// Store reads raw inbound batches from Postgres. Engine state itself is never
// written back.
type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

const inboundRecordsQuery = `SELECT customer_id, to_char(sent_at, 'YYYY-MM-DD HH24:MI:SS'), body
	FROM inbound_messages
	ORDER BY id ASC`

// ListInboundRecords returns the batch in insertion order, one record per row.
func (s *Store) ListInboundRecords(ctx context.Context) ([]ingest.Record, error) {
	rows, err := s.Pool.Query(ctx, inboundRecordsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ingest.Record
	for rows.Next() {
		var customerID, sentAt, body *string
		if err := rows.Scan(&customerID, &sentAt, &body); err != nil {
			return nil, err
		}
		out = append(out, toRecord(customerID, sentAt, body))
	}
	return out, rows.Err()
}

// toRecord keeps rows with NULL columns short so the parser drops them the
// same way it drops short text lines.
func toRecord(fields ...*string) ingest.Record {
	rec := make(ingest.Record, 0, len(fields))
	for _, f := range fields {
		if f == nil {
			return rec
		}
		rec = append(rec, *f)
	}
	return rec
}

const schema = `CREATE TABLE IF NOT EXISTS inbound_messages (
	id          BIGSERIAL PRIMARY KEY,
	customer_id TEXT,
	sent_at     TIMESTAMP,
	body        TEXT
)`

// EnsureSchema creates the inbound table when missing so a fresh database
// seeds as an empty batch instead of failing the query.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schema)
	return err
}
