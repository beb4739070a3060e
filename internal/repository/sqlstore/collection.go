package sqlstore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/momo-server/internal/model"
)

// ListCollection returns every entry of one user ordered by item id.
func (s *Store) ListCollection(ctx context.Context, userID string) ([]model.CollectionEntry, error) {
	entries := []model.CollectionEntry{}
	err := s.db.SelectContext(ctx, &entries,
		s.db.Rebind(`SELECT user_id, item_id, state FROM user_item_collections WHERE user_id = ? ORDER BY item_id`),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing collection of %s: %w", userID, err)
	}
	return entries, nil
}

// upsertChunkSize bounds the rows per statement. Three bind parameters per
// row keeps each statement well inside SQLite's 32766 and PostgreSQL's 65535
// parameter limits.
const upsertChunkSize = 1000

// UpsertCollection inserts or updates all entries atomically. Each chunk of
// entries is one statement:
//
//	INSERT ... VALUES (...), (...)
//	ON CONFLICT (user_id, item_id) DO UPDATE SET state = excluded.state
//	RETURNING user_id, item_id, state
//
// A batch that fits one chunk runs as a single statement, which is atomic on
// both engines; larger batches run every chunk in one transaction. Concurrent
// upserts of the same item never raise a unique violation.
// Item ids must be distinct: PostgreSQL refuses to update one row twice in a
// single statement.
func (s *Store) UpsertCollection(ctx context.Context, userID string, entries []model.CollectionEntry) ([]model.CollectionEntry, error) {
	if len(entries) == 0 {
		return []model.CollectionEntry{}, nil
	}
	if len(entries) <= upsertChunkSize {
		return upsertChunk(ctx, s.db, userID, entries)
	}

	stored := make([]model.CollectionEntry, 0, len(entries))
	err := s.withinTx(ctx, func(tx *sqlx.Tx) error {
		for chunk := range slices.Chunk(entries, upsertChunkSize) {
			rows, err := upsertChunk(ctx, tx, userID, chunk)
			if err != nil {
				return err
			}
			stored = append(stored, rows...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func upsertChunk(ctx context.Context, q sqlx.ExtContext, userID string, entries []model.CollectionEntry) ([]model.CollectionEntry, error) {
	var b strings.Builder
	b.WriteString(`INSERT INTO user_item_collections (user_id, item_id, state) VALUES `)
	args := make([]any, 0, len(entries)*3)
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, userID, e.ItemID, e.State)
	}
	b.WriteString(` ON CONFLICT (user_id, item_id) DO UPDATE SET state = excluded.state, updated_at = CURRENT_TIMESTAMP`)
	b.WriteString(` RETURNING user_id, item_id, state`)

	stored := make([]model.CollectionEntry, 0, len(entries))
	if err := sqlx.SelectContext(ctx, q, &stored, q.Rebind(b.String()), args...); err != nil {
		return nil, fmt.Errorf("sqlstore: upserting %d entries for %s: %w", len(entries), userID, err)
	}
	return stored, nil
}
