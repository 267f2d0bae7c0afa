package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
)

// NpcStateRow is the saved property snapshot of one database NPC.
type NpcStateRow struct {
	Key     string
	Level   string
	Props   []byte // uncompressed generic-version prop stream
	SavedAt time.Time
}

// NpcRepo stores NPC property snapshots, zstd-compressed.
type NpcRepo struct {
	db  *DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewNpcRepo(db *DB) (*NpcRepo, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &NpcRepo{db: db, enc: enc, dec: dec}, nil
}

func (r *NpcRepo) Close() {
	r.enc.Close()
	r.dec.Close()
}

const upsertNpcState = `INSERT INTO npc_state (npc_key, level, props, saved_at)
 VALUES ($1, $2, $3, $4)
 ON CONFLICT (npc_key) DO UPDATE
 SET level = excluded.level, props = excluded.props, saved_at = excluded.saved_at`

// Save writes one snapshot, replacing any earlier one under the same key.
func (r *NpcRepo) Save(ctx context.Context, row NpcStateRow) error {
	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(upsertNpcState),
		row.Key, row.Level, r.enc.EncodeAll(row.Props, nil), row.SavedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save npc %s: %w", row.Key, err)
	}
	return nil
}

// SaveBatch writes all rows in a single transaction.
func (r *NpcRepo) SaveBatch(ctx context.Context, rows []NpcStateRow) error {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("npc batch begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.db.rebind(upsertNpcState))
	if err != nil {
		return fmt.Errorf("npc batch prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.Key, row.Level, r.enc.EncodeAll(row.Props, nil), row.SavedAt.Unix(),
		); err != nil {
			return fmt.Errorf("save npc %s: %w", row.Key, err)
		}
	}
	return tx.Commit()
}

// Load returns the snapshot saved under key, or nil if there is none.
func (r *NpcRepo) Load(ctx context.Context, key string) (*NpcStateRow, error) {
	var (
		row     = NpcStateRow{Key: key}
		blob    []byte
		savedAt int64
	)
	err := r.db.SQL.QueryRowContext(ctx, r.db.rebind(
		`SELECT level, props, saved_at FROM npc_state WHERE npc_key = $1`), key,
	).Scan(&row.Level, &blob, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load npc %s: %w", key, err)
	}
	row.Props, err = r.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress npc %s: %w", key, err)
	}
	row.SavedAt = time.Unix(savedAt, 0)
	return &row, nil
}

// Delete drops the snapshot saved under key.
func (r *NpcRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(`DELETE FROM npc_state WHERE npc_key = $1`), key)
	return err
}

// Count returns the number of saved snapshots.
func (r *NpcRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.SQL.QueryRowContext(ctx, `SELECT COUNT(*) FROM npc_state`).Scan(&n)
	return n, err
}
