package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/alertgrid/alertgrid/internal/broadcast"
	"github.com/alertgrid/alertgrid/pkg/geo"
)

// PostgresRepository is a PostgreSQL implementation of Repository. The
// geometry column holds the exact string encoding from pkg/geo, so rows
// written by other services sharing the schema decode identically.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresRepository creates a new PostgreSQL broadcast message repository.
func NewPostgresRepository(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{pool: pool, logger: logger}
}

// QuerySince retrieves messages received at or after the given time.
func (r *PostgresRepository) QuerySince(ctx context.Context, since time.Time) ([]*broadcast.Message, error) {
	query := `
		SELECT id, format, slot_index, subscription_id, serial_number, service_category,
		       body, emergency, etws_primary, geometries, max_wait_sec, received_at
		FROM broadcast_messages
		WHERE received_at >= $1
		ORDER BY received_at DESC
	`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*broadcast.Message
	for rows.Next() {
		msg, err := r.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	return messages, nil
}

func (r *PostgresRepository) scanMessage(rows pgx.Rows) (*broadcast.Message, error) {
	var (
		msg         broadcast.Message
		etwsPrimary *bool
		geometries  string
	)

	err := rows.Scan(
		&msg.RecordID,
		&msg.Format,
		&msg.SlotIndex,
		&msg.SubscriptionID,
		&msg.SerialNumber,
		&msg.ServiceCategory,
		&msg.Body,
		&msg.Emergency,
		&etwsPrimary,
		&geometries,
		&msg.MaxWaitSec,
		&msg.ReceivedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}

	if etwsPrimary != nil {
		msg.Etws = &broadcast.EtwsInfo{Primary: *etwsPrimary}
	}

	area, err := geo.Decode(geometries)
	if err != nil {
		// Malformed geometries are skipped, not fatal; keep whatever decoded.
		r.logger.Warn().Err(err).Str("record_id", msg.RecordID).
			Msg("skipped malformed geometries on stored message")
	}
	msg.Area = area

	return &msg, nil
}

// Insert persists a message and returns its record ID.
func (r *PostgresRepository) Insert(ctx context.Context, msg *broadcast.Message) (string, error) {
	query := `
		INSERT INTO broadcast_messages
			(format, slot_index, subscription_id, serial_number, service_category,
			 body, emergency, etws_primary, geometries, max_wait_sec, received_at, broadcasted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE)
		RETURNING id
	`

	var etwsPrimary *bool
	if msg.Etws != nil {
		etwsPrimary = &msg.Etws.Primary
	}

	var recordID string
	err := r.pool.QueryRow(ctx, query,
		msg.Format,
		msg.SlotIndex,
		msg.SubscriptionID,
		msg.SerialNumber,
		msg.ServiceCategory,
		msg.Body,
		msg.Emergency,
		etwsPrimary,
		geo.Encode(msg.Area),
		msg.MaxWaitSec,
		msg.ReceivedAt,
	).Scan(&recordID)
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}

	return recordID, nil
}

// MarkBroadcast flags a stored message as delivered.
func (r *PostgresRepository) MarkBroadcast(ctx context.Context, recordID string) error {
	query := `UPDATE broadcast_messages SET broadcasted = TRUE WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, recordID)
	if err != nil {
		return fmt.Errorf("mark broadcast: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
