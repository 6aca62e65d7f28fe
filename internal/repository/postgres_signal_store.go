package repository

import (
	"context"
	"fmt"
	"time"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	"DemandLoop/pkg/postgres"
)

// PostgresSignalStore implements SignalStore on the signals table.
type PostgresSignalStore struct {
	pool *postgres.Pool
}

func NewPostgresSignalStore(pool *postgres.Pool) *PostgresSignalStore {
	return &PostgresSignalStore{pool: pool}
}

var _ domrepo.SignalStore = (*PostgresSignalStore)(nil)

func (s *PostgresSignalStore) FetchSignals(ctx context.Context, venueID string, since time.Time) ([]models.Signal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, place_id, type, crowd_level, wait_band, weight, user_hash, created_at
		FROM signals
		WHERE place_id = $1 AND created_at >= $2`,
		venueID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch signals: %w", err)
	}
	defer rows.Close()

	var out []models.Signal
	for rows.Next() {
		var (
			sig         models.Signal
			kind        string
			crowd, wait *string
		)
		if err := rows.Scan(&sig.ID, &sig.VenueID, &kind, &crowd, &wait, &sig.Weight, &sig.UserHash, &sig.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.Kind = models.SignalKind(kind)
		if crowd != nil {
			sig.CrowdLevel = models.CrowdLevel(*crowd)
		}
		if wait != nil {
			sig.WaitBand = models.WaitBand(*wait)
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch signals: %w", err)
	}
	return out, nil
}

func (s *PostgresSignalStore) Insert(ctx context.Context, sig *models.Signal) error {
	if sig == nil || sig.ID == "" || sig.VenueID == "" || !sig.Kind.Valid() {
		return fmt.Errorf("insert signal: %w", domrepo.ErrInvalidInput)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO signals (id, place_id, type, crowd_level, wait_band, weight, user_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sig.ID, sig.VenueID, string(sig.Kind), nullable(string(sig.CrowdLevel)), nullable(string(sig.WaitBand)),
		sig.Weight, sig.UserHash, sig.CreatedAt,
	)
	if err != nil {
		if postgres.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert signal %s: %w", sig.ID, domrepo.ErrInvalidInput)
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
