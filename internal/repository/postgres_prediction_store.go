package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	"DemandLoop/pkg/postgres"
)

// PostgresPredictionStore implements PredictionStore on the predictions table.
type PostgresPredictionStore struct {
	pool *postgres.Pool
}

func NewPostgresPredictionStore(pool *postgres.Pool) *PostgresPredictionStore {
	return &PostgresPredictionStore{pool: pool}
}

var _ domrepo.PredictionStore = (*PostgresPredictionStore)(nil)

const predictionColumns = `place_id, now_crowd_level, now_wait_band, confidence, confidence_score,
	last_signal_at, forecast_json, best_windows_json, generated_at`

func (s *PostgresPredictionStore) Upsert(ctx context.Context, p *models.Prediction) error {
	if p == nil || p.VenueID == "" {
		return fmt.Errorf("upsert prediction: %w", domrepo.ErrInvalidInput)
	}
	forecast, err := encodeForecast(p.Forecast)
	if err != nil {
		return fmt.Errorf("upsert prediction: %w", err)
	}
	windows, err := encodeWindows(p.BestWindows)
	if err != nil {
		return fmt.Errorf("upsert prediction: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO predictions (`+predictionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (place_id) DO UPDATE SET
			now_crowd_level = EXCLUDED.now_crowd_level,
			now_wait_band = EXCLUDED.now_wait_band,
			confidence = EXCLUDED.confidence,
			confidence_score = EXCLUDED.confidence_score,
			last_signal_at = EXCLUDED.last_signal_at,
			forecast_json = EXCLUDED.forecast_json,
			best_windows_json = EXCLUDED.best_windows_json,
			generated_at = EXCLUDED.generated_at`,
		p.VenueID, string(p.Now.CrowdLevel), string(p.Now.WaitBand), string(p.Now.Confidence),
		p.Now.ConfidenceScore, p.Now.LastSignalAt, forecast, windows, p.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert prediction: %w", err)
	}
	return nil
}

func (s *PostgresPredictionStore) Get(ctx context.Context, venueID string) (*models.Prediction, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+predictionColumns+` FROM predictions WHERE place_id = $1`, venueID)
	p, err := scanPrediction(row)
	if err != nil {
		if postgres.IsNotFoundError(err) {
			return nil, domrepo.ErrNotFound
		}
		return nil, fmt.Errorf("get prediction: %w", err)
	}
	return p, nil
}

func (s *PostgresPredictionStore) GetMany(ctx context.Context, venueIDs []string) (map[string]models.Prediction, error) {
	out := make(map[string]models.Prediction, len(venueIDs))
	if len(venueIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+predictionColumns+` FROM predictions WHERE place_id = ANY($1)`, venueIDs)
	if err != nil {
		return nil, fmt.Errorf("get predictions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out[p.VenueID] = *p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get predictions: %w", err)
	}
	return out, nil
}

func scanPrediction(row pgx.Row) (*models.Prediction, error) {
	var (
		p                 models.Prediction
		crowd, wait, conf string
		last              *time.Time
		forecast, windows []byte
	)
	if err := row.Scan(&p.VenueID, &crowd, &wait, &conf, &p.Now.ConfidenceScore, &last, &forecast, &windows, &p.GeneratedAt); err != nil {
		return nil, err
	}
	p.Now.CrowdLevel = models.CrowdLevel(crowd)
	p.Now.WaitBand = models.WaitBand(wait)
	p.Now.Confidence = models.Confidence(conf)
	p.Now.LastSignalAt = last

	var err error
	if p.Forecast, err = decodeForecast(forecast); err != nil {
		return nil, err
	}
	if p.BestWindows, err = decodeWindows(windows); err != nil {
		return nil, err
	}
	return &p, nil
}
