package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	pkgch "DemandLoop/pkg/clickhouse"
	applogger "DemandLoop/pkg/logger"
)

const historyTable = "prediction_history"

// ArchiveSchema returns the idempotent DDL for the prediction history table.
func ArchiveSchema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			generated_at      DateTime('UTC'),
			place_id          String,
			crowd_level       LowCardinality(String),
			wait_band         LowCardinality(String),
			confidence        LowCardinality(String),
			confidence_score  Float64,
			last_signal_at    Nullable(DateTime('UTC')),
			forecast_json     String,
			best_windows_json String
		) ENGINE = MergeTree
		ORDER BY (place_id, generated_at)
		TTL generated_at + INTERVAL 90 DAY`, database, historyTable),
	}
}

// CHPredictionArchive appends generated predictions to ClickHouse.
type CHPredictionArchive struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHPredictionArchive(ch *pkgch.Client, l *applogger.Logger) *CHPredictionArchive {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHPredictionArchive{db: ch.DB(), table: ch.Database() + "." + historyTable, l: l}
}

var _ domrepo.PredictionArchive = (*CHPredictionArchive)(nil)

// AppendBatch inserts rows with a multi-row VALUES statement, chunked.
func (s *CHPredictionArchive) AppendBatch(ctx context.Context, preds []models.Prediction) error {
	const chunkSize = 1000
	for start := 0; start < len(preds); start += chunkSize {
		end := min(start+chunkSize, len(preds))

		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*9)
		for _, p := range preds[start:end] {
			if p.VenueID == "" {
				continue
			}
			forecast, err := encodeForecast(p.Forecast)
			if err != nil {
				return fmt.Errorf("archive %s: %w", p.VenueID, err)
			}
			windows, err := encodeWindows(p.BestWindows)
			if err != nil {
				return fmt.Errorf("archive %s: %w", p.VenueID, err)
			}
			var last any
			if p.Now.LastSignalAt != nil {
				last = p.Now.LastSignalAt.UTC()
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				p.GeneratedAt.UTC(),
				p.VenueID,
				string(p.Now.CrowdLevel),
				string(p.Now.WaitBand),
				string(p.Now.Confidence),
				p.Now.ConfidenceScore,
				last,
				string(forecast),
				string(windows),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(`INSERT INTO %s (generated_at, place_id, crowd_level, wait_band, confidence,
			confidence_score, last_signal_at, forecast_json, best_windows_json) VALUES %s`,
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse archive insert error", applogger.Int("rows", len(values)), applogger.Error(err))
			return fmt.Errorf("archive predictions: %w", err)
		}
	}
	return nil
}

// History returns archived predictions for a venue in [from, to], newest first.
func (s *CHPredictionArchive) History(ctx context.Context, venueID string, from, to time.Time, limit int) ([]models.Prediction, error) {
	start := time.Now()
	q := fmt.Sprintf(`
		SELECT generated_at, place_id, crowd_level, wait_band, confidence, confidence_score,
			last_signal_at, forecast_json, best_windows_json
		FROM %s
		WHERE place_id = ? AND generated_at >= ? AND generated_at <= ?
		ORDER BY generated_at DESC
		LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, venueID, from.UTC(), to.UTC(), limit)
	if err != nil {
		s.l.Error("clickhouse history query error", applogger.String("place_id", venueID), applogger.Error(err))
		return nil, fmt.Errorf("prediction history: %w", err)
	}
	defer rows.Close()

	var out []models.Prediction
	for rows.Next() {
		var (
			p                 models.Prediction
			crowd, wait, conf string
			last              sql.NullTime
			forecast, windows string
		)
		if err := rows.Scan(&p.GeneratedAt, &p.VenueID, &crowd, &wait, &conf, &p.Now.ConfidenceScore,
			&last, &forecast, &windows); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		p.Now.CrowdLevel = models.CrowdLevel(crowd)
		p.Now.WaitBand = models.WaitBand(wait)
		p.Now.Confidence = models.Confidence(conf)
		if last.Valid {
			t := last.Time.UTC()
			p.Now.LastSignalAt = &t
		}
		if p.Forecast, err = decodeForecast([]byte(forecast)); err != nil {
			return nil, err
		}
		if p.BestWindows, err = decodeWindows([]byte(windows)); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prediction history: %w", err)
	}
	s.l.Debug("clickhouse history ok",
		applogger.String("place_id", venueID),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// Close is a no-op; the pool is owned by the client.
func (s *CHPredictionArchive) Close() error { return nil }

// NopArchive is used when ClickHouse is disabled.
type NopArchive struct{}

var _ domrepo.PredictionArchive = NopArchive{}

func (NopArchive) AppendBatch(context.Context, []models.Prediction) error { return nil }

func (NopArchive) History(context.Context, string, time.Time, time.Time, int) ([]models.Prediction, error) {
	return nil, nil
}

func (NopArchive) Close() error { return nil }
