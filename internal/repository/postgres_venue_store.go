package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	"DemandLoop/pkg/postgres"
)

// PostgresVenueStore implements VenueStore on the places table.
type PostgresVenueStore struct {
	pool *postgres.Pool
}

func NewPostgresVenueStore(pool *postgres.Pool) *PostgresVenueStore {
	return &PostgresVenueStore{pool: pool}
}

var _ domrepo.VenueStore = (*PostgresVenueStore)(nil)

const venueColumns = `id, name_ar, name_en, category, district, lat, lng,
	kids_friendly, stroller_friendly, prayer_room, parking_ease, hours_json, is_active`

func (s *PostgresVenueStore) Get(ctx context.Context, id string) (*models.Venue, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+venueColumns+` FROM places WHERE id = $1`, id)
	v, err := scanVenue(row)
	if err != nil {
		if postgres.IsNotFoundError(err) {
			return nil, domrepo.ErrNotFound
		}
		return nil, fmt.Errorf("get venue: %w", err)
	}
	return v, nil
}

func (s *PostgresVenueStore) ListActive(ctx context.Context, ids []string) ([]models.Venue, error) {
	return s.List(ctx, models.VenueFilter{IDs: ids})
}

func (s *PostgresVenueStore) List(ctx context.Context, f models.VenueFilter) ([]models.Venue, error) {
	where := []string{"is_active = TRUE"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if len(f.IDs) > 0 {
		add("id = ANY($%d)", f.IDs)
	}
	if f.ExcludeID != "" {
		add("id <> $%d", f.ExcludeID)
	}
	if f.Category.Valid() {
		add("category = $%d", f.Category.String())
	}
	if f.District != "" {
		add("district = $%d", f.District)
	}
	if f.Kids {
		where = append(where, "kids_friendly")
	}
	if f.Stroller {
		where = append(where, "stroller_friendly")
	}
	if f.PrayerRoom {
		where = append(where, "prayer_room")
	}
	if f.MaxParkingEase != "" {
		var allowed []string
		for _, p := range []models.ParkingEase{models.ParkingEasy, models.ParkingMedium, models.ParkingHard} {
			if p.Order() <= f.MaxParkingEase.Order() {
				allowed = append(allowed, string(p))
			}
		}
		add("parking_ease = ANY($%d)", allowed)
	}
	if b := f.Bounds; b != nil {
		add("lat >= $%d", b.MinLat)
		add("lat <= $%d", b.MaxLat)
		add("lng >= $%d", b.MinLng)
		add("lng <= $%d", b.MaxLng)
	}

	q := `SELECT ` + venueColumns + ` FROM places WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id`
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	var out []models.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	return out, nil
}

func (s *PostgresVenueStore) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM places WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count venues: %w", err)
	}
	return n, nil
}

func (s *PostgresVenueStore) Upsert(ctx context.Context, v *models.Venue) error {
	if v == nil || v.ID == "" || !v.Category.Valid() {
		return fmt.Errorf("upsert venue: %w", domrepo.ErrInvalidInput)
	}
	parking := v.ParkingEase
	if parking.Order() == 0 {
		parking = models.ParkingMedium
	}
	var hours any
	if len(v.Hours) > 0 {
		hours = v.Hours
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO places (`+venueColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name_ar = EXCLUDED.name_ar,
			name_en = EXCLUDED.name_en,
			category = EXCLUDED.category,
			district = EXCLUDED.district,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			kids_friendly = EXCLUDED.kids_friendly,
			stroller_friendly = EXCLUDED.stroller_friendly,
			prayer_room = EXCLUDED.prayer_room,
			parking_ease = EXCLUDED.parking_ease,
			hours_json = EXCLUDED.hours_json,
			is_active = EXCLUDED.is_active,
			updated_at = now()`,
		v.ID, v.NameAr, v.NameEn, v.Category.String(), v.District, v.Lat, v.Lng,
		v.KidsFriendly, v.StrollerFriendly, v.PrayerRoom, string(parking), hours, v.IsActive,
	)
	if err != nil {
		return fmt.Errorf("upsert venue: %w", err)
	}
	return nil
}

func scanVenue(row pgx.Row) (*models.Venue, error) {
	var (
		v        models.Venue
		category string
		parking  string
	)
	if err := row.Scan(&v.ID, &v.NameAr, &v.NameEn, &category, &v.District, &v.Lat, &v.Lng,
		&v.KidsFriendly, &v.StrollerFriendly, &v.PrayerRoom, &parking, &v.Hours, &v.IsActive); err != nil {
		return nil, err
	}
	cat, err := models.ParseCategory(category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domrepo.ErrInvalidInput, err)
	}
	v.Category = cat
	v.ParkingEase = models.ParkingEase(parking)
	return &v, nil
}
