package usecase

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	applogger "DemandLoop/pkg/logger"
)

// venueNamespace derives stable venue ids from the natural key (name_ar, district, category).
var venueNamespace = uuid.MustParse("6f1c7d4e-2b8a-4c3e-9a51-0d2e8b7f4a10")

var seedColumns = []string{"name_ar", "name_en", "category", "district", "lat", "lng"}

// SeedResult summarizes a seed run.
type SeedResult struct {
	Rows               int
	Upserted           int
	Skipped            int
	DefaultPredictions int
}

// SeedUseCase loads venues from a places CSV and gives every new venue a default prediction.
type SeedUseCase struct {
	venues domrepo.VenueStore
	preds  domrepo.PredictionStore
	common
}

func NewSeedUseCase(venues domrepo.VenueStore, preds domrepo.PredictionStore, opts ...Option) *SeedUseCase {
	return &SeedUseCase{venues: venues, preds: preds, common: applyOptions(opts)}
}

// VenueID returns the id a venue with this natural key is stored under.
func VenueID(nameAr, district string, category models.Category) string {
	key := strings.Join([]string{nameAr, district, category.String()}, "|")
	return uuid.NewSHA1(venueNamespace, []byte(key)).String()
}

// SeedVenues upserts every valid row. Invalid rows are logged and skipped.
func (uc *SeedUseCase) SeedVenues(ctx context.Context, r io.Reader) (SeedResult, error) {
	var res SeedResult
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return res, fmt.Errorf("read seed header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range seedColumns {
		if _, ok := cols[c]; !ok {
			return res, fmt.Errorf("seed header: missing column %q", c)
		}
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return res, fmt.Errorf("read seed line %d: %w", line, err)
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Rows++

		v, err := venueFromRecord(rec, cols)
		if err != nil {
			res.Skipped++
			uc.l.Warn("seed row skipped", applogger.Int("line", line), applogger.Error(err))
			continue
		}
		if err := uc.venues.Upsert(ctx, &v); err != nil {
			return res, fmt.Errorf("seed venue line %d: %w", line, err)
		}
		res.Upserted++

		created, err := uc.ensurePrediction(ctx, v.ID)
		if err != nil {
			return res, err
		}
		if created {
			res.DefaultPredictions++
		}
	}

	uc.l.Info("seed done",
		applogger.Int("rows", res.Rows),
		applogger.Int("upserted", res.Upserted),
		applogger.Int("skipped", res.Skipped),
		applogger.Int("default_predictions", res.DefaultPredictions),
	)
	return res, nil
}

func (uc *SeedUseCase) ensurePrediction(ctx context.Context, venueID string) (bool, error) {
	_, err := uc.preds.Get(ctx, venueID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domrepo.ErrNotFound) {
		return false, fmt.Errorf("seed prediction lookup %s: %w", venueID, err)
	}
	p := models.DefaultPrediction(venueID)
	p.GeneratedAt = uc.clock().UTC()
	if err := uc.preds.Upsert(ctx, &p); err != nil {
		return false, fmt.Errorf("seed default prediction %s: %w", venueID, err)
	}
	return true, nil
}

func venueFromRecord(rec []string, cols map[string]int) (models.Venue, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	v := models.Venue{
		NameAr:           field("name_ar"),
		NameEn:           field("name_en"),
		District:         field("district"),
		KidsFriendly:     field("kids_friendly") == "true",
		StrollerFriendly: field("stroller_friendly") == "true",
		PrayerRoom:       field("prayer_room") == "true",
		ParkingEase:      models.ParkingMedium,
		IsActive:         true,
	}
	if v.NameAr == "" {
		return v, errors.New("name_ar is empty")
	}
	cat, err := models.ParseCategory(field("category"))
	if err != nil {
		return v, err
	}
	v.Category = cat

	if v.Lat, err = strconv.ParseFloat(field("lat"), 64); err != nil {
		return v, fmt.Errorf("lat: %w", err)
	}
	if v.Lng, err = strconv.ParseFloat(field("lng"), 64); err != nil {
		return v, fmt.Errorf("lng: %w", err)
	}
	if v.Lat < -90 || v.Lat > 90 || v.Lng < -180 || v.Lng > 180 {
		return v, fmt.Errorf("coordinates out of range: %v,%v", v.Lat, v.Lng)
	}

	if s := field("parking_ease"); s != "" {
		if v.ParkingEase, err = models.ParseParkingEase(s); err != nil {
			return v, err
		}
	}
	if s := field("hours_json"); s != "" {
		if !json.Valid([]byte(s)) {
			return v, errors.New("hours_json is not valid JSON")
		}
		v.Hours = []byte(s)
	}

	v.ID = VenueID(v.NameAr, v.District, v.Category)
	return v, nil
}
