package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	"DemandLoop/internal/repository"
)

func TestHistory_DefaultRange(t *testing.T) {
	archive := &recordingArchive{preds: []models.Prediction{
		{VenueID: "v1", GeneratedAt: testNow.Add(-30 * time.Hour)},
		{VenueID: "v1", GeneratedAt: testNow.Add(-2 * time.Hour)},
		{VenueID: "v2", GeneratedAt: testNow.Add(-time.Hour)},
		{VenueID: "v1", GeneratedAt: testNow.Add(-time.Hour)},
	}}
	uc := NewHistoryUseCase(repository.NewMemoryVenueStore(cafe("v1", 0, 0)), archive, WithClock(fixedClock))

	got, err := uc.History(context.Background(), HistoryParams{VenueID: "v1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, testNow.Add(-time.Hour), got[0].GeneratedAt)
	assert.Equal(t, testNow.Add(-2*time.Hour), got[1].GeneratedAt)

	got, err = uc.History(context.Background(), HistoryParams{VenueID: "v1", From: testNow.Add(-48 * time.Hour), Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestHistory_Errors(t *testing.T) {
	uc := NewHistoryUseCase(repository.NewMemoryVenueStore(cafe("v1", 0, 0)), &recordingArchive{}, WithClock(fixedClock))

	_, err := uc.History(context.Background(), HistoryParams{VenueID: "ghost"})
	require.ErrorIs(t, err, ErrVenueNotFound)

	_, err = uc.History(context.Background(), HistoryParams{VenueID: "v1", From: testNow, To: testNow.Add(-time.Hour)})
	require.ErrorIs(t, err, domrepo.ErrInvalidInput)
}

func TestHistory_DisabledArchive(t *testing.T) {
	for name, archive := range map[string]domrepo.PredictionArchive{
		"nil": nil,
		"nop": repository.NopArchive{},
	} {
		t.Run(name, func(t *testing.T) {
			uc := NewHistoryUseCase(repository.NewMemoryVenueStore(cafe("v1", 0, 0)), archive)
			got, err := uc.History(context.Background(), HistoryParams{VenueID: "v1"})
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}
