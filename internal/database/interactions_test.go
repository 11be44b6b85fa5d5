package database

import (
	"context"
	"testing"
	"time"

	"hotelbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveInteraction(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	ctx := context.Background()

	view := &models.Interaction{UserID: "u1", ResourceID: "table-1", Type: models.InteractionView}
	require.NoError(t, db.SaveInteraction(ctx, view))
	assert.NotEmpty(t, view.ID)
	assert.False(t, view.CreatedAt.IsZero())

	n, err := db.CountInteractions(ctx, "table-1", models.InteractionView)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSaveInteraction_RatingRefreshesAverage(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	ctx := context.Background()

	for _, r := range []float64{5, 4} {
		require.NoError(t, db.SaveInteraction(ctx, &models.Interaction{
			UserID: "u1", ResourceID: "table-2", Type: models.InteractionRating, Rating: models.Float64(r),
		}))
	}

	res, err := db.GetResource(ctx, "table-2")
	require.NoError(t, err)
	require.NotNil(t, res.AverageRating)
	assert.InDelta(t, 4.5, *res.AverageRating, 1e-9)

	total, err := db.CountInteractions(ctx, "table-2", "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func seedInteractions(t *testing.T, db *DB) {
	t.Helper()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	items := []models.Interaction{
		{UserID: "u1", ResourceID: "table-1", Type: models.InteractionView},
		{UserID: "u1", ResourceID: "table-2", Type: models.InteractionView},
		{UserID: "u1", ResourceID: "table-1", Type: models.InteractionFavorite},
		{UserID: "u1", ResourceID: "table-1", Type: models.InteractionBooking, ReservationID: "r-1", FromRecommendation: true},
		{UserID: "u2", ResourceID: "room-101", Type: models.InteractionBooking, ReservationID: "r-2"},
		{UserID: "u2", ResourceID: "room-101", Type: models.InteractionView},
	}
	for i := range items {
		items[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.SaveInteraction(context.Background(), &items[i]))
	}
}

func TestGetUserInteractions(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	seedInteractions(t, db)
	ctx := context.Background()

	t.Run("NewestFirst", func(t *testing.T) {
		got, err := db.GetUserInteractions(ctx, models.InteractionFilter{UserID: "u1", Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, models.InteractionBooking, got[0].Type)
		assert.Equal(t, "r-1", got[0].ReservationID)
		assert.True(t, got[0].FromRecommendation)
		assert.Equal(t, models.InteractionView, got[3].Type)
		assert.True(t, got[0].CreatedAt.After(got[3].CreatedAt))
	})

	t.Run("ByType", func(t *testing.T) {
		got, err := db.GetUserInteractions(ctx, models.InteractionFilter{UserID: "u1", Type: models.InteractionView, Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "table-2", got[0].ResourceID)
	})

	t.Run("Limit", func(t *testing.T) {
		got, err := db.GetUserInteractions(ctx, models.InteractionFilter{UserID: "u1", Limit: 1})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("FromRecommendation", func(t *testing.T) {
		got, err := db.GetUserInteractions(ctx, models.InteractionFilter{
			UserID: "u2", Type: models.InteractionBooking, FromRecommendation: true, Limit: 10,
		})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		got, err := db.GetUserInteractions(ctx, models.InteractionFilter{UserID: "ghost", Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestCountInteractionsByType(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	seedInteractions(t, db)

	counts, err := db.CountInteractionsByType(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		models.InteractionView:     2,
		models.InteractionFavorite: 1,
		models.InteractionBooking:  1,
	}, counts)
}

func TestInteractionSummary(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	empty, err := db.InteractionSummary(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalInteractions)
	assert.Empty(t, empty.ByType)

	seedCatalog(t, db)
	seedInteractions(t, db)

	got, err := db.InteractionSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, got.TotalInteractions)
	assert.Equal(t, 2, got.UniqueUsers)
	assert.Equal(t, 1, got.RecommendedBookings)
	assert.Equal(t, 3, got.ByType[models.InteractionView])
	assert.Equal(t, 2, got.ByType[models.InteractionBooking])
}
