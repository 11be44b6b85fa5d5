package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hotelbook/internal/config"
	"hotelbook/internal/database"
	"hotelbook/internal/domain"
	"hotelbook/internal/events"
	"hotelbook/internal/models"
	"hotelbook/internal/recommend"
	"hotelbook/internal/repository"
	"hotelbook/internal/service"
)

// captureRecorder keeps every interaction and, with a store, also saves it.
type captureRecorder struct {
	mu    sync.Mutex
	got   []models.Interaction
	store *database.DB
}

func (c *captureRecorder) RecordInteraction(ctx context.Context, in models.Interaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, in)
	if c.store != nil {
		_ = c.store.SaveInteraction(ctx, &in)
	}
}

func (c *captureRecorder) all() []models.Interaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Interaction(nil), c.got...)
}

type testEnv struct {
	db       *database.DB
	svc      Services
	recorder *captureRecorder
	cache    *repository.MemoryRecommendationCache
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewDB(":memory:", nopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.SeedResources(context.Background(), []models.Resource{
		{ID: "room-101", Kind: models.KindRoom, Name: "Deluxe 101", Capacity: 2, BasePrice: 100,
			Ambiance: models.AmbianceRomantic, AverageRating: models.Float64(4.5), Status: models.ResourceStatusAvailable},
		{ID: "room-202", Kind: models.KindRoom, Name: "Family 202", Capacity: 4, BasePrice: 150,
			Status: models.ResourceStatusAvailable},
		{ID: "table-1", Kind: models.KindTable, Name: "Window 1", Capacity: 2, BasePrice: 20,
			Status: models.ResourceStatusAvailable},
	}))

	bus := events.NewEventBus()
	recorder := &captureRecorder{store: db}
	cache := repository.NewMemoryRecommendationCache()
	chain := recommend.NewChain(nil, db, db, cache, recommend.Config{StepTimeout: time.Second}, nopLogger())

	interactions := service.NewInteractionService(recorder, db, bus, nopLogger())
	interactions.SubscribeBookings(bus)

	return &testEnv{
		db:       db,
		recorder: recorder,
		cache:    cache,
		svc: Services{
			Availability:    service.NewAvailabilityService(db, db, time.Second, nopLogger()),
			Recommendations: service.NewRecommendationService(chain, cache, nil, bus, nopLogger()),
			Interactions:    interactions,
			Reservations:    service.NewReservationService(db, db, bus, nopLogger()),
			Resources:       service.NewResourceService(db, db, cache, nopLogger()),
			Catalog:         db,
		},
	}
}

func newTestHTTPServer(t *testing.T, cfg config.APIConfig) (*testEnv, *httptest.Server) {
	t.Helper()
	env := newTestEnv(t)
	srv := NewHTTPServer(cfg, env.svc, nopLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return env, ts
}

// futureDay is midnight UTC d days from today.
func futureDay(d int) time.Time {
	return time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, d)
}

func doJSON(t *testing.T, method, target string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func createReservation(t *testing.T, baseURL, resourceID string, start, end time.Time) models.Reservation {
	t.Helper()
	resp := doJSON(t, http.MethodPost, baseURL+"/api/v1/reservations", map[string]any{
		"resource_id": resourceID,
		"start":       start,
		"end":         end,
		"party_size":  2,
		"guest_name":  "Ann",
	}, map[string]string{"x-user-id": "u-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var r models.Reservation
	decode(t, resp, &r)
	return r
}

func TestHealthz(t *testing.T) {
	_, ts := newTestHTTPServer(t, config.APIConfig{})

	resp := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestIDMetadataKey))
}

func TestAvailability(t *testing.T) {
	_, ts := newTestHTTPServer(t, config.APIConfig{})
	existing := createReservation(t, ts.URL, "room-101", futureDay(10), futureDay(12))

	check := func(start, end time.Time, exclude string) models.AvailabilityVerdict {
		q := url.Values{}
		q.Set("start", start.Format(time.RFC3339))
		q.Set("end", end.Format(time.RFC3339))
		if exclude != "" {
			q.Set("exclude_id", exclude)
		}
		resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/availability/room-101?"+q.Encode(), nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var v models.AvailabilityVerdict
		decode(t, resp, &v)
		return v
	}

	t.Run("Overlap", func(t *testing.T) {
		v := check(futureDay(11), futureDay(13), "")
		assert.False(t, v.IsAvailable)
		assert.Contains(t, v.Message, "Deluxe 101 is already booked")
	})

	t.Run("TouchingEdges", func(t *testing.T) {
		v := check(futureDay(12), futureDay(14), "")
		assert.True(t, v.IsAvailable)
		assert.Equal(t, "Deluxe 101 is available for your selected time.", v.Message)
	})

	t.Run("ExcludeOwnReservation", func(t *testing.T) {
		v := check(futureDay(11), futureDay(13), existing.ID)
		assert.True(t, v.IsAvailable)
	})
}

func TestAvailability_BadWindow(t *testing.T) {
	_, ts := newTestHTTPServer(t, config.APIConfig{})

	cases := map[string]string{
		"MissingStart":   "end=2026-12-01",
		"BadFormat":      "start=tomorrow&end=2026-12-01",
		"EndBeforeStart": "start=2026-12-03&end=2026-12-01",
	}
	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/availability/room-101?"+query, nil, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body struct {
				Error  string `json:"error"`
				Fields []struct {
					Field string `json:"field"`
				} `json:"fields"`
			}
			decode(t, resp, &body)
			assert.NotEmpty(t, body.Error)
			assert.NotEmpty(t, body.Fields)
		})
	}
}

func TestPrice(t *testing.T) {
	_, ts := newTestHTTPServer(t, config.APIConfig{})

	t.Run("ByRate", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet,
			ts.URL+"/api/v1/price?rate=100&start=2026-12-01T14:00:00Z&end=2026-12-03T11:00:00Z", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var p models.PriceBreakdown
		decode(t, resp, &p)
		assert.Equal(t, 2, p.Nights)
		assert.InDelta(t, 200.0, p.Base, 1e-9)
		assert.InDelta(t, 20.0, p.Tax, 1e-9)
		assert.InDelta(t, 220.0, p.Total, 1e-9)
	})

	t.Run("ByResource", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet,
			ts.URL+"/api/v1/resources/room-202/price?start=2026-12-01&end=2026-12-02", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			ResourceID string                `json:"resource_id"`
			Price      models.PriceBreakdown `json:"price"`
		}
		decode(t, resp, &body)
		assert.Equal(t, "room-202", body.ResourceID)
		assert.InDelta(t, 165.0, body.Price.Total, 1e-9)
	})

	t.Run("UnknownResource", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet,
			ts.URL+"/api/v1/resources/nope/price?start=2026-12-01&end=2026-12-02", nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("NegativeRate", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet,
			ts.URL+"/api/v1/price?rate=-1&start=2026-12-01&end=2026-12-02", nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestResources(t *testing.T) {
	_, ts := newTestHTTPServer(t, config.APIConfig{})

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/resources?kind=room", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Resources []models.Resource `json:"resources"`
	}
	decode(t, resp, &body)
	require.Len(t, body.Resources, 2)
	for _, r := range body.Resources {
		assert.Equal(t, models.KindRoom, r.Kind)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/resources?kind=spa", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRecommendations(t *testing.T) {
	env, ts := newTestHTTPServer(t, config.APIConfig{})

	resp := doJSON(t, http.MethodGet,
		ts.URL+"/api/v1/recommendations?kind=room&occasion=anniversary&party_size=2&limit=5", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.RecommendationResult
	decode(t, resp, &result)
	require.NotEmpty(t, result.Recommendations)
	assert.True(t, result.FallbackMode)
	assert.False(t, result.MLModelActive)
	assert.False(t, result.Cached)
	assert.Equal(t, 1, result.Recommendations[0].Rank)
	for _, r := range result.Recommendations {
		assert.Equal(t, models.KindRoom, r.Resource.Kind)
	}
	assert.Equal(t, 1, env.cache.Len())

	resp = doJSON(t, http.MethodGet,
		ts.URL+"/api/v1/recommendations?kind=room&occasion=anniversary&party_size=2&limit=5", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &result)
	assert.True(t, result.Cached)
}

func TestRecommendations_InvalidContext(t *testing.T) {
	_, ts := newTestHTTPServer(t, config.APIConfig{})

	for _, query := range []string{"kind=spa", "limit=500", "party_size=abc"} {
		resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/recommendations?"+query, nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}

func TestRecommendations_Exhausted(t *testing.T) {
	env := newTestEnv(t)
	chain := recommend.NewChain(nil, nil, nil, nil, recommend.Config{}, nopLogger())
	env.svc.Recommendations = service.NewRecommendationService(chain, nil, nil, nil, nopLogger())

	ts := httptest.NewServer(NewHTTPServer(config.APIConfig{}, env.svc, nopLogger()).Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/recommendations", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "no recommendations available right now", body["error"])
}

func TestInteractions(t *testing.T) {
	env, ts := newTestHTTPServer(t, config.APIConfig{})

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/interactions", map[string]any{
		"resource_id":      "room-101",
		"interaction_type": "view",
	}, map[string]string{"x-user-id": "u-7"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, true, body["accepted"])

	got := env.recorder.all()
	require.Len(t, got, 1)
	assert.Equal(t, "u-7", got[0].UserID)
	assert.Equal(t, models.InteractionView, got[0].Type)

	t.Run("InvalidStillAccepted", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/interactions", map[string]any{
			"resource_id":      "room-101",
			"interaction_type": "teleport",
		}, nil)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		var body map[string]any
		decode(t, resp, &body)
		assert.Equal(t, false, body["accepted"])
		assert.Len(t, env.recorder.all(), 1)
	})
}

func TestReservationsLifecycle(t *testing.T) {
	env, ts := newTestHTTPServer(t, config.APIConfig{})

	r := createReservation(t, ts.URL, "room-101", futureDay(20), futureDay(22))
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, int64(1), r.Version)
	assert.InDelta(t, 220.0, r.TotalPrice, 1e-9)

	booked := env.recorder.all()
	require.Len(t, booked, 1)
	assert.Equal(t, models.InteractionBooking, booked[0].Type)

	t.Run("ConflictingCreate", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/reservations", map[string]any{
			"resource_id": "room-101",
			"start":       futureDay(21),
			"end":         futureDay(23),
			"party_size":  2,
		}, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("Get", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/reservations/"+r.ID, nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got models.Reservation
		decode(t, resp, &got)
		assert.Equal(t, r.ID, got.ID)
	})

	t.Run("RescheduleStaleVersion", func(t *testing.T) {
		resp := doJSON(t, http.MethodPatch, ts.URL+"/api/v1/reservations/"+r.ID, map[string]any{
			"version": 7,
			"start":   futureDay(30),
			"end":     futureDay(31),
		}, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("Reschedule", func(t *testing.T) {
		resp := doJSON(t, http.MethodPatch, ts.URL+"/api/v1/reservations/"+r.ID, map[string]any{
			"version": r.Version,
			"start":   futureDay(21),
			"end":     futureDay(24),
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got models.Reservation
		decode(t, resp, &got)
		assert.Equal(t, int64(2), got.Version)
		assert.True(t, got.End.Equal(futureDay(24)))
	})

	t.Run("Cancel", func(t *testing.T) {
		resp := doJSON(t, http.MethodDelete, ts.URL+"/api/v1/reservations/"+r.ID, nil, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/reservations/"+r.ID, nil, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("Missing", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/reservations/nope", nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCreateReservation_Validation(t *testing.T) {
	_, ts := newTestHTTPServer(t, config.APIConfig{})

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/reservations", map[string]any{
		"resource_id": "room-101",
		"start":       futureDay(-3),
		"end":         futureDay(-1),
		"party_size":  2,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/reservations", bytes.NewBufferString("{"))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestAdminRefresh(t *testing.T) {
	env, ts := newTestHTTPServer(t, config.APIConfig{})

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/recommendations?kind=table", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, env.cache.Len())

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/admin/recommendations/refresh?reload_model=true", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body service.RefreshResult
	decode(t, resp, &body)
	assert.True(t, body.CacheCleared)
	assert.False(t, body.ModelReloaded)
	assert.Equal(t, 0, env.cache.Len())
}

type unreachableCache struct {
	*repository.MemoryRecommendationCache
}

func (unreachableCache) InvalidateAll(context.Context) error {
	return domain.ErrCacheUnavailable
}

func TestAdminRefresh_CacheUnavailable(t *testing.T) {
	env := newTestEnv(t)
	cache := unreachableCache{repository.NewMemoryRecommendationCache()}
	chain := recommend.NewChain(nil, env.db, env.db, cache, recommend.Config{}, nopLogger())
	env.svc.Recommendations = service.NewRecommendationService(chain, cache, nil, nil, nopLogger())

	ts := httptest.NewServer(NewHTTPServer(config.APIConfig{}, env.svc, nopLogger()).Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/admin/recommendations/refresh", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "service temporarily unavailable", body["error"])
}

func TestUserInteractions(t *testing.T) {
	env, ts := newTestHTTPServer(t, config.APIConfig{})
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i, typ := range []string{models.InteractionView, models.InteractionFavorite, models.InteractionView} {
		require.NoError(t, env.db.SaveInteraction(context.Background(), &models.Interaction{
			UserID: "u-9", ResourceID: "table-1", Type: typ, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/users/u-9/interactions?limit=2", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var h models.InteractionHistory
	decode(t, resp, &h)
	assert.Equal(t, "u-9", h.UserID)
	require.Len(t, h.Interactions, 2)
	assert.Equal(t, 2, h.Total)
	assert.Equal(t, models.InteractionView, h.Interactions[0].Type)
	assert.Equal(t, map[string]int{models.InteractionView: 2, models.InteractionFavorite: 1}, h.Summary)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/users/u-9/interactions?type=favorite", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &h)
	require.Len(t, h.Interactions, 1)

	for _, query := range []string{"type=poke", "limit=-1", "limit=many"} {
		resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/users/u-9/interactions?"+query, nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}

func TestRecommendedBookings(t *testing.T) {
	_, ts := newTestHTTPServer(t, config.APIConfig{})
	headers := map[string]string{"x-user-id": "u-5"}

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/reservations", map[string]any{
		"resource_id":         "table-1",
		"start":               futureDay(3),
		"end":                 futureDay(3).Add(2 * time.Hour),
		"party_size":          2,
		"from_recommendation": true,
	}, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var recommended models.Reservation
	decode(t, resp, &recommended)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/reservations", map[string]any{
		"resource_id": "room-202",
		"start":       futureDay(3),
		"end":         futureDay(4),
		"party_size":  2,
	}, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/users/u-5/recommended-bookings", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		UserID   string               `json:"user_id"`
		Bookings []models.Interaction `json:"bookings"`
		Total    int                  `json:"total"`
	}
	decode(t, resp, &body)
	require.Len(t, body.Bookings, 1)
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, recommended.ID, body.Bookings[0].ReservationID)
	assert.Equal(t, "table-1", body.Bookings[0].ResourceID)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/admin/analytics/interactions", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var analytics models.InteractionAnalytics
	decode(t, resp, &analytics)
	assert.Equal(t, 2, analytics.TotalInteractions)
	assert.Equal(t, 1, analytics.UniqueUsers)
	assert.Equal(t, 1, analytics.RecommendedBookings)
	assert.Equal(t, 2, analytics.ByType[models.InteractionBooking])
}

func TestAdminResourceStatus(t *testing.T) {
	env := newTestEnv(t)
	chain := recommend.NewChain(nil, nil, env.db, env.cache, recommend.Config{StepTimeout: time.Second}, nopLogger())
	env.svc.Recommendations = service.NewRecommendationService(chain, env.cache, nil, nil, nopLogger())

	ts := httptest.NewServer(NewHTTPServer(config.APIConfig{}, env.svc, nopLogger()).Handler())
	t.Cleanup(ts.Close)

	recommendRooms := func() []models.RankedRecommendation {
		resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/recommendations?kind=room", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var result models.RecommendationResult
		decode(t, resp, &result)
		return result.Recommendations
	}

	require.Len(t, recommendRooms(), 2)

	resp := doJSON(t, http.MethodPatch, ts.URL+"/api/v1/admin/resources/room-101/status",
		map[string]any{"status": models.ResourceStatusBooked}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res models.Resource
	decode(t, resp, &res)
	assert.Equal(t, models.ResourceStatusBooked, res.Status)

	recs := recommendRooms()
	require.Len(t, recs, 1)
	assert.Equal(t, "room-202", recs[0].ResourceID)

	t.Run("UnknownStatus", func(t *testing.T) {
		resp := doJSON(t, http.MethodPatch, ts.URL+"/api/v1/admin/resources/room-101/status",
			map[string]any{"status": "Closed"}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("UnknownResource", func(t *testing.T) {
		resp := doJSON(t, http.MethodPatch, ts.URL+"/api/v1/admin/resources/ghost/status",
			map[string]any{"status": models.ResourceStatusAvailable}, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestOccupancyReport(t *testing.T) {
	_, ts := newTestHTTPServer(t, config.APIConfig{})
	createReservation(t, ts.URL, "room-101", futureDay(5), futureDay(7))

	q := url.Values{}
	q.Set("kind", "room")
	q.Set("from", futureDay(1).Format("2006-01-02"))
	q.Set("to", futureDay(11).Format("2006-01-02"))
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/admin/reports/occupancy?"+q.Encode(), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "occupancy_")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Occupancy")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Deluxe 101", rows[2][0])
	assert.Equal(t, "2", rows[2][3])
}

func TestHTTPAuth(t *testing.T) {
	cfg := config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "front", Extra: "front-extra", Permissions: []string{permReadAvailability}},
				{Key: "ops", Extra: "ops-extra", Permissions: []string{permAdmin}},
			},
		},
	}
	_, ts := newTestHTTPServer(t, cfg)
	priceURL := ts.URL + "/api/v1/price?rate=10&start=2026-12-01&end=2026-12-02"

	tests := []struct {
		name    string
		target  string
		method  string
		headers map[string]string
		want    int
	}{
		{"HealthzOpen", ts.URL + "/healthz", http.MethodGet, nil, http.StatusOK},
		{"Missing", priceURL, http.MethodGet, nil, http.StatusUnauthorized},
		{"BadExtra", priceURL, http.MethodGet,
			map[string]string{"x-api-key": "front", "x-api-extra": "nope"}, http.StatusUnauthorized},
		{"Allowed", priceURL, http.MethodGet,
			map[string]string{"x-api-key": "front", "x-api-extra": "front-extra"}, http.StatusOK},
		{"Forbidden", ts.URL + "/api/v1/admin/recommendations/refresh", http.MethodPost,
			map[string]string{"x-api-key": "front", "x-api-extra": "front-extra"}, http.StatusForbidden},
		{"Admin", ts.URL + "/api/v1/admin/recommendations/refresh", http.MethodPost,
			map[string]string{"x-api-key": "ops", "x-api-extra": "ops-extra"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, tt.method, tt.target, nil, tt.headers)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHTTPRateLimit(t *testing.T) {
	cfg := config.APIConfig{
		Enabled:   true,
		RateLimit: config.APIRateLimitConfig{RPS: 1, Burst: 1},
	}
	_, ts := newTestHTTPServer(t, cfg)
	target := ts.URL + "/api/v1/resources"
	headers := map[string]string{"x-api-key": "client-a"}

	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, target, nil, headers).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, doJSON(t, http.MethodGet, target, nil, headers).StatusCode)

	other := map[string]string{"x-api-key": "client-b"}
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, target, nil, other).StatusCode)
}

func TestHTTPServer_StartStop(t *testing.T) {
	env := newTestEnv(t)
	srv := NewHTTPServer(config.APIConfig{HTTP: config.APIHTTPConfig{Port: 0}}, env.svc, nopLogger())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}
