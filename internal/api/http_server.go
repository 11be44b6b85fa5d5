package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hotelbook/internal/booking"
	"hotelbook/internal/config"
	"hotelbook/internal/export"
	"hotelbook/internal/logging"
	"hotelbook/internal/metrics"
	"hotelbook/internal/models"
	"hotelbook/internal/recommend"
	"hotelbook/internal/validation"
)

const maxBodyBytes = 1 << 20

// HTTPServer exposes the engine over JSON/HTTP.
type HTTPServer struct {
	cfg        config.APIConfig
	svc        Services
	server     *http.Server
	auth       *HTTPAuth
	userHeader string
	log        *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:        cfg,
		svc:        svc,
		auth:       NewHTTPAuth(cfg),
		userHeader: cfg.UserHeader,
		log:        logging.Component(logger, "http"),
	}
	if srv.userHeader == "" {
		srv.userHeader = userHeaderDefault
	}

	mux.HandleFunc("GET /healthz", srv.handleHealth)
	mux.HandleFunc("GET /api/v1/availability/{resource_id}", srv.handleAvailability)
	mux.HandleFunc("GET /api/v1/price", srv.handlePrice)
	mux.HandleFunc("GET /api/v1/resources", srv.handleResources)
	mux.HandleFunc("GET /api/v1/resources/{id}/price", srv.handleResourcePrice)
	mux.HandleFunc("GET /api/v1/recommendations", srv.handleRecommendations)
	mux.HandleFunc("POST /api/v1/interactions", srv.handleInteraction)
	mux.HandleFunc("GET /api/v1/users/{id}/interactions", srv.handleUserInteractions)
	mux.HandleFunc("GET /api/v1/users/{id}/recommended-bookings", srv.handleRecommendedBookings)
	mux.HandleFunc("POST /api/v1/reservations", srv.handleCreateReservation)
	mux.HandleFunc("GET /api/v1/reservations/{id}", srv.handleGetReservation)
	mux.HandleFunc("PATCH /api/v1/reservations/{id}", srv.handleRescheduleReservation)
	mux.HandleFunc("DELETE /api/v1/reservations/{id}", srv.handleCancelReservation)
	mux.HandleFunc("POST /api/v1/admin/recommendations/refresh", srv.handleRefresh)
	mux.HandleFunc("GET /api/v1/admin/reports/occupancy", srv.handleOccupancyReport)
	mux.HandleFunc("GET /api/v1/admin/analytics/interactions", srv.handleInteractionAnalytics)
	mux.HandleFunc("PATCH /api/v1/admin/resources/{id}/status", srv.handleResourceStatus)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler returns the root handler, middleware included.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	resourceID := strings.TrimSpace(r.PathValue("resource_id"))
	if resourceID == "" {
		writeError(w, http.StatusBadRequest, "resource_id is required")
		return
	}

	q := r.URL.Query()
	window, err := parseWindow(q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	verdict := s.svc.Availability.CheckAvailability(r.Context(), resourceID, window, strings.TrimSpace(q.Get("exclude_id")))
	writeJSON(w, http.StatusOK, verdict)
}

func (s *HTTPServer) handlePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := parseWindow(q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	rate, err := parseRate(q.Get("rate"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking.ComputePrice(rate, window.Start, window.End))
}

func (s *HTTPServer) handleResourcePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := parseWindow(q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	res, err := s.svc.Catalog.GetResource(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"resource_id": res.ID,
		"price":       booking.ComputePrice(res.BasePrice, window.Start, window.End),
	})
}

func (s *HTTPServer) handleResources(w http.ResponseWriter, r *http.Request) {
	kind := strings.TrimSpace(r.URL.Query().Get("kind"))
	if kind != "" && kind != models.KindRoom && kind != models.KindTable {
		writeError(w, http.StatusBadRequest, "kind must be one of: room table")
		return
	}

	resources, err := s.svc.Catalog.FetchAllResources(r.Context(), kind)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if resources == nil {
		resources = []models.Resource{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": resources})
}

func (s *HTTPServer) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	partySize, err := parseInt("party_size", q.Get("party_size"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	limit, err := parseInt("limit", q.Get("limit"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	userID := strings.TrimSpace(r.Header.Get(s.userHeader))
	req := recommend.Request{
		Context: models.RecommendationContext{
			Kind:        strings.TrimSpace(q.Get("kind")),
			Occasion:    strings.TrimSpace(q.Get("occasion")),
			PartySize:   partySize,
			TimeSlot:    strings.TrimSpace(q.Get("time_slot")),
			ResultCount: limit,
		},
		UserID:        userID,
		Authenticated: userID != "",
		UseCache:      parseBool(q.Get("use_cache"), true),
	}

	result, err := s.svc.Recommendations.Recommend(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleInteraction always answers 202; telemetry problems are the server's
// concern, never the guest's.
func (s *HTTPServer) handleInteraction(w http.ResponseWriter, r *http.Request) {
	var in models.Interaction
	if err := decodeBody(r, &in); err != nil {
		s.log.Debug().Err(err).Msg("interaction body rejected")
		writeJSON(w, http.StatusAccepted, map[string]any{"accepted": false})
		return
	}
	if in.UserID == "" {
		in.UserID = strings.TrimSpace(r.Header.Get(s.userHeader))
	}

	rec, err := s.svc.Interactions.Record(r.Context(), in)
	if err != nil {
		s.log.Debug().Err(err).Msg("interaction rejected")
		writeJSON(w, http.StatusAccepted, map[string]any{"accepted": false})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true, "id": rec.ID})
}

func (s *HTTPServer) handleUserInteractions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseInt("limit", q.Get("limit"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	history, err := s.svc.Interactions.History(r.Context(), strings.TrimSpace(r.PathValue("id")),
		strings.TrimSpace(q.Get("type")), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *HTTPServer) handleRecommendedBookings(w http.ResponseWriter, r *http.Request) {
	limit, err := parseInt("limit", r.URL.Query().Get("limit"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	userID := strings.TrimSpace(r.PathValue("id"))
	bookings, err := s.svc.Interactions.RecommendedBookings(r.Context(), userID, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "bookings": bookings, "total": len(bookings)})
}

type reservationRequest struct {
	models.BookingRequest
	GuestName string `json:"guest_name"`
}

func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var body reservationRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	userID := strings.TrimSpace(r.Header.Get(s.userHeader))
	res, err := s.svc.Reservations.CreateReservation(r.Context(), body.BookingRequest, userID, body.GuestName)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Reservations.GetReservation(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleRescheduleReservation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Version int64     `json:"version"`
		Start   time.Time `json:"start"`
		End     time.Time `json:"end"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.svc.Reservations.Reschedule(r.Context(), r.PathValue("id"), body.Version,
		models.Interval{Start: body.Start, End: body.End})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reservations.Cancel(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	reload := parseBool(r.URL.Query().Get("reload_model"), false)
	requestedBy := strings.TrimSpace(r.Header.Get(s.userHeader))

	res, err := s.svc.Recommendations.Refresh(r.Context(), reload, requestedBy)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleInteractionAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.svc.Interactions.Analytics(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

func (s *HTTPServer) handleResourceStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.svc.Resources.SetStatus(r.Context(), r.PathValue("id"), strings.TrimSpace(body.Status))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleOccupancyReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := parseWindow(q.Get("from"), q.Get("to"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	kind := strings.TrimSpace(q.Get("kind"))

	resources, err := s.svc.Catalog.FetchAllResources(r.Context(), kind)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	reservations, err := s.svc.Reservations.GetReservationsInRange(r.Context(), kind, window)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteOccupancyReport(r.Context(), &buf, resources, reservations, window.Start, window.End); err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(window.Start, window.End)))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Error().Err(err).Msg("write occupancy report")
	}
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch classify(err) {
	case kindInvalid:
		var reqErr *validation.RequestError
		if errors.As(err, &reqErr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "fields": reqErr.Fields})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
	case kindNotFound:
		writeError(w, http.StatusNotFound, "not found")
	case kindConflict:
		writeError(w, http.StatusConflict, err.Error())
	case kindUnavailable:
		writeError(w, http.StatusServiceUnavailable, unavailableMessage(err))
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseRate(raw string) (float64, error) {
	var rate float64
	if raw = strings.TrimSpace(raw); raw == "" {
		return 0, fieldErr("rate", "required", "rate is required")
	}
	if _, err := fmt.Sscanf(raw, "%g", &rate); err != nil {
		return 0, fieldErr("rate", "numeric", "rate must be a number")
	}
	if rate < 0 {
		return 0, fieldErr("rate", "gte", "rate must not be negative")
	}
	return rate, nil
}

func decodeBody(r *http.Request, out any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	return decoder.Decode(out)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := strings.TrimSpace(r.Header.Get(requestIDMetadataKey))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDMetadataKey, requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint)

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
