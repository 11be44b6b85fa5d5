package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hotelbook/internal/database"
	"hotelbook/internal/domain"
	"hotelbook/internal/models"
	"hotelbook/internal/recommend"
	"hotelbook/internal/service"
	"hotelbook/internal/validation"
)

// Services is everything the transports call into.
type Services struct {
	Availability    *service.AvailabilityService
	Recommendations *service.RecommendationService
	Interactions    *service.InteractionService
	Reservations    *service.ReservationService
	Resources       *service.ResourceService
	Catalog         domain.ResourceCatalog
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseTime accepts RFC3339, a minute precision local form and a bare date.
func parseTime(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fieldErr(field, "required", field+" is required")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fieldErr(field, "datetime", fmt.Sprintf("invalid %s; expected RFC3339 or YYYY-MM-DD", field))
}

func parseWindow(startRaw, endRaw string) (models.Interval, error) {
	start, err := parseTime("start", startRaw)
	if err != nil {
		return models.Interval{}, err
	}
	end, err := parseTime("end", endRaw)
	if err != nil {
		return models.Interval{}, err
	}
	iv := models.Interval{Start: start, End: end}
	if err := validation.ValidateInterval(iv); err != nil {
		return models.Interval{}, err
	}
	return iv, nil
}

func parseInt(field, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fieldErr(field, "numeric", field+" must be an integer")
	}
	return v, nil
}

func parseBool(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func fieldErr(field, tag, message string) error {
	return &validation.RequestError{Fields: []validation.FieldError{{Field: field, Tag: tag, Message: message}}}
}

// errorKind classifies a service error for both transports.
type errorKind int

const (
	kindInternal errorKind = iota
	kindInvalid
	kindNotFound
	kindConflict
	kindUnavailable
)

// unavailableMessage keeps the exhausted wording clients match on and hides
// infrastructure detail otherwise.
func unavailableMessage(err error) string {
	if errors.Is(err, recommend.ErrExhausted) {
		return recommend.ErrExhausted.Error()
	}
	return "service temporarily unavailable"
}

func classify(err error) errorKind {
	switch {
	case errors.Is(err, validation.ErrValidation), errors.Is(err, database.ErrInvalidWindow):
		return kindInvalid
	case errors.Is(err, database.ErrNotFound):
		return kindNotFound
	case errors.Is(err, database.ErrNotAvailable),
		errors.Is(err, database.ErrVersionConflict),
		errors.Is(err, database.ErrReservationClosed):
		return kindConflict
	case errors.Is(err, recommend.ErrExhausted),
		errors.Is(err, domain.ErrCacheUnavailable),
		errors.Is(err, service.ErrHistoryUnavailable):
		return kindUnavailable
	default:
		return kindInternal
	}
}
