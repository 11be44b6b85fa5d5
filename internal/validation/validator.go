// Package validation rejects malformed booking requests, recommendation
// contexts and interactions before they reach the engine.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"hotelbook/internal/models"

	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("validation failed")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// RequestError collects every field that failed. It matches ErrValidation
// with errors.Is.
type RequestError struct {
	Fields []FieldError
}

func (e *RequestError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e *RequestError) Is(target error) bool {
	return target == ErrValidation
}

func newFieldError(field, tag, message string) *RequestError {
	return &RequestError{Fields: []FieldError{{Field: field, Tag: tag, Message: message}}}
}

// Validator returns the shared validator. Field names in errors follow json tags.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s against its validate tags.
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	out := &RequestError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: translate(fe),
		})
	}
	return out
}

func translate(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", field, strings.ToLower(fe.Param()))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// ValidateBookingRequest rejects empty or inverted windows, non-positive party
// sizes and windows starting before now.
func ValidateBookingRequest(req models.BookingRequest, now time.Time) error {
	if err := Struct(req); err != nil {
		return err
	}
	if req.Start.Before(now) {
		return newFieldError("start", "future", "start must not be in the past")
	}
	return nil
}

// ValidateInterval rejects windows with end <= start.
func ValidateInterval(iv models.Interval) error {
	if iv.Start.IsZero() || iv.End.IsZero() {
		return newFieldError("start", "required", "start and end are required")
	}
	if !iv.End.After(iv.Start) {
		return newFieldError("end", "gtfield", "end must be after start")
	}
	return nil
}

// ValidateFutureInterval is ValidateInterval plus the not-in-the-past rule.
func ValidateFutureInterval(iv models.Interval, now time.Time) error {
	if err := ValidateInterval(iv); err != nil {
		return err
	}
	if iv.Start.Before(now) {
		return newFieldError("start", "future", "start must not be in the past")
	}
	return nil
}

// ValidateRecommendationContext checks caller supplied context values.
func ValidateRecommendationContext(rc models.RecommendationContext) error {
	return Struct(rc)
}

// ValidateInteraction checks an interaction before it is queued.
func ValidateInteraction(in models.Interaction) error {
	return Struct(in)
}

// ValidateResourceStatus accepts the three catalog status flags.
func ValidateResourceStatus(status string) error {
	switch status {
	case models.ResourceStatusAvailable, models.ResourceStatusBooked, models.ResourceStatusReserved:
		return nil
	}
	return newFieldError("status", "oneof",
		fmt.Sprintf("status must be one of: %s %s %s",
			models.ResourceStatusAvailable, models.ResourceStatusBooked, models.ResourceStatusReserved))
}

// ValidateInteractionFilter checks a history lookup.
func ValidateInteractionFilter(f models.InteractionFilter) error {
	return Struct(f)
}
