package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "navette/pkg/errors"
	"navette/pkg/model"
)

var (
	hhmmRegex       = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	postalCodeRegex = regexp.MustCompile(`^\d{4,5}$`)
	emailRegex      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[a-zA-Z]{2,}$`)
)

// IsHHMM reports whether s is a 24-hour HH:MM time.
func IsHHMM(s string) bool {
	return hhmmRegex.MatchString(s)
}

type BookingValidator struct {
	validate *validator.Validate
}

func NewBookingValidator() (*BookingValidator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.RegisterValidation("hhmm", validateHHMM); err != nil {
		return nil, fmt.Errorf("registering hhmm validation: %w", err)
	}
	if err := v.RegisterValidation("postal_code", validatePostalCode); err != nil {
		return nil, fmt.Errorf("registering postal_code validation: %w", err)
	}
	if err := v.RegisterValidation("simple_email", validateSimpleEmail); err != nil {
		return nil, fmt.Errorf("registering simple_email validation: %w", err)
	}

	return &BookingValidator{validate: v}, nil
}

func validateHHMM(fl validator.FieldLevel) bool {
	return hhmmRegex.MatchString(fl.Field().String())
}

func validatePostalCode(fl validator.FieldLevel) bool {
	return postalCodeRegex.MatchString(fl.Field().String())
}

func validateSimpleEmail(fl validator.FieldLevel) bool {
	return emailRegex.MatchString(fl.Field().String())
}

// Validate runs tag validation plus the journey structural rules: an
// outbound or roundTrip journey must carry a complete outbound leg,
// and an inbound or roundTrip journey a complete inbound leg.
func (bv *BookingValidator) Validate(booking *model.Booking) error {
	details := map[string]any{}

	if err := bv.validate.Struct(booking); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); ok {
			return apperrors.Internal("Booking validation failed unexpectedly", err)
		}

		for _, fieldErr := range err.(validator.ValidationErrors) {
			details[fieldPath(fieldErr)] = fmt.Sprintf("failed %s validation", fieldErr.Tag())
		}
	}

	bv.validateJourney(&booking.Journey, details)

	if len(details) > 0 {
		return apperrors.Validation("Booking validation failed", details)
	}

	return nil
}

func (bv *BookingValidator) validateJourney(j *model.Journey, details map[string]any) {
	needsOutbound := j.Type == model.JourneyOutbound || j.Type == model.JourneyRoundTrip
	needsInbound := j.Type == model.JourneyInbound || j.Type == model.JourneyRoundTrip

	if needsOutbound {
		validateLeg(j.Outbound, "journey.outbound", details)
	}
	if needsInbound {
		validateLeg(j.Inbound, "journey.inbound", details)
	}
}

func validateLeg(leg *model.Leg, prefix string, details map[string]any) {
	if leg == nil {
		details[prefix] = "leg is required for this journey type"
		return
	}
	if leg.Date == nil {
		details[prefix+".date"] = "date is required"
	}
	if leg.Time == "" {
		details[prefix+".time"] = "time is required"
	}
	if leg.Airport == "" {
		details[prefix+".airport"] = "airport is required"
	}
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		ns = ns[idx+1:]
	}
	return ns
}
