package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "navette/pkg/errors"
	"navette/pkg/model"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[a-zA-Z]{2,}$`)

const MinPasswordLength = 8

type DriverValidator struct {
	validate *validator.Validate
}

func NewDriverValidator() (*DriverValidator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	err := v.RegisterValidation("simple_email", func(fl validator.FieldLevel) bool {
		return emailRegex.MatchString(fl.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("registering simple_email validation: %w", err)
	}

	return &DriverValidator{validate: v}, nil
}

func (dv *DriverValidator) Validate(driver *model.Driver) error {
	return dv.run(driver, "Driver validation failed")
}

func (dv *DriverValidator) ValidateUpdate(update *model.DriverUpdate) error {
	return dv.run(update, "Driver update validation failed")
}

func (dv *DriverValidator) run(subject any, message string) error {
	err := dv.validate.Struct(subject)
	if err == nil {
		return nil
	}

	if _, ok := err.(*validator.InvalidValidationError); ok {
		return apperrors.Internal("Driver validation failed unexpectedly", err)
	}

	details := map[string]any{}
	for _, fieldErr := range err.(validator.ValidationErrors) {
		details[fieldPath(fieldErr)] = fmt.Sprintf("failed %s validation", fieldErr.Tag())
	}

	return apperrors.Validation(message, details)
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		ns = ns[idx+1:]
	}
	return ns
}
