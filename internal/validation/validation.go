// Package validation provides struct-tag validation for trip requests,
// catalog entities and configuration.
package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/yourorg/mandi-compare/internal/model"
)

// Validator wraps go-playground/validator with readable error messages
type Validator struct {
	validate *validator.Validate
}

// New creates a validator instance. It is safe for concurrent use.
func New() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

var std = New()

// Struct validates any struct using its validate tags
func (v *Validator) Struct(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// Struct validates i with the package level validator
func Struct(i interface{}) error {
	return std.Struct(i)
}

// ValidateTrip checks that every field of the request is present and that the
// unit is one of the supported tags. Failures wrap model.ErrInvalidInput.
// Quantity parsing is left to the unit normalizer.
func ValidateTrip(req model.TripRequest) error {
	req.Crop = strings.TrimSpace(req.Crop)
	req.Quantity = strings.TrimSpace(req.Quantity)
	req.Vehicle = strings.TrimSpace(req.Vehicle)
	req.Location = strings.TrimSpace(req.Location)

	if err := std.Struct(req); err != nil {
		logrus.WithFields(logrus.Fields{
			"crop":     req.Crop,
			"vehicle":  req.Vehicle,
			"location": req.Location,
			"unit":     req.Unit,
		}).Debug("Rejected trip request")
		return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	return nil
}

// formatValidationError converts validator errors into readable messages
func formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	messages := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		messages = append(messages, fmt.Sprintf(
			"field '%s' failed validation: %s (value: '%v')",
			e.Namespace(),
			e.Tag(),
			e.Value(),
		))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(messages, "; "))
}
