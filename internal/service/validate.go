package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ValidationError reports malformed input, detected before the store is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct's validate tags and returns the first
// violation as a *ValidationError.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Message: describe(fe)}
	}
	return fmt.Errorf("validate: %w", err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "alphanum":
		return "must contain only letters and digits"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	}
	return "is invalid"
}

func requireUUID(field, value string) error {
	if value == "" {
		return invalid(field, "is required")
	}
	if _, err := uuid.Parse(value); err != nil {
		return invalid(field, "must be a valid UUID")
	}
	return nil
}

func optionalUUID(field, value string) error {
	if value == "" {
		return nil
	}
	return requireUUID(field, value)
}

// normalizePage applies the default page size and rejects out-of-range values.
func normalizePage(limit, offset int) (int, int, error) {
	if limit < 0 || limit > maxPageSize {
		return 0, 0, invalid("limit", "must be between 1 and %d", maxPageSize)
	}
	if offset < 0 {
		return 0, 0, invalid("offset", "must not be negative")
	}
	if limit == 0 {
		limit = defaultPageSize
	}
	return limit, offset, nil
}

func normalizeEnrollmentFilter(f model.EnrollmentFilter) (model.EnrollmentFilter, error) {
	if err := optionalUUID("student_id", f.StudentID); err != nil {
		return f, err
	}
	if err := optionalUUID("workshop_id", f.WorkshopID); err != nil {
		return f, err
	}
	if f.State != "" && !f.State.Valid() {
		return f, invalid("state", "must be one of active, cancelled, inactive")
	}
	f.Search = strings.TrimSpace(f.Search)
	if len(f.Search) > 100 {
		return f, invalid("q", "must be at most 100 characters")
	}

	var err error
	f.Limit, f.Offset, err = normalizePage(f.Limit, f.Offset)
	return f, err
}
