// Package request holds API request bodies and their validation rules.
package request

import (
	"errors"
	"fmt"
	"strings"

	"titan/internal/errs"

	"github.com/go-playground/validator/v10"
)

// Download is the body of POST /v1/downloads. Scheme-less URLs are accepted here and fixed up
// by the service, so the url tag is not used.
type Download struct {
	URL     string `json:"url"     validate:"required,max=2048"`
	Type    string `json:"type"    validate:"required,max=32"`
	Quality string `json:"quality" validate:"omitempty,max=64"`
}

// Validate checks the body against its tags.
func (d *Download) Validate(v *validator.Validate) error {
	if err := v.Struct(d); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrInvalidRequestBody, FormatValidationErrors(err))
	}

	return nil
}

// FormatValidationErrors renders validator errors as "field: tag" pairs.
func FormatValidationErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		parts = append(parts, strings.ToLower(e.Field())+": "+e.Tag())
	}

	return strings.Join(parts, ", ")
}
