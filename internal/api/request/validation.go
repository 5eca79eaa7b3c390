package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrValidation marks a well-formed body whose fields failed validation.
var ErrValidation = errors.New("validation error")

// Decode reads a JSON body into v and validates its struct tags. Unknown
// fields are ignored; hosts send more than the module reads.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// RequireParam returns s, or an error naming the missing URL parameter.
func RequireParam(name, s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("missing required %s", name)
	}
	return s, nil
}
