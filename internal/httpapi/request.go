// Package httpapi holds the request plumbing shared by the HTTP ports:
// JSON binding with struct validation and client address extraction.
package httpapi

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/zonixt/eauction/internal/domain"
)

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Bind decodes the JSON body of r into v and validates its `validate` tags.
// Every failure wraps domain.ErrInvalidInput.
func Bind(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", domain.ErrInvalidInput)
	}
	if err := validate.StructCtx(r.Context(), v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fieldMessage(verrs[0]))
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", field)
	case "max":
		return fmt.Sprintf("field '%s' must not exceed %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s characters", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("field '%s' must be numeric", field)
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("field '%s' failed on the '%s' rule", field, fe.Tag())
	}
}

// ClientIP returns the caller's address without port. The RealIP middleware
// has already folded X-Forwarded-For and X-Real-IP into RemoteAddr.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
