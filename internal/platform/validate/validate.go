// Package validate binds and validates request bodies, converting tag
// failures into the per-field validation errors the API returns.
package validate

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/ChristChad-mv/careflow-sub001/internal/platform/apperr"
)

var v = validator.New(validator.WithRequiredStructEnabled())

// Bind decodes the request body into dst and validates it. Unknown fields in
// the body are ignored; only allow-listed struct fields are ever populated,
// so a request cannot smuggle values into columns the endpoint does not
// accept.
func Bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Validation(map[string]string{"body": "malformed request body"})
	}
	return Struct(dst)
}

// Struct validates dst against its validate tags.
func Struct(dst interface{}) error {
	err := v.Struct(dst)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Validation(map[string]string{"body": "invalid request"})
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = message(fe)
	}
	return apperr.Validation(fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}
