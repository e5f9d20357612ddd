package httpserver

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

// ValidationError is returned by the echo Validator when a request body fails its
// `validate` struct tags. It renders as 400 VALIDATION_FAILED.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return "validation failed on " + e.Field + ": " + e.Message
}

// HTTPStatus implements HTTPError.
func (e *ValidationError) HTTPStatus() int { return http.StatusBadRequest }

// HTTPCode implements HTTPError.
func (e *ValidationError) HTTPCode() string { return "VALIDATION_FAILED" }

// HTTPMessage implements HTTPError.
func (e *ValidationError) HTTPMessage() string { return e.Message }

// Validator adapts go-playground/validator to echo.Validator. Messages use json
// field names and the english translations.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc)
	trans, _ := uni.GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "-" || tag == "" {
			return fld.Name
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		return tag
	})
	_ = entranslations.RegisterDefaultTranslations(v, trans)

	return &Validator{validate: v, translator: trans}
}

// Validate implements echo.Validator. Only the first failing field is reported.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return &ValidationError{Message: invalid.Error()}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Message: fe.Translate(v.translator)}
	}

	return &ValidationError{Message: err.Error()}
}
