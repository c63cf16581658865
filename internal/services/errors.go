package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/example/mealbox/internal/models"
)

// Error kinds. Every *Error unwraps to exactly one of these.
var (
	ErrValidation           = errors.New("validation error")
	ErrConflict             = errors.New("conflict")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrDelivery             = errors.New("delivery failed")
	ErrNotFound             = errors.New("not found")
	ErrTooManyRequests      = errors.New("too many requests")
)

// Error is a structured, caller-facing service error.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func validationError(code, message string) *Error {
	return newError(ErrValidation, code, message)
}

func invalidCodeError() *Error {
	return newError(ErrInvalidOrExpiredCode, "invalid_or_expired_code", "invalid or expired code")
}

func invalidTransitionError(from, to models.OrderStatus) *Error {
	return newError(ErrInvalidTransition, "invalid_transition",
		fmt.Sprintf("cannot move order from %s to %s", from, to))
}

func operatorOnlyTransitionError(from, to models.OrderStatus) *Error {
	return newError(ErrInvalidTransition, "operator_only_transition",
		fmt.Sprintf("only an operator can move an order from %s to %s", from, to))
}

var (
	validate   = validator.New(validator.WithRequiredStructEnabled())
	translator ut.Translator
)

func init() {
	locale := en.New()
	translator, _ = ut.New(locale, locale).GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(fmt.Sprintf("register validation messages: %v", err))
	}
}

// validateStruct runs struct tag validation and reports the first failing field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return validationError("invalid_"+toSnake(fe.Field()), fe.Translate(translator))
	}
	return validationError("invalid_request", err.Error())
}

func toSnake(s string) string {
	var b strings.Builder
	var prev rune
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			if prev >= 'a' && prev <= 'z' {
				b.WriteByte('_')
			}
			prev = r
			r += 'a' - 'A'
		} else {
			prev = r
		}
		b.WriteRune(r)
	}
	return b.String()
}
