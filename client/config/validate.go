package config

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New()
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("config: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

// Validate checks s against its declared tags and the cross-field rules
// tags cannot express.
func Validate(s Settings) error {
	var fields FieldErrors

	if err := validate.Struct(s); err != nil {
		var verrors validator.ValidationErrors
		if !errors.As(err, &verrors) {
			return err
		}

		for _, verror := range verrors {
			fields = append(fields, FieldError{
				Field: verror.Namespace(),
				Err:   customErrForTag(verror.Tag(), verror),
			})
		}
	}

	if s.Timeout.Duration < 0 {
		fields = append(fields, FieldError{Field: "Settings.timeout", Err: "timeout must not be negative"})
	}
	if s.Retry.WaitMax.Duration < s.Retry.WaitMin.Duration {
		fields = append(fields, FieldError{Field: "Settings.retry.wait_max", Err: "wait_max must not be lower than wait_min"})
	}
	if _, err := parseParams(s.Params); err != nil {
		var fe *FieldErrors
		if errors.As(err, &fe) {
			fields = append(fields, *fe...)
		}
	}

	if len(fields) > 0 {
		return &fields
	}

	return nil
}

// FieldError represents a single validation error for a specific field.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors represents a collection of field errors.
type FieldErrors []FieldError

// Error implements the error interface, returning a human-readable
// summary of all field errors.
func (fe *FieldErrors) Error() string {
	parts := make([]string, len(*fe))
	for i, f := range *fe {
		parts[i] = f.Field + ": " + f.Err
	}
	return strings.Join(parts, "; ")
}

func customErrForTag(tag string, verror validator.FieldError) string {
	switch tag {
	case "required", "required_with":
		return "This field is required"
	default:
		return verror.Translate(translator)
	}
}
