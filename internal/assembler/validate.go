package assembler

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ibeckermayer/proofshot/internal/apperr"
	"github.com/ibeckermayer/proofshot/internal/resolver"
	"github.com/ibeckermayer/proofshot/internal/types"
)

var tonePattern = regexp.MustCompile(`^[a-z][a-z -]{0,31}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// prefer json tag names in messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "-" || tag == "" {
			return fld.Name
		}
		name, _, _ := strings.Cut(tag, ",")
		return name
	})

	_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
		return types.Platform(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("tone", func(fl validator.FieldLevel) bool {
		return tonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return v
}

// Validate checks a request before any external call is made
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperr.Wrap(err, apperr.KindValidation, "validate", "invalid request")
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return apperr.New(apperr.KindValidation, "validate", strings.Join(msgs, "; "))
	}

	if resolver.IsURL(r.Input) {
		u, err := url.Parse(strings.TrimSpace(r.Input))
		if err != nil || u.Host == "" {
			return apperr.New(apperr.KindValidation, "validate", "input: not a valid URL")
		}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s: is required", fe.Field())
	case "platform":
		return fmt.Sprintf("%s: unknown platform %q", fe.Field(), fe.Value())
	case "tone":
		return fmt.Sprintf("%s: must be lowercase words, at most 32 characters", fe.Field())
	case "max":
		return fmt.Sprintf("%s: must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag())
	}
}
