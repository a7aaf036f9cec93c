package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ibeckermayer/proofshot/internal/apperr"
)

const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// prefer json tag names in messages
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
	return v
}

// decodeJSON reads one JSON value into T and validates it
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var dst T
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dst, apperr.Wrap(errBodyTooLarge, apperr.KindValidation, "decode", "request body too large")
		}
		if errors.Is(err, io.EOF) {
			return dst, apperr.New(apperr.KindValidation, "decode", "empty body")
		}
		return dst, apperr.Errorf(apperr.KindValidation, "decode", "invalid JSON: %v", err)
	}
	if dec.More() {
		return dst, apperr.New(apperr.KindValidation, "decode", "unexpected trailing data")
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return dst, apperr.Errorf(apperr.KindValidation, "decode", "%s failed on %s", fe.Field(), tagDescription(fe))
		}
		return dst, apperr.Wrap(err, apperr.KindValidation, "decode", "validation error")
	}
	return dst, nil
}

func tagDescription(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
}
