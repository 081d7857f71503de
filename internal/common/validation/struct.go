package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"webhook-gateway/internal/common/errors"
)

var (
	structValidator *validator.Validate
	structOnce      sync.Once
)

func getStructValidator() *validator.Validate {
	structOnce.Do(func() {
		v := validator.New()
		// Report JSON names so messages match the wire format
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		structValidator = v
	})
	return structValidator
}

// ValidateStruct checks the `validate` tags of s and returns a validation AppError
// listing the offending fields
func ValidateStruct(s interface{}) error {
	err := getStructValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.InternalError("struct validation failed", err)
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fieldPath(fe), fe.Tag()))
	}
	return errors.ValidationError("invalid fields: " + strings.Join(fields, ", ")).
		WithContext("fields", fields)
}

// fieldPath drops the root struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
