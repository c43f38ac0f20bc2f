package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidationFormError turns validator errors into a FormError keyed by
// field path (for example "files[0].filename").
func NewValidationFormError(message string, err error) *FormError {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["body"] = err.Error()
		return NewFormError(message, fields)
	}
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule = fmt.Sprintf("%s=%s", rule, fe.Param())
		}
		fields[path] = rule
	}
	return NewFormError(message, fields)
}
