package rubric

import (
	"errors"
	"fmt"
)

// ErrInvalidRubric is wrapped by every ConfigError.
var ErrInvalidRubric = errors.New("invalid rubric")

// ConfigError reports a rubric that must not be loaded. It is only ever
// produced at registration time.
type ConfigError struct {
	Language string
	Source   string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("rubric %q (%s): %s", e.Language, e.Source, e.Reason)
	}
	return fmt.Sprintf("rubric %q: %s", e.Language, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidRubric
}

func configErrorf(language, format string, args ...any) *ConfigError {
	return &ConfigError{Language: language, Reason: fmt.Sprintf(format, args...)}
}
