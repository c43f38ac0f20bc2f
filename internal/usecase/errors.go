package usecase

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fadilmartias/project-evaluator/internal/worker"
)

var (
	ErrQueueFull       = worker.ErrQueueFull
	ErrInvalidQuery    = errors.New("invalid query")
	ErrJobNotFound     = errors.New("job not found")
	ErrNoManifest      = errors.New("manifest is required")
	ErrNoDispatcher    = errors.New("background dispatch is not configured")
	ErrNoManifestStore = errors.New("manifest source is not configured")
)

// QueryError reports the offending query parameters.
type QueryError struct {
	Fields map[string]string
}

func (e *QueryError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid query: " + strings.Join(parts, "; ")
}

func (e *QueryError) Unwrap() error {
	return ErrInvalidQuery
}
