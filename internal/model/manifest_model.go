package model

import (
	"path"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	FileRoleCode    = "code"
	FileRoleContent = "content"
	FileRoleImage   = "image"
	FileRoleOther   = "other"
)

// Manifest is the finished file inventory handed over by the upload
// pipeline. It is read-only to the evaluator.
type Manifest struct {
	ProjectID     uuid.UUID                 `json:"project_id" validate:"required"`
	Languages     []string                  `json:"languages" validate:"required,min=1,max=32,dive,required,max=32"`
	Files         []ManifestFile            `json:"files" validate:"max=100000,dive"`
	Flags         map[string]any            `json:"flags,omitempty"`
	LanguageFlags map[string]map[string]any `json:"language_flags,omitempty"`
}

var manifestValidate *validator.Validate

func init() {
	manifestValidate = validator.New(validator.WithRequiredStructEnabled())
	manifestValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks the manifest's shape. Errors are validator.ValidationErrors
// keyed by JSON field names.
func (m *Manifest) Validate() error {
	return manifestValidate.Struct(m)
}

type ManifestFile struct {
	Filename  string `json:"filename" validate:"required,max=1024"`
	Extension string `json:"extension,omitempty" validate:"max=32"`
	SizeBytes int64  `json:"size_bytes" validate:"gte=0"`
	LineCount int64  `json:"line_count" validate:"gte=0"`
	Role      string `json:"role" validate:"omitempty,oneof=code content image other"`
}

// Path returns the slash-separated, lowercased relative path.
func (f ManifestFile) Path() string {
	p := strings.ReplaceAll(strings.TrimSpace(f.Filename), "\\", "/")
	p = strings.TrimPrefix(p, "./")
	return strings.ToLower(strings.TrimPrefix(p, "/"))
}

// Base returns the lowercased file name without directories.
func (f ManifestFile) Base() string {
	return path.Base(f.Path())
}

// Ext returns the lowercased extension including the dot, preferring the
// declared extension over the file name.
func (f ManifestFile) Ext() string {
	ext := strings.ToLower(strings.TrimSpace(f.Extension))
	if ext == "" {
		return path.Ext(f.Path())
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
