// Package apperr defines the error kinds surfaced by the catalog and ingestion
// services. Kinds are mapped to transport responses only at the handler layer.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error as caller-fault or infrastructure-fault.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuth          Kind = "auth"
	KindNotFound      Kind = "not_found"
	KindTranscode     Kind = "transcode"
	KindStorageWrite  Kind = "storage_write"
	KindMetadataWrite Kind = "metadata_write"
	KindConflict      Kind = "conflict"
	KindCapacity      Kind = "capacity"
	KindInternal      Kind = "internal"
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageValidate      Stage = "validate"
	StageTranscode     Stage = "transcode"
	StageKey           Stage = "key"
	StageBlobWrite     Stage = "blob_write"
	StageMetadataRead  Stage = "metadata_read"
	StageMetadataWrite Stage = "metadata_write"
)

// Violation is a single invalid or missing field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the structured error returned by services.
type Error struct {
	Kind       Kind
	Stage      Stage
	Message    string
	Violations []Violation
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(string(e.Stage))
		b.WriteString(": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(string(e.Kind))
	}
	if len(e.Violations) > 0 {
		parts := make([]string, 0, len(e.Violations))
		for _, v := range e.Violations {
			parts = append(parts, v.Field+" "+v.Message)
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString(")")
	}
	if e.Message != "" && e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindConflict}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Stage == "" || t.Stage == e.Stage)
}

// New builds an Error of kind at stage wrapping err.
func New(kind Kind, stage Stage, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// Newf builds an Error with a formatted message and no wrapped cause.
func Newf(kind Kind, stage Stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// Invalid builds a validation error carrying every violation.
func Invalid(violations []Violation) *Error {
	return &Error{
		Kind:       KindValidation,
		Stage:      StageValidate,
		Message:    "invalid request",
		Violations: violations,
	}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StageOf returns the failing stage recorded in err, if any.
func StageOf(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}
