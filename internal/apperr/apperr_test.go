package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain", cause, KindInternal},
		{"direct", New(KindStorageWrite, StageBlobWrite, cause), KindStorageWrite},
		{"wrapped", fmt.Errorf("create: %w", New(KindMetadataWrite, StageMetadataWrite, cause)), KindMetadataWrite},
		{"invalid", Invalid([]Violation{{Field: "name", Message: "is required"}}), KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrapAndIs(t *testing.T) {
	cause := errors.New("bucket unavailable")
	err := fmt.Errorf("ingest: %w", New(KindStorageWrite, StageBlobWrite, cause))

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if !errors.Is(err, &Error{Kind: KindStorageWrite}) {
		t.Error("expected kind match")
	}
	if errors.Is(err, &Error{Kind: KindStorageWrite, Stage: StageMetadataWrite}) {
		t.Error("stage mismatch should not match")
	}
	if StageOf(err) != StageBlobWrite {
		t.Errorf("StageOf() = %q", StageOf(err))
	}
}

func TestErrorMessage(t *testing.T) {
	err := Invalid([]Violation{
		{Field: "name", Message: "is required"},
		{Field: "roast_level", Message: "must be one of light, medium, dark"},
	})
	want := "validate: invalid request (name is required; roast_level must be one of light, medium, dark)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := &Error{Kind: KindConflict, Stage: StageKey, Message: "key space exhausted", Err: errors.New("exists")}
	if wrapped.Error() != "key: key space exhausted: exists" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}
