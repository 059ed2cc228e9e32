package services_test

import (
	"errors"
	"strings"
	"testing"

	"cvcutter/internal/services"
)

func TestWrapTagsMarkerAndKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := services.Wrap(services.ErrTransient, "upload", "insert video", "chunk failed", cause)

	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("expected transient marker")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	for _, want := range []string{"upload", "insert video", "chunk failed", "connection reset"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %q", want, err.Error())
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "upload", "preflight", "file and metadata counts differ", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatal("expected validation marker")
	}
	if services.IsTransient(err) {
		t.Fatal("validation errors are not transient")
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("expected default marker")
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected generic detail, got %q", err.Error())
	}
}
