package textutil_test

import (
	"reflect"
	"testing"

	"cvcutter/internal/textutil"
)

func TestCleanTitleComposesAndCollapses(t *testing.T) {
	// "ピアノ" with a decomposed dakuten, plus stray whitespace.
	in := "  ピアノ  発表会\t2026 "
	want := "ピアノ 発表会 2026"
	if got := textutil.CleanTitle(in); got != want {
		t.Fatalf("CleanTitle(%q) = %q, want %q", in, got, want)
	}
}

func TestCleanTagsDropsEmptiesAndDuplicates(t *testing.T) {
	in := []string{"recital", "", "  ", "piano", "recital"}
	want := []string{"recital", "piano"}
	if got := textutil.CleanTags(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("CleanTags = %v, want %v", got, want)
	}
}
