package util

import (
	"reflect"
	"testing"
)

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"primary", "", "accent", "primary", "base_size"})
	want := []string{"primary", "accent", "base_size"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got := Dedupe(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}
