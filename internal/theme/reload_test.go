package theme

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReloaderDeliversInitialAndReloadedDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "base.json", `{"palette": {"primary": "#111111"}}`)
	writeTheme(t, dir, "dark.json", `{"name": "dark", "extends": "base.json"}`)

	l := newTestLoader(t, dir)
	r, err := NewReloader(context.Background(), l, "themes:dark.json", time.Hour)
	if err != nil {
		t.Fatalf("NewReloader: %v", err)
	}
	defer r.Stop()

	var def *Definition
	select {
	case def = <-r.Definitions():
	case <-time.After(time.Second):
		t.Fatalf("expected initial definition")
	}
	if got := def.Variables["primary"].Format(); got != "#111111" {
		t.Fatalf("unexpected initial palette %q", got)
	}

	// Editing the parent must trigger a reload of the child reference.
	path := filepath.Join(dir, "base.json")
	writeTheme(t, dir, "base.json", `{"palette": {"primary": "#222222"}}`)
	old := time.Now().Add(-time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		r.Scan()
		select {
		case def = <-r.Definitions():
			if got := def.Variables["primary"].Format(); got != "#222222" {
				t.Fatalf("unexpected reloaded palette %q", got)
			}
			return
		case <-deadline:
			t.Fatalf("expected reloaded definition")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestReloaderKeepsServingOnBrokenEdit(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "dark.json", `{"name": "dark"}`)

	l := newTestLoader(t, dir)
	r, err := NewReloader(context.Background(), l, "themes:dark.json", time.Hour)
	if err != nil {
		t.Fatalf("NewReloader: %v", err)
	}
	defer r.Stop()
	<-r.Definitions()

	path := filepath.Join(dir, "dark.json")
	writeTheme(t, dir, "dark.json", `{"name": "dark`)
	old := time.Now().Add(-time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	r.Scan()
	time.Sleep(50 * time.Millisecond)
	select {
	case def := <-r.Definitions():
		t.Fatalf("expected no definition from broken edit, got %v", def.Name)
	default:
	}
}
