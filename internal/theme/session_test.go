package theme

import (
	"context"
	"sync"
	"testing"

	"github.com/unkn0wn-root/stagtheme/internal/errdef"
	"github.com/unkn0wn-root/stagtheme/internal/expr"
)

func sessionTheme() *Definition {
	return FromMap(map[string]any{
		"name": "dark",
		"palette": map[string]any{
			"primary":   "#1a1a2e",
			"base_size": float64(20),
		},
		"computed": map[string]any{
			"accent":     "${primary}",
			"title_size": "${base_size} * 2",
		},
		"pie_chart": map[string]any{
			"colors": []any{"#e94560", "#0f3460"},
		},
		"text": map[string]any{
			"h1": map[string]any{"color": "${primary}"},
		},
	})
}

func TestSessionLayerPrecedence(t *testing.T) {
	ctx := context.Background()
	s := NewSession([]*Definition{sessionTheme()})

	v, err := s.GetStyleValue(ctx, "primary")
	if err != nil {
		t.Fatalf("GetStyleValue: %v", err)
	}
	if v.Format() != "#1a1a2e" {
		t.Fatalf("expected theme value, got %q", v.Format())
	}

	s.Override("primary", "#0000ff")
	v, err = s.GetStyleValue(ctx, "primary")
	if err != nil {
		t.Fatalf("GetStyleValue: %v", err)
	}
	if v.Format() != "#0000ff" {
		t.Fatalf("expected deck override, got %q", v.Format())
	}

	s.PushSlideOverride("primary", "#ff0000")
	v, err = s.GetStyleValue(ctx, "primary")
	if err != nil {
		t.Fatalf("GetStyleValue: %v", err)
	}
	if v.Format() != "#ff0000" {
		t.Fatalf("expected slide override to win, got %q", v.Format())
	}

	s.ClearSlideOverrides()
	v, _ = s.GetStyleValue(ctx, "primary")
	if v.Format() != "#0000ff" {
		t.Fatalf("expected deck override after slide clear, got %q", v.Format())
	}
}

func TestSessionDottedOverridePrecedence(t *testing.T) {
	ctx := context.Background()
	d := FromMap(map[string]any{
		"title": map[string]any{"color": "#0000ff"},
	})
	s := NewSession([]*Definition{d})
	s.Override("title.color", "#00ff00")
	s.PushSlideOverride("title.color", "#ff0000")

	v, err := s.GetStyleValue(ctx, "title.color")
	if err != nil {
		t.Fatalf("GetStyleValue: %v", err)
	}
	if v.Format() != "#ff0000" {
		t.Fatalf("expected slide layer, got %q", v.Format())
	}

	s.ClearSlideOverrides()
	if v, _ = s.GetStyleValue(ctx, "title.color"); v.Format() != "#00ff00" {
		t.Fatalf("expected deck layer, got %q", v.Format())
	}

	s.ClearDeckOverrides()
	if v, _ = s.GetStyleValue(ctx, "title.color"); v.Format() != "#0000ff" {
		t.Fatalf("expected theme layer, got %q", v.Format())
	}
}

func TestSessionOverrideFlowsIntoComputed(t *testing.T) {
	ctx := context.Background()
	s := NewSession([]*Definition{sessionTheme()})

	v, err := s.GetStyleValue(ctx, "accent")
	if err != nil {
		t.Fatalf("GetStyleValue: %v", err)
	}
	if v.Format() != "#1a1a2e" {
		t.Fatalf("expected theme accent, got %q", v.Format())
	}

	s.Override("primary", "#ff0000")
	v, err = s.GetStyleValue(ctx, "accent")
	if err != nil {
		t.Fatalf("GetStyleValue: %v", err)
	}
	if v.Format() != "#ff0000" {
		t.Fatalf("expected override to reach computed value, got %q", v.Format())
	}

	s.Override("base_size", float64(30))
	v, err = s.GetStyleValue(ctx, "title_size")
	if err != nil {
		t.Fatalf("GetStyleValue: %v", err)
	}
	if got, _ := v.Numeric(); got != 60 {
		t.Fatalf("expected 60, got %v", got)
	}
}

func TestSessionIndexedOverride(t *testing.T) {
	ctx := context.Background()
	s := NewSession([]*Definition{sessionTheme()})
	s.Override("pie_chart.colors.0", "#ffffff")

	v, err := s.GetStyleValue(ctx, "pie_chart.colors.0")
	if err != nil {
		t.Fatalf("GetStyleValue: %v", err)
	}
	if v.Format() != "#ffffff" {
		t.Fatalf("expected overridden element, got %q", v.Format())
	}
	v, err = s.GetStyleValue(ctx, "pie_chart.colors.1")
	if err != nil {
		t.Fatalf("GetStyleValue: %v", err)
	}
	if v.Format() != "#0f3460" {
		t.Fatalf("expected sibling from theme, got %q", v.Format())
	}
}

func TestSessionGetDegradesToFallback(t *testing.T) {
	ctx := context.Background()
	s := NewSession([]*Definition{sessionTheme()})

	v, err := s.Get(ctx, "chart.legend.color", expr.Str("#888888"))
	if err != nil {
		t.Fatalf("expected degradation, got %v", err)
	}
	if v.Format() != "#888888" {
		t.Fatalf("expected fallback, got %q", v.Format())
	}
}

func TestSessionCycleIsNotDegraded(t *testing.T) {
	ctx := context.Background()
	d := FromMap(map[string]any{
		"computed": map[string]any{
			"a": "${b}",
			"b": "${a}",
		},
	})
	s := NewSession([]*Definition{d})

	_, err := s.Get(ctx, "a", expr.Str("#000000"))
	if errdef.CodeOf(err) != errdef.CodeCycle {
		t.Fatalf("expected cycle to surface, got %v", err)
	}
}

func TestSessionMultiThemeFallback(t *testing.T) {
	ctx := context.Background()
	primary := FromMap(map[string]any{
		"name":    "brand",
		"palette": map[string]any{"primary": "#123456"},
	})
	fallback := FromMap(map[string]any{
		"name":    "base",
		"palette": map[string]any{"primary": "#000000", "accent": "#e94560"},
	})
	s := NewSession([]*Definition{primary})
	s.AddTheme(fallback)

	v, _ := s.GetStyleValue(ctx, "primary")
	if v.Format() != "#123456" {
		t.Fatalf("expected first theme to win, got %q", v.Format())
	}
	v, _ = s.GetStyleValue(ctx, "accent")
	if v.Format() != "#e94560" {
		t.Fatalf("expected fallback theme value, got %q", v.Format())
	}
}

func TestSessionBuiltinDefaults(t *testing.T) {
	ctx := context.Background()
	s := NewSession(nil)
	v, err := s.GetStyleValue(ctx, "title.color")
	if err != nil {
		t.Fatalf("GetStyleValue: %v", err)
	}
	if v.Format() != "#1a1a2e" {
		t.Fatalf("expected builtin default, got %q", v.Format())
	}
}

func TestSessionExpandText(t *testing.T) {
	s := NewSession([]*Definition{sessionTheme()})
	got := s.ExpandText("color ${primary}, missing ${nope}")
	if got != "color #1a1a2e, missing ${nope}" {
		t.Fatalf("unexpected expansion %q", got)
	}
	if plain := s.ExpandText("no refs here"); plain != "no refs here" {
		t.Fatalf("expected passthrough, got %q", plain)
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	a := NewSession(nil)
	b := NewSession(nil)
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct session ids")
	}
	if a.ID() == "" {
		t.Fatalf("expected non-empty session id")
	}
}

func TestSessionConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewSession([]*Definition{sessionTheme()})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if n%2 == 0 {
					if _, err := s.GetStyleValue(ctx, "title_size"); err != nil {
						t.Errorf("GetStyleValue: %v", err)
						return
					}
				} else {
					s.PushSlideOverride("base_size", float64(20+j))
				}
			}
		}(i)
	}
	wg.Wait()
}
