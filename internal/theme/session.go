package theme

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/stagtheme/internal/errdef"
	"github.com/unkn0wn-root/stagtheme/internal/expr"
	"github.com/unkn0wn-root/stagtheme/internal/telemetry"
)

// Session composes a stack of themes with deck and slide scoped
// overrides. Lookups walk slide overrides, then deck overrides, then
// each theme in order, then built-in defaults; the first layer holding
// the path wins. All methods are safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	id       uuid.UUID
	themes   []*Definition
	deck     *Overrides
	slide    *Overrides
	defaults map[string]any
	cache    map[string]expr.Value
	log      *zap.Logger
	instr    telemetry.Instrumenter
}

type SessionOption func(*Session)

func WithLogger(log *zap.Logger) SessionOption {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

func WithDefaults(defaults map[string]any) SessionOption {
	return func(s *Session) {
		if defaults != nil {
			s.defaults = defaults
		}
	}
}

func WithSessionInstrumenter(instr telemetry.Instrumenter) SessionOption {
	return func(s *Session) {
		if instr != nil {
			s.instr = instr
		}
	}
}

func NewSession(themes []*Definition, opts ...SessionOption) *Session {
	s := &Session{
		id:       uuid.New(),
		themes:   append([]*Definition{}, themes...),
		deck:     NewOverrides(),
		slide:    NewOverrides(),
		defaults: builtinDefaults(),
		cache:    map[string]expr.Value{},
		log:      zap.NewNop(),
		instr:    telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string {
	return s.id.String()
}

// GetStyleValue resolves a dotted style path through every layer. Any
// failure, including an absent path, surfaces as an error.
func (s *Session) GetStyleValue(ctx context.Context, path string) (expr.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, span := s.instr.StartResolve(ctx, path)
	var err error
	defer func() { span.End(err) }()

	if v, ok := s.cache[path]; ok {
		span.SetCacheHit(true)
		return v, nil
	}
	span.SetCacheHit(false)

	raw, layer, ok := s.lookupLocked(path)
	if !ok {
		err = errdef.New(errdef.CodeStyleNotFound, "no style value at %q", path)
		return expr.Null(), err
	}
	span.SetLayer(layer)

	var v expr.Value
	v, err = s.coerceLocked(path, raw, NewResolutionContext())
	if err != nil {
		return expr.Null(), err
	}
	s.cache[path] = v
	return v, nil
}

// Get resolves a style path, degrading to fallback when resolution
// fails. Cycle and depth failures are authoring bugs, not missing data,
// so those still return an error instead of the fallback.
func (s *Session) Get(ctx context.Context, path string, fallback expr.Value) (expr.Value, error) {
	v, err := s.GetStyleValue(ctx, path)
	if err == nil {
		return v, nil
	}
	switch errdef.CodeOf(err) {
	case errdef.CodeCycle, errdef.CodeDepth:
		return expr.Null(), err
	}
	s.log.Warn("style resolution degraded",
		zap.String("path", path),
		zap.String("session", s.id.String()),
		zap.Error(err))
	return fallback, nil
}

// Override sets a deck-wide override. Keys with dots target component
// paths, bare keys feed the palette.
func (s *Session) Override(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deck.Set(key, value)
	s.cache = map[string]expr.Value{}
}

// PushSlideOverride sets an override scoped to the current slide.
func (s *Session) PushSlideOverride(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slide.Set(key, value)
	s.cache = map[string]expr.Value{}
}

// SetSlideOverrides replaces the slide layer wholesale, as happens on a
// slide transition.
func (s *Session) SetSlideOverrides(o *Overrides) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o == nil {
		o = NewOverrides()
	}
	s.slide = o
	s.cache = map[string]expr.Value{}
}

func (s *Session) ClearSlideOverrides() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slide = NewOverrides()
	s.cache = map[string]expr.Value{}
}

func (s *Session) ClearDeckOverrides() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deck = NewOverrides()
	s.cache = map[string]expr.Value{}
}

// AddTheme appends a fallback theme consulted after the existing stack.
func (s *Session) AddTheme(d *Definition) {
	if d == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.themes = append(s.themes, d)
	s.cache = map[string]expr.Value{}
}

// Layout resolves the named layout from the first theme that defines it.
func (s *Session) Layout(name string) (*LayoutStyle, error) {
	s.mu.Lock()
	themes := append([]*Definition{}, s.themes...)
	s.mu.Unlock()
	for _, th := range themes {
		if _, ok := th.Layouts[name]; ok {
			return th.ResolvedLayout(name)
		}
	}
	return nil, errdef.New(errdef.CodeStyleNotFound, "unknown layout %q", name)
}

// ExpandText substitutes every resolvable ${name} reference in free
// text. References that fail to resolve are left untouched so authors
// can see exactly what did not bind.
func (s *Session) ExpandText(text string) string {
	refs, err := expr.Refs(text)
	if err != nil || len(refs) == 0 {
		return text
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := text
	for _, name := range refs {
		v, err := s.resolveVarLocked(name, NewResolutionContext())
		if err != nil {
			continue
		}
		out = strings.ReplaceAll(out, "${"+name+"}", v.Format())
	}
	return out
}

func (s *Session) lookupLocked(path string) (any, string, bool) {
	if v, ok := s.slide.Get(path); ok {
		return v, "slide", true
	}
	if v, ok := s.deck.Get(path); ok {
		return v, "deck", true
	}
	for _, th := range s.themes {
		if v, ok := th.Lookup(path); ok {
			return v, "theme:" + th.Name, true
		}
	}
	if v, ok := lookupPath(s.defaults, splitPath(path)); ok {
		return v, "default", true
	}
	return nil, "", false
}

// resolveVarLocked is the session level variable lookup used inside
// templates. Override palettes shadow theme variables, so a computed
// expression like "${base_size} * 2" picks up an overridden base_size.
func (s *Session) resolveVarLocked(name string, rc *ResolutionContext) (expr.Value, error) {
	for _, o := range []*Overrides{s.slide, s.deck} {
		if raw, ok := o.palette[name]; ok {
			return s.coerceLocked(name, raw, rc)
		}
	}
	for _, th := range s.themes {
		if tmpl, ok := th.Computed[name]; ok {
			return s.evalNamedLocked(name, tmpl, rc)
		}
		if v, ok := th.Variables[name]; ok {
			if v.K == expr.VStr && expr.HasRefs(v.S) {
				return s.evalNamedLocked(name, v.S, rc)
			}
			return v, nil
		}
	}
	if raw, ok := s.defaults[name]; ok {
		return s.coerceLocked(name, raw, rc)
	}
	return expr.Null(), errdef.New(errdef.CodeUndefinedVar, "undefined variable: %s", name)
}

func (s *Session) evalNamedLocked(name, template string, rc *ResolutionContext) (expr.Value, error) {
	if err := rc.enter(name); err != nil {
		return expr.Null(), err
	}
	defer rc.exit(name)
	return evalTemplate(template, rc, s.resolveVarLocked, nil)
}

// coerceLocked turns a raw layer value into a resolved Value, running
// the evaluator when the value is a template.
func (s *Session) coerceLocked(name string, raw any, rc *ResolutionContext) (expr.Value, error) {
	if str, ok := raw.(string); ok && expr.IsTemplate(str) {
		return s.evalNamedLocked(name, str, rc)
	}
	if v, ok := expr.FromAny(raw); ok {
		return v, nil
	}
	return expr.Null(), errdef.New(errdef.CodeExpression, "unsupported value for %q: %T", name, raw)
}

// builtinDefaults is the last-resort layer so core text elements render
// even with an empty theme stack.
func builtinDefaults() map[string]any {
	return map[string]any{
		"title": map[string]any{
			"color":  "#1a1a2e",
			"size":   float64(44),
			"weight": "bold",
		},
		"subtitle": map[string]any{
			"color":  "#4a4a68",
			"size":   float64(28),
			"weight": "normal",
		},
		"text": map[string]any{
			"color":  "#2d2d44",
			"size":   float64(20),
			"weight": "normal",
		},
	}
}
