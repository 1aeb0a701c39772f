package theme

import (
	"strings"
	"sync/atomic"

	"github.com/unkn0wn-root/stagtheme/internal/errdef"
	"github.com/unkn0wn-root/stagtheme/internal/expr"
)

// maxResolveDepth bounds nested ${...} resolution independently of cycle
// detection; a 30-link straight chain is an authoring bug even though it
// is acyclic.
const maxResolveDepth = 10

// ResolutionContext carries the cycle-detection state for one top-level
// resolution. It is created per call and threaded through every recursive
// step, so concurrent resolutions never share state.
type ResolutionContext struct {
	resolving []string
	active    map[string]bool
}

func NewResolutionContext() *ResolutionContext {
	return &ResolutionContext{active: map[string]bool{}}
}

func (rc *ResolutionContext) enter(name string) error {
	if rc.active[name] {
		return errdef.New(errdef.CodeCycle, "circular reference: %s", rc.chain(name))
	}
	if len(rc.resolving) >= maxResolveDepth {
		return errdef.New(errdef.CodeDepth,
			"variable nesting exceeds %d levels resolving %q", maxResolveDepth, name)
	}
	rc.active[name] = true
	rc.resolving = append(rc.resolving, name)
	return nil
}

func (rc *ResolutionContext) exit(name string) {
	delete(rc.active, name)
	if n := len(rc.resolving); n > 0 && rc.resolving[n-1] == name {
		rc.resolving = rc.resolving[:n-1]
	}
}

// chain reports the dependency path from the first visit of name back to
// the repeated visit, so the cycle reads start-to-start.
func (rc *ResolutionContext) chain(name string) string {
	start := 0
	for i, n := range rc.resolving {
		if n == name {
			start = i
			break
		}
	}
	parts := append(append([]string{}, rc.resolving[start:]...), name)
	return strings.Join(parts, " -> ")
}

// lookupFn resolves a bare variable name within an in-flight resolution.
type lookupFn func(name string, rc *ResolutionContext) (expr.Value, error)

// evalTemplate resolves every reference in a template and evaluates it.
// Reference resolution recurses through lookup, which owns cycle and
// depth accounting.
func evalTemplate(template string, rc *ResolutionContext, lookup lookupFn, evals *atomic.Int64) (expr.Value, error) {
	refs, err := expr.Refs(template)
	if err != nil {
		return expr.Null(), err
	}
	vars := make(map[string]expr.Value, len(refs))
	for _, name := range refs {
		v, err := lookup(name, rc)
		if err != nil {
			return expr.Null(), err
		}
		vars[name] = v
	}
	if evals != nil {
		evals.Add(1)
	}
	return expr.Evaluate(template, vars)
}

// Resolve evaluates a raw style value: plain scalars pass through,
// templates are interpolated and computed. Entry point for one top-level
// resolution; nested references share the context it creates.
func (d *Definition) Resolve(value string) (expr.Value, error) {
	return d.ResolveWith(value, NewResolutionContext())
}

func (d *Definition) ResolveWith(value string, rc *ResolutionContext) (expr.Value, error) {
	if !expr.IsTemplate(value) {
		return expr.Str(value), nil
	}
	if v, ok := d.cache.GetExpr(value); ok {
		return v, nil
	}
	v, err := evalTemplate(value, rc, d.resolveName, &d.evals)
	if err != nil {
		return expr.Null(), err
	}
	d.cache.SetExpr(value, v)
	return v, nil
}

// ResolveName resolves a bare variable or computed name. Computed entries
// shadow palette variables of the same name.
func (d *Definition) ResolveName(name string) (expr.Value, error) {
	return d.resolveName(name, NewResolutionContext())
}

func (d *Definition) resolveName(name string, rc *ResolutionContext) (expr.Value, error) {
	if v, ok := d.cache.GetComputed(name); ok {
		return v, nil
	}
	if v, ok := d.cache.GetVar(name); ok {
		return v, nil
	}
	if err := rc.enter(name); err != nil {
		return expr.Null(), err
	}
	defer rc.exit(name)

	if tmpl, ok := d.Computed[name]; ok {
		v, err := evalTemplate(tmpl, rc, d.resolveName, &d.evals)
		if err != nil {
			return expr.Null(), err
		}
		d.cache.SetComputed(name, v)
		return v, nil
	}
	if raw, ok := d.Variables[name]; ok {
		if raw.K == expr.VStr && expr.HasRefs(raw.S) {
			v, err := evalTemplate(raw.S, rc, d.resolveName, &d.evals)
			if err != nil {
				return expr.Null(), err
			}
			d.cache.SetVar(name, v)
			return v, nil
		}
		d.cache.SetVar(name, raw)
		return raw, nil
	}
	return expr.Null(), errdef.New(errdef.CodeUndefinedVar, "undefined variable: %s", name)
}

// ResolvedLayout returns a copy of the named layout with every template
// resolved, cached under the layout category until the next mutation.
func (d *Definition) ResolvedLayout(name string) (*LayoutStyle, error) {
	cacheKey := "resolved:" + name
	if l, ok := d.cache.GetLayout(cacheKey); ok {
		return l, nil
	}
	layout, ok := d.Layouts[name]
	if !ok {
		return nil, errdef.New(errdef.CodeStyleNotFound, "unknown layout %q", name)
	}
	resolved := &LayoutStyle{Name: layout.Name, Elements: map[string]*ElementStyle{}}
	bg, err := d.resolveText(layout.Background)
	if err != nil {
		return nil, err
	}
	resolved.Background = bg
	for elName, el := range layout.Elements {
		rel, err := d.resolveElement(el)
		if err != nil {
			return nil, err
		}
		resolved.Elements[elName] = rel
	}
	d.cache.SetLayout(cacheKey, resolved)
	return resolved, nil
}

func (d *Definition) resolveElement(el *ElementStyle) (*ElementStyle, error) {
	out := &ElementStyle{Opacity: el.Opacity}
	var err error
	if out.Color, err = d.resolveText(el.Color); err != nil {
		return nil, err
	}
	out.Size = el.Size
	if el.Size.K == expr.VStr && expr.IsTemplate(el.Size.S) {
		if out.Size, err = d.Resolve(el.Size.S); err != nil {
			return nil, err
		}
	}
	if out.Weight, err = d.resolveText(el.Weight); err != nil {
		return nil, err
	}
	if out.Font, err = d.resolveText(el.Font); err != nil {
		return nil, err
	}
	if out.Classes, err = d.resolveText(el.Classes); err != nil {
		return nil, err
	}
	if out.CSS, err = d.resolveText(el.CSS); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Definition) resolveText(s string) (string, error) {
	if s == "" || !expr.HasRefs(s) {
		return s, nil
	}
	v, err := d.Resolve(s)
	if err != nil {
		return "", err
	}
	return v.Format(), nil
}
