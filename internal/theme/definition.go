package theme

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/unkn0wn-root/stagtheme/internal/expr"
)

// Definition is a fully merged theme: by the time one exists, every
// extends chain has been flattened, so consumers never see inheritance.
type Definition struct {
	Name    string
	Version string

	// Variables merges the document's constants, palette and legacy
	// variables sections; later sections win on key collision.
	Variables map[string]expr.Value
	Computed  map[string]string
	Layouts   map[string]*LayoutStyle

	// sections keeps the raw nested document (minus reserved keys) for
	// dotted-path lookups against component groups the struct model does
	// not enumerate.
	sections map[string]any

	cache *Cache
	evals atomic.Int64
}

var reservedKeys = map[string]bool{
	"name":      true,
	"version":   true,
	"extends":   true,
	"constants": true,
	"palette":   true,
	"variables": true,
	"computed":  true,
}

// FromMap builds a definition from merged document data. The extends key
// must already be resolved away by the loader.
func FromMap(data map[string]any) *Definition {
	d := &Definition{
		Name:      "default",
		Version:   "1.0",
		Variables: map[string]expr.Value{},
		Computed:  map[string]string{},
		Layouts:   map[string]*LayoutStyle{},
		sections:  map[string]any{},
		cache:     NewCache(defaultExprCacheSize),
	}
	if name, ok := data["name"].(string); ok && name != "" {
		d.Name = name
	}
	if version, ok := data["version"].(string); ok && version != "" {
		d.Version = version
	}
	for _, section := range []string{"constants", "palette", "variables"} {
		if m, ok := data[section].(map[string]any); ok {
			for k, raw := range m {
				if v, ok := expr.FromAny(raw); ok {
					d.Variables[k] = v
				}
			}
		}
	}
	if m, ok := data["computed"].(map[string]any); ok {
		for k, raw := range m {
			if s, ok := raw.(string); ok {
				d.Computed[k] = s
			}
		}
	}
	if m, ok := data["layouts"].(map[string]any); ok {
		for name, raw := range m {
			if sub, ok := raw.(map[string]any); ok {
				d.Layouts[name] = layoutFromMap(name, sub)
			}
		}
	}
	// A top-level slide section defines the default content layout.
	if m, ok := data["slide"].(map[string]any); ok {
		d.Layouts["content"] = layoutFromMap("content", m)
	}
	for k, raw := range data {
		if !reservedKeys[k] {
			d.sections[k] = raw
		}
	}
	return d
}

// Lookup walks a dotted path through the raw document sections. All-digit
// segments index into sequences; everything else is a mapping key.
func (d *Definition) Lookup(path string) (any, bool) {
	if v, ok := d.Variables[path]; ok {
		return v.Format(), true
	}
	if tmpl, ok := d.Computed[path]; ok {
		return tmpl, true
	}
	return lookupPath(d.sections, splitPath(path))
}

func lookupPath(node any, segs []string) (any, bool) {
	cur := node
	for _, seg := range segs {
		switch n := cur.(type) {
		case map[string]any:
			next, ok := n[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, ok := pathIndex(seg)
			if !ok || idx < 0 || idx >= len(n) {
				return nil, false
			}
			cur = n[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// pathIndex parses an all-digit segment as a sequence index.
func pathIndex(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SetVariable replaces a palette variable and clears the cache.
func (d *Definition) SetVariable(name string, v expr.Value) {
	d.Variables[name] = v
	d.cache.Clear()
}

// SetComputed replaces a computed expression and clears the cache.
func (d *Definition) SetComputed(name, expression string) {
	d.Computed[name] = expression
	d.cache.Clear()
}

func (d *Definition) ClearCache() {
	d.cache.Clear()
}

func (d *Definition) CacheStats() CacheStats {
	return d.cache.Stats()
}

// EvalCalls reports how many times the expression evaluator has run for
// this definition. Cached lookups do not re-evaluate.
func (d *Definition) EvalCalls() int64 {
	return d.evals.Load()
}

// Layout returns the raw (unresolved) layout by name.
func (d *Definition) Layout(name string) (*LayoutStyle, bool) {
	l, ok := d.Layouts[name]
	return l, ok
}
