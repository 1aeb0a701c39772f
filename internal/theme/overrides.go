package theme

// Overrides holds caller-supplied values that take precedence over theme
// defaults. Keys without a dot target the palette; dotted keys target
// component paths and match lookups exactly, so an override at
// "pie_chart.colors.0" replaces only that element while siblings keep
// their theme values. Callers wanting a full-list override set the list
// path itself ("pie_chart.colors").
type Overrides struct {
	palette    map[string]any
	components map[string]any
}

func NewOverrides() *Overrides {
	return &Overrides{
		palette:    map[string]any{},
		components: map[string]any{},
	}
}

func (o *Overrides) Set(key string, value any) *Overrides {
	if hasDot(key) {
		o.components[key] = value
	} else {
		o.palette[key] = value
	}
	return o
}

func (o *Overrides) Get(key string) (any, bool) {
	if hasDot(key) {
		v, ok := o.components[key]
		return v, ok
	}
	v, ok := o.palette[key]
	return v, ok
}

func (o *Overrides) IsEmpty() bool {
	return len(o.palette) == 0 && len(o.components) == 0
}

// Merge returns a new set with other layered on top.
func (o *Overrides) Merge(other *Overrides) *Overrides {
	out := NewOverrides()
	for k, v := range o.palette {
		out.palette[k] = v
	}
	for k, v := range o.components {
		out.components[k] = v
	}
	if other != nil {
		for k, v := range other.palette {
			out.palette[k] = v
		}
		for k, v := range other.components {
			out.components[k] = v
		}
	}
	return out
}

func (o *Overrides) Clear() *Overrides {
	o.palette = map[string]any{}
	o.components = map[string]any{}
	return o
}

// Palette returns a copy of the palette-level overrides.
func (o *Overrides) Palette() map[string]any {
	out := make(map[string]any, len(o.palette))
	for k, v := range o.palette {
		out[k] = v
	}
	return out
}

func OverridesFromMap(data map[string]any) *Overrides {
	o := NewOverrides()
	for k, v := range data {
		o.Set(k, v)
	}
	return o
}

func hasDot(key string) bool {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return true
		}
	}
	return false
}
