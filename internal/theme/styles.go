package theme

import (
	"fmt"
	"strings"

	"github.com/unkn0wn-root/stagtheme/internal/expr"
)

// ElementStyle is the visual property set for one named element (title,
// text, table header, chart label). Classes and CSS are additive: both are
// emitted, neither replaces the other.
type ElementStyle struct {
	Color   string
	Size    expr.Value
	Weight  string
	Opacity float64
	Font    string
	Classes string
	CSS     string
}

func elementFromMap(data map[string]any) *ElementStyle {
	el := &ElementStyle{Opacity: 1.0}
	if v, ok := data["color"].(string); ok {
		el.Color = v
	}
	if raw, ok := data["size"]; ok {
		if v, ok := expr.FromAny(raw); ok {
			el.Size = v
		}
	}
	if v, ok := data["weight"].(string); ok {
		el.Weight = v
	}
	if raw, ok := data["opacity"]; ok {
		if v, ok := expr.FromAny(raw); ok {
			if n, ok := v.Numeric(); ok {
				el.Opacity = n
			}
		}
	}
	if v, ok := data["font"].(string); ok {
		el.Font = v
	}
	if v, ok := data["classes"].(string); ok {
		el.Classes = v
	}
	if v, ok := data["css"].(string); ok {
		el.CSS = v
	} else if v, ok := data["style"].(string); ok {
		// Older theme files used "style" for inline CSS.
		el.CSS = v
	}
	return el
}

// StyleCSS renders the element as an inline CSS declaration list. Numeric
// sizes are pixel values; string sizes pass through with their own unit.
func (el *ElementStyle) StyleCSS() string {
	var parts []string
	if el.Color != "" {
		parts = append(parts, "color: "+el.Color)
	}
	switch el.Size.K {
	case expr.VNum:
		parts = append(parts, fmt.Sprintf("font-size: %spx", el.Size.Format()))
	case expr.VStr:
		if el.Size.S != "" {
			parts = append(parts, "font-size: "+el.Size.S)
		}
	}
	if el.Weight != "" {
		parts = append(parts, "font-weight: "+el.Weight)
	}
	if el.Opacity < 1.0 {
		parts = append(parts, fmt.Sprintf("opacity: %s", expr.Num(el.Opacity).Format()))
	}
	if el.Font != "" {
		parts = append(parts, "font-family: "+el.Font)
	}
	if el.CSS != "" {
		parts = append(parts, el.CSS)
	}
	return strings.Join(parts, "; ")
}

// StyleClasses renders utility classes: the opacity helper plus whatever
// the theme author listed.
func (el *ElementStyle) StyleClasses() string {
	var parts []string
	if el.Opacity < 1.0 {
		parts = append(parts, fmt.Sprintf("opacity-%d", int(el.Opacity*100)))
	}
	if el.Classes != "" {
		parts = append(parts, el.Classes)
	}
	return strings.Join(parts, " ")
}

// Merge layers other on top of this style. Scalar properties from other win
// when set; classes and CSS concatenate.
func (el *ElementStyle) Merge(other *ElementStyle) *ElementStyle {
	if other == nil {
		cp := *el
		return &cp
	}
	out := &ElementStyle{
		Color:   el.Color,
		Size:    el.Size,
		Weight:  el.Weight,
		Opacity: el.Opacity,
		Font:    el.Font,
	}
	if other.Color != "" {
		out.Color = other.Color
	}
	if !other.Size.IsNull() {
		out.Size = other.Size
	}
	if other.Weight != "" {
		out.Weight = other.Weight
	}
	if other.Opacity != 1.0 {
		out.Opacity = other.Opacity
	}
	if other.Font != "" {
		out.Font = other.Font
	}
	out.Classes = strings.TrimSpace(el.Classes + " " + other.Classes)
	out.CSS = strings.Trim(strings.Trim(el.CSS+"; "+other.CSS, "; "), " ")
	return out
}

// LayoutStyle groups the element styles of one layout plus its background.
type LayoutStyle struct {
	Name       string
	Background string
	Elements   map[string]*ElementStyle
}

func layoutFromMap(name string, data map[string]any) *LayoutStyle {
	layout := &LayoutStyle{Name: name, Elements: map[string]*ElementStyle{}}
	if bg, ok := data["background"].(string); ok {
		layout.Background = bg
	}
	for key, raw := range data {
		if key == "background" {
			continue
		}
		if sub, ok := raw.(map[string]any); ok {
			layout.Elements[key] = elementFromMap(sub)
		}
	}
	return layout
}

// Element returns the style for a named element, or an empty style.
func (l *LayoutStyle) Element(name string) *ElementStyle {
	if el, ok := l.Elements[name]; ok {
		return el
	}
	return &ElementStyle{Opacity: 1.0}
}

// Merge layers other on top of this layout element-wise.
func (l *LayoutStyle) Merge(other *LayoutStyle) *LayoutStyle {
	out := &LayoutStyle{
		Name:       l.Name,
		Background: l.Background,
		Elements:   map[string]*ElementStyle{},
	}
	if other.Name != "" {
		out.Name = other.Name
	}
	if other.Background != "" {
		out.Background = other.Background
	}
	for name, el := range l.Elements {
		out.Elements[name] = el
	}
	for name, el := range other.Elements {
		if base, ok := out.Elements[name]; ok {
			out.Elements[name] = base.Merge(el)
		} else {
			out.Elements[name] = el
		}
	}
	return out
}

// BackgroundCSS renders the background for gradients, images and flat
// colors respectively.
func (l *LayoutStyle) BackgroundCSS() string {
	bg := l.Background
	if bg == "" {
		return ""
	}
	switch {
	case strings.Contains(bg, "gradient"),
		strings.HasPrefix(bg, "linear"),
		strings.HasPrefix(bg, "radial"):
		return "background: " + bg + ";"
	case strings.HasPrefix(bg, "url("):
		return "background-image: " + bg + "; background-size: cover; background-position: center;"
	default:
		return "background-color: " + bg + ";"
	}
}
