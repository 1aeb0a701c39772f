package theme

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/unkn0wn-root/stagtheme/internal/expr"
)

const defaultExprCacheSize = 1000

// Cache memoizes resolved theme values by category. Variable, computed and
// layout entries are unbounded; expression results are capped and evicted
// oldest-inserted first. A single mutex guards every category so concurrent
// sessions sharing a definition never observe a half-written entry.
type Cache struct {
	mu       sync.Mutex
	vars     map[string]expr.Value
	computed map[string]expr.Value
	layouts  map[string]*LayoutStyle
	exprs    map[string]expr.Value
	order    []string
	maxExpr  int
}

func NewCache(maxExpr int) *Cache {
	if maxExpr <= 0 {
		maxExpr = defaultExprCacheSize
	}
	return &Cache{
		vars:     map[string]expr.Value{},
		computed: map[string]expr.Value{},
		layouts:  map[string]*LayoutStyle{},
		exprs:    map[string]expr.Value{},
		maxExpr:  maxExpr,
	}
}

func (c *Cache) GetVar(name string) (expr.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vars[name]
	return v, ok
}

func (c *Cache) SetVar(name string, v expr.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vars[name] = v
}

func (c *Cache) GetComputed(name string) (expr.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.computed[name]
	return v, ok
}

func (c *Cache) SetComputed(name string, v expr.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.computed[name] = v
}

func (c *Cache) GetLayout(name string) (*LayoutStyle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.layouts[name]
	return l, ok
}

func (c *Cache) SetLayout(name string, l *LayoutStyle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layouts[name] = l
}

func (c *Cache) GetExpr(expression string) (expr.Value, bool) {
	key := exprKey(expression)
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.exprs[key]
	return v, ok
}

func (c *Cache) SetExpr(expression string, v expr.Value) {
	key := exprKey(expression)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.exprs[key]; !exists {
		c.order = append(c.order, key)
	}
	c.exprs[key] = v
	for len(c.exprs) > c.maxExpr {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.exprs, oldest)
	}
}

// Clear wipes every category. There is no partial invalidation: any
// mutation to variables, computed values or overrides clears the lot.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vars = map[string]expr.Value{}
	c.computed = map[string]expr.Value{}
	c.layouts = map[string]*LayoutStyle{}
	c.exprs = map[string]expr.Value{}
	c.order = nil
}

type CacheStats struct {
	Vars     int
	Computed int
	Layouts  int
	Exprs    int
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Vars:     len(c.vars),
		Computed: len(c.computed),
		Layouts:  len(c.layouts),
		Exprs:    len(c.exprs),
	}
}

func exprKey(expression string) string {
	sum := sha256.Sum256([]byte(expression))
	return hex.EncodeToString(sum[:8])
}
