package theme

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/stagtheme/internal/errdef"
	"github.com/unkn0wn-root/stagtheme/internal/telemetry"
)

const (
	maxSourceSize       = 1 << 20 // per theme document
	maxInheritanceDepth = 5
)

// Loader resolves theme references and flattens inheritance. Root symbols
// are fixed at construction: the application entry point decides which
// directories are reachable, not a process-wide registry.
type Loader struct {
	roots map[string]string
	instr telemetry.Instrumenter
}

type LoaderOption func(*Loader)

func WithInstrumenter(instr telemetry.Instrumenter) LoaderOption {
	return func(l *Loader) {
		if instr != nil {
			l.instr = instr
		}
	}
}

// NewLoader validates and registers root symbols mapping to theme
// directories. References use them as "symbol:filename.json".
func NewLoader(roots map[string]string, opts ...LoaderOption) (*Loader, error) {
	l := &Loader{roots: map[string]string{}, instr: telemetry.Noop()}
	for symbol, dir := range roots {
		if err := l.addRoot(symbol, dir); err != nil {
			return nil, err
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Loader) addRoot(symbol, dir string) error {
	if err := checkSymbol(symbol); err != nil {
		return err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "resolve theme root %q", symbol)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return errdef.New(errdef.CodeFilesystem, "theme root %q is not a directory", symbol)
	}
	l.roots[symbol] = abs
	return nil
}

// Roots returns the registered symbols.
func (l *Loader) Roots() []string {
	out := make([]string, 0, len(l.roots))
	for symbol := range l.roots {
		out = append(out, symbol)
	}
	return out
}

// Load resolves a reference, flattens its inheritance chain and returns a
// self-contained definition. A failed load leaves previously loaded
// definitions untouched.
func (l *Loader) Load(ctx context.Context, reference string) (*Definition, error) {
	def, _, err := l.LoadWithSources(ctx, reference)
	return def, err
}

// LoadWithSources additionally reports the files the definition was
// merged from, child first. Reload watchers track these.
func (l *Loader) LoadWithSources(ctx context.Context, reference string) (def *Definition, sources []string, err error) {
	_, span := l.instr.StartLoad(ctx, reference)
	defer func() { span.End(err) }()

	state := &loadState{}
	data, err := l.loadData(reference, "", state)
	if err != nil {
		return nil, nil, err
	}
	span.SetDepth(len(state.sources))
	return FromMap(data), state.sources, nil
}

type loadState struct {
	stack   []string
	sources []string
}

func (s *loadState) push(path string) error {
	for _, p := range s.stack {
		if p == path {
			chain := append(append([]string{}, s.stack...), path)
			names := make([]string, len(chain))
			for i, c := range chain {
				names[i] = filepath.Base(c)
			}
			return errdef.New(errdef.CodeInheritance,
				"circular theme inheritance: %s", strings.Join(names, " -> "))
		}
	}
	if len(s.stack) > maxInheritanceDepth {
		return errdef.New(errdef.CodeDepth,
			"theme inheritance exceeds %d levels", maxInheritanceDepth)
	}
	s.stack = append(s.stack, path)
	return nil
}

func (s *loadState) pop() {
	if n := len(s.stack); n > 0 {
		s.stack = s.stack[:n-1]
	}
}

func (l *Loader) loadData(reference, currentDir string, state *loadState) (map[string]any, error) {
	path, err := l.resolvePath(reference, currentDir)
	if err != nil {
		return nil, err
	}
	if err := state.push(path); err != nil {
		return nil, err
	}
	defer state.pop()
	state.sources = append(state.sources, path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, errdef.New(errdef.CodeFilesystem, "theme %q not found", reference)
	}
	if info.Size() > maxSourceSize {
		return nil, errdef.New(errdef.CodeResourceLimit,
			"theme %q exceeds maximum source size", reference)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errdef.New(errdef.CodeFilesystem, "theme %q is not readable", reference)
	}
	data, err := decodeDocument(raw, filepath.Ext(path))
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeSyntax, err, "parse theme %q", reference)
	}

	extends, _ := data["extends"].(string)
	delete(data, "extends")
	if extends != "" {
		parent, err := l.loadData(extends, filepath.Dir(path), state)
		if err != nil {
			return nil, err
		}
		data = deepMerge(parent, data)
	}
	return data, nil
}

// resolvePath turns a reference into an absolute path inside a permitted
// directory. Screening runs before any filesystem access.
func (l *Loader) resolvePath(reference, currentDir string) (string, error) {
	var baseDir, filename string
	if symbol, rest, ok := strings.Cut(reference, ":"); ok {
		dir, registered := l.roots[symbol]
		if !registered {
			return "", errdef.New(errdef.CodeUnknownSymbol, "unknown theme root symbol %q", symbol)
		}
		baseDir, filename = dir, rest
	} else {
		if currentDir == "" {
			return "", errdef.New(errdef.CodeFilesystem,
				"cannot resolve bare reference %q without a current theme", reference)
		}
		baseDir, filename = currentDir, reference
	}

	if err := checkFilename(filename); err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json", ".toml", ".yaml", ".yml":
	default:
		return "", errdef.New(errdef.CodePathSecurity,
			"theme reference %q must name a .json, .toml or .yaml file", filename)
	}

	abs, err := filepath.Abs(filepath.Join(baseDir, filename))
	if err != nil {
		return "", errdef.Wrap(errdef.CodeFilesystem, err, "resolve theme reference %q", reference)
	}
	if !strings.HasPrefix(abs, baseDir+string(filepath.Separator)) {
		return "", errdef.New(errdef.CodePathSecurity,
			"theme reference %q escapes its root directory", reference)
	}
	return abs, nil
}

func decodeDocument(raw []byte, ext string) (map[string]any, error) {
	data := map[string]any{}
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
	default:
		return nil, errdef.New(errdef.CodeSyntax, "unsupported theme format %q", ext)
	}
	return data, nil
}

// deepMerge layers override onto base: nested mappings merge key by key,
// everything else (scalars, sequences) is replaced wholesale.
func deepMerge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		bm, baseIsMap := out[k].(map[string]any)
		om, overrideIsMap := v.(map[string]any)
		if baseIsMap && overrideIsMap {
			out[k] = deepMerge(bm, om)
			continue
		}
		out[k] = v
	}
	return out
}
