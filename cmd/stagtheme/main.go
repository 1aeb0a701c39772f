package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/stagtheme/internal/config"
	"github.com/unkn0wn-root/stagtheme/internal/telemetry"
	"github.com/unkn0wn-root/stagtheme/internal/theme"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootFlags collects repeatable -root symbol=dir mappings.
type rootFlags map[string]string

func (r rootFlags) String() string {
	parts := make([]string, 0, len(r))
	for symbol, dir := range r {
		parts = append(parts, symbol+"="+dir)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (r rootFlags) Set(value string) error {
	symbol, dir, ok := strings.Cut(value, "=")
	if !ok || symbol == "" || dir == "" {
		return fmt.Errorf("expected symbol=dir, got %q", value)
	}
	r[symbol] = dir
	return nil
}

func main() {
	var (
		themeRef        string
		getPath         string
		layoutName      string
		expandText      string
		noColor         bool
		watch           bool
		showVersion     bool
		traceOTEndpoint string
		traceOTInsecure bool
		traceOTService  string
	)
	roots := rootFlags{}

	telemetryCfg := telemetry.ConfigFromEnv(os.Getenv)
	traceOTEndpoint = telemetryCfg.Endpoint
	traceOTInsecure = telemetryCfg.Insecure
	traceOTService = telemetryCfg.ServiceName

	flag.StringVar(&themeRef, "theme", "", "Theme reference to load (symbol:filename)")
	flag.Var(roots, "root", "Theme root mapping symbol=dir (repeatable)")
	flag.StringVar(&getPath, "get", "", "Resolve a dotted style path and print the value")
	flag.StringVar(&layoutName, "layout", "", "Resolve a layout and print its element styles")
	flag.StringVar(&expandText, "expand", "", "Expand ${var} references in the given text")
	flag.BoolVar(&noColor, "no-color", false, "Disable color swatches in output")
	flag.BoolVar(&watch, "watch", false, "Re-render when the theme files change")
	flag.BoolVar(&showVersion, "version", false, "Show stagtheme version")
	flag.StringVar(
		&traceOTEndpoint,
		"trace-otel-endpoint",
		traceOTEndpoint,
		"OTLP collector endpoint for load/resolve spans",
	)
	flag.BoolVar(
		&traceOTInsecure,
		"trace-otel-insecure",
		traceOTInsecure,
		"Disable TLS for OTLP trace export",
	)
	flag.StringVar(
		&traceOTService,
		"trace-otel-service",
		traceOTService,
		"Override service.name resource attribute for exported spans",
	)
	flag.Parse()

	telemetryCfg.Endpoint = strings.TrimSpace(traceOTEndpoint)
	telemetryCfg.Insecure = traceOTInsecure
	telemetryCfg.ServiceName = strings.TrimSpace(traceOTService)
	telemetryCfg.Version = version

	if showVersion {
		fmt.Printf("stagtheme %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		os.Exit(0)
	}

	v, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	settings, err := config.Decode(v)
	if err != nil {
		log.Fatalf("decode config: %v", err)
	}
	logger, err := config.NewLogger(v)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if themeRef == "" {
		themeRef = settings.DefaultTheme
	}
	if themeRef == "" && flag.NArg() > 0 {
		themeRef = flag.Arg(0)
	}
	if themeRef == "" {
		fmt.Fprintln(os.Stderr, "no theme reference: pass -theme or set default_theme")
		os.Exit(2)
	}

	allRoots := map[string]string{}
	for symbol, dir := range settings.ThemeRoots {
		allRoots[symbol] = dir
	}
	for symbol, dir := range roots {
		allRoots[symbol] = dir
	}

	provider, err := telemetry.New(telemetryCfg)
	if err != nil {
		if telemetryCfg.Enabled() {
			logger.Warn("telemetry init failed", zap.Error(err))
		}
		provider = telemetry.Noop()
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if shutdownErr := provider.Shutdown(ctx); shutdownErr != nil {
				logger.Warn("telemetry shutdown failed", zap.Error(shutdownErr))
			}
		}()
	}

	loader, err := theme.NewLoader(allRoots, theme.WithInstrumenter(provider))
	if err != nil {
		logger.Fatal("configure theme roots", zap.Error(err))
	}

	ctx := context.Background()
	p := printer{color: !noColor}

	if watch {
		r, err := theme.NewReloader(
			ctx,
			loader,
			themeRef,
			500*time.Millisecond,
			theme.WithReloadLogger(logger),
		)
		if err != nil {
			logger.Fatal("watch theme", zap.String("reference", themeRef), zap.Error(err))
		}
		defer r.Stop()
		for def := range r.Definitions() {
			render(ctx, p, def, provider, logger, getPath, layoutName, expandText)
		}
		return
	}

	def, err := loader.Load(ctx, themeRef)
	if err != nil {
		logger.Fatal("load theme", zap.String("reference", themeRef), zap.Error(err))
	}
	render(ctx, p, def, provider, logger, getPath, layoutName, expandText)
}

func render(
	ctx context.Context,
	p printer,
	def *theme.Definition,
	provider telemetry.Instrumenter,
	logger *zap.Logger,
	getPath, layoutName, expandText string,
) {
	session := theme.NewSession(
		[]*theme.Definition{def},
		theme.WithLogger(logger),
		theme.WithSessionInstrumenter(provider),
	)

	switch {
	case expandText != "":
		fmt.Println(session.ExpandText(expandText))
	case getPath != "":
		value, err := session.GetStyleValue(ctx, getPath)
		if err != nil {
			logger.Fatal("resolve style", zap.String("path", getPath), zap.Error(err))
		}
		fmt.Println(p.renderValue(value.Format()))
	case layoutName != "":
		layout, err := session.Layout(layoutName)
		if err != nil {
			logger.Fatal("resolve layout", zap.String("layout", layoutName), zap.Error(err))
		}
		p.printLayout(layout)
	default:
		p.printSummary(def)
	}
}

type printer struct {
	color bool
}

func (p printer) renderValue(value string) string {
	if !p.color || !strings.HasPrefix(value, "#") {
		return value
	}
	swatch := lipgloss.NewStyle().
		Background(lipgloss.Color(value)).
		Render("  ")
	return swatch + " " + value
}

func (p printer) printLayout(layout *theme.LayoutStyle) {
	fmt.Printf("layout %s\n", layout.Name)
	if css := layout.BackgroundCSS(); css != "" {
		fmt.Printf("  background: %s\n", p.renderValue(layout.Background))
	}
	names := make([]string, 0, len(layout.Elements))
	for name := range layout.Elements {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		el := layout.Element(name)
		fmt.Printf("  %s: %s\n", name, el.StyleCSS())
		if classes := el.StyleClasses(); classes != "" {
			fmt.Printf("  %s classes: %s\n", name, classes)
		}
	}
}

func (p printer) printSummary(def *theme.Definition) {
	fmt.Printf("theme %s (version %s)\n", def.Name, def.Version)

	names := make([]string, 0, len(def.Variables))
	for name := range def.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("palette:")
	for _, name := range names {
		fmt.Printf("  %-20s %s\n", name, p.renderValue(def.Variables[name].Format()))
	}

	if len(def.Computed) > 0 {
		computed := make([]string, 0, len(def.Computed))
		for name := range def.Computed {
			computed = append(computed, name)
		}
		sort.Strings(computed)
		fmt.Println("computed:")
		for _, name := range computed {
			value, err := def.ResolveName(name)
			if err != nil {
				fmt.Printf("  %-20s !%v\n", name, err)
				continue
			}
			fmt.Printf("  %-20s %s\n", name, p.renderValue(value.Format()))
		}
	}

	if len(def.Layouts) > 0 {
		layouts := make([]string, 0, len(def.Layouts))
		for name := range def.Layouts {
			layouts = append(layouts, name)
		}
		sort.Strings(layouts)
		fmt.Printf("layouts: %s\n", strings.Join(layouts, ", "))
	}
}
