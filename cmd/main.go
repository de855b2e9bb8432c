// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"leakaudit/internal/aggregate"
	"leakaudit/internal/benchmark"
	"leakaudit/internal/config"
	"leakaudit/internal/core"
	"leakaudit/internal/extractor"
	"leakaudit/internal/formatters"
	_ "leakaudit/internal/formatters/csv"
	_ "leakaudit/internal/formatters/json"
	_ "leakaudit/internal/formatters/sarif"
	_ "leakaudit/internal/formatters/text"
	_ "leakaudit/internal/formatters/yaml"
	"leakaudit/internal/help"
	"leakaudit/internal/matcher"
	"leakaudit/internal/observability"
	"leakaudit/internal/parallel"
	"leakaudit/internal/resilience"
	"leakaudit/internal/span"
	"leakaudit/internal/spansource"
	"leakaudit/internal/version"
)

// configFlags holds command line flag values that can override the config
type configFlags struct {
	format         string
	workers        int
	timeout        time.Duration
	backend        string
	model          string
	baseURL        string
	flaggedOnly    bool
	verbose        bool
	debug          bool
	noColor        bool
	redactEvidence bool
	includeText    bool
	include        string
	exclude        string
	output         string
}

// finalConfiguration holds resolved configuration values
type finalConfiguration struct {
	format         string
	workers        int
	timeout        time.Duration
	backend        string
	flaggedOnly    bool
	verbose        bool
	debug          bool
	noColor        bool
	redactEvidence bool
	includeText    bool
	include        []string
	exclude        []string
	extractor      config.Extractor
	sources        config.Sources
}

// resolveConfiguration applies explicit flags over the config file and the
// active profile, which were already merged into cfg.
func resolveConfiguration(cfg *config.Config, flags *configFlags) *finalConfiguration {
	final := &finalConfiguration{
		format:         cfg.Defaults.Format,
		workers:        cfg.Defaults.Workers,
		timeout:        cfg.Defaults.Timeout,
		backend:        cfg.EffectiveBackend(),
		flaggedOnly:    cfg.Defaults.FlaggedOnly,
		verbose:        cfg.Defaults.Verbose,
		debug:          cfg.Defaults.Debug,
		noColor:        cfg.Defaults.NoColor,
		redactEvidence: !cfg.Defaults.ShowEvidence,
		includeText:    cfg.Defaults.IncludeText,
		include:        cfg.Sources.Include,
		exclude:        cfg.Sources.Exclude,
		extractor:      cfg.Extractor,
		sources:        cfg.Sources,
	}

	if isFlagSet("format") && flags.format != "" {
		final.format = flags.format
	} else if name, ok := formatters.FormatForPath(flags.output); ok {
		final.format = name
	}
	if isFlagSet("workers") {
		final.workers = flags.workers
	}
	if isFlagSet("timeout") {
		final.timeout = flags.timeout
	}
	if isFlagSet("backend") && flags.backend != "" {
		final.backend = flags.backend
	}
	if isFlagSet("model") && flags.model != "" {
		final.extractor.Model = flags.model
	}
	if isFlagSet("base-url") && flags.baseURL != "" {
		final.extractor.BaseURL = flags.baseURL
	}
	if isFlagSet("flagged-only") {
		final.flaggedOnly = flags.flaggedOnly
	}
	if isFlagSet("verbose") {
		final.verbose = flags.verbose
	}
	if isFlagSet("debug") {
		final.debug = flags.debug
	}
	if isFlagSet("no-color") {
		final.noColor = flags.noColor
	}
	if isFlagSet("redact-evidence") {
		final.redactEvidence = flags.redactEvidence
	}
	if isFlagSet("include-text") {
		final.includeText = flags.includeText
	}
	if isFlagSet("include") {
		final.include = splitList(flags.include)
	}
	if isFlagSet("exclude") {
		final.exclude = splitList(flags.exclude)
	}
	return final
}

func main() {
	inputFile := flag.String("input", "", "Span records to classify: JSON array, object or NDJSON ('-' for stdin)")
	scanDir := flag.String("scan", "", "Unpacked paper archive to extract comment and metadata spans from")
	documentID := flag.String("document-id", "", "Document id for -scan (default: the directory name)")
	benchmarkFile := flag.String("benchmark", "", "Labeled dataset to score the engine against")
	validateDataset := flag.String("validate-dataset", "", "Labeled dataset to validate and summarize")
	maxErrors := flag.Int("max-errors", benchmark.DefaultMaxIssues, "Problems or mismatches listed by -validate-dataset and -benchmark")
	showContract := flag.Bool("show-contract", false, "Print the extractor contract and exit")
	showVersion := flag.Bool("version", false, "Show version information")
	listChecks := flag.Bool("list-checks", false, "List signature checks and exit")
	checkHelp := flag.String("check-help", "", "Describe one signature check and exit")

	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	profileName := flag.String("profile", "", "Profile name to use from config file")
	listProfiles := flag.Bool("list-profiles", false, "List available profiles in config file")
	envFile := flag.String("env-file", ".env", "File of KEY=VALUE lines loaded before the extractor is built")

	outputFormat := flag.String("format", "", "Output format: text, json, yaml, csv, sarif (default: text)")
	outputFile := flag.String("output", "", "Path to output file (if not specified, output to stdout)")
	workers := flag.Int("workers", parallel.DefaultWorkers, "Concurrent span analyses")
	timeout := flag.Duration("timeout", 0, "Per-document deadline; documents that exceed it are discarded (0 = none)")
	backend := flag.String("backend", "", "Entity extractor: stub, openai, ollama or none")
	model := flag.String("model", "", "Model name for the openai or ollama backend")
	baseURL := flag.String("base-url", "", "Endpoint for the openai or ollama backend")
	checks := flag.String("checks", "all", "Signature families to run, e.g. SECRETS,EMAIL")
	include := flag.String("include", "", "Comma separated globs of archive files to scan")
	exclude := flag.String("exclude", "", "Comma separated globs of archive files to skip")

	flaggedOnly := flag.Bool("flagged-only", false, "Only output spans with a sensitive category")
	verbose := flag.Bool("verbose", false, "Display evidence and annotations for each span")
	debug := flag.Bool("debug", false, "Log every operation as JSON on stderr")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	redactEvidence := flag.Bool("redact-evidence", false, "Replace evidence substrings with a placeholder")
	includeText := flag.Bool("include-text", false, "Include the span text in output records")
	quiet := flag.Bool("quiet", false, "Suppress progress output")
	obsLevel := flag.String("observability", "off", "Operation telemetry on stderr: off, metrics or debug")
	flag.Parse()

	if *showVersion {
		if *outputFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(version.Full())
			return
		}
		fmt.Println(version.Info())
		return
	}
	if *listChecks || *checkHelp != "" {
		h := help.NewSystem(os.Stdout, *noColor || !isTerminal(os.Stdout))
		if *checkHelp != "" {
			if !h.ShowCheckHelp(*checkHelp) {
				os.Exit(1)
			}
			return
		}
		h.ShowChecksHelp()
		return
	}
	if *showContract {
		c := extractor.DefaultContract()
		fmt.Printf("# contract %s (sha256 %s)\n\n%s\n", c.Version, c.Digest(), c.Text)
		return
	}

	if err := godotenv.Load(*envFile); err != nil && isFlagSet("env-file") {
		fatalf("failed to load env file: %v", err)
	}

	cfgPath := *configFile
	if cfgPath == "" {
		cfgPath = config.FindConfigFile()
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	if *listProfiles {
		for _, name := range cfg.ListProfiles() {
			fmt.Printf("%-12s %s\n", name, cfg.Profiles[name].Description)
		}
		return
	}
	if *profileName != "" {
		if err := cfg.ApplyProfile(*profileName); err != nil {
			fatalf("%v", err)
		}
	}

	final := resolveConfiguration(cfg, &configFlags{
		format:         *outputFormat,
		workers:        *workers,
		timeout:        *timeout,
		backend:        *backend,
		model:          *model,
		baseURL:        *baseURL,
		flaggedOnly:    *flaggedOnly,
		verbose:        *verbose,
		debug:          *debug,
		noColor:        *noColor,
		redactEvidence: *redactEvidence,
		includeText:    *includeText,
		include:        *include,
		exclude:        *exclude,
		output:         *outputFile,
	})
	if final.workers < 1 || final.workers > 1000 {
		fatalf("workers must be between 1 and 1000, got %d", final.workers)
	}
	if _, ok := formatters.Get(final.format); !ok {
		fatalf("unknown format %q (available: %s)", final.format, strings.Join(formatters.List(), ", "))
	}
	if !isTerminal(os.Stderr) || os.Getenv("CI") != "" {
		final.noColor = true
	}
	color.NoColor = final.noColor

	if *validateDataset != "" {
		os.Exit(runValidateDataset(*validateDataset, *maxErrors, final, *outputFile))
	}

	modes := 0
	for _, set := range []bool{*inputFile != "", *scanDir != "", *benchmarkFile != ""} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one of -input, -scan, -benchmark or -validate-dataset is required")
		flag.Usage()
		os.Exit(2)
	}

	var mainDebugObs *observability.DebugObserver
	level := observability.ParseLevel(*obsLevel)
	if final.debug {
		level = observability.ObservabilityDebug
	}
	observer := observability.NewStandardObserver(level, os.Stderr)
	if level == observability.ObservabilityDebug {
		mainDebugObs = observability.NewDebugObserver(os.Stderr)
		observer = mainDebugObs.StandardObserver
		mainDebugObs.LogDetail("main", fmt.Sprintf("config=%q profile=%q backend=%s workers=%d", cfgPath, *profileName, final.backend, final.workers))
	}

	enabled, err := matcher.ParseChecksToRun(*checks)
	if err != nil {
		fatalf("%v", err)
	}
	library := matcher.NewLibrary(matcher.BuildValidatorSet(enabled))

	reliable, breaker, err := buildExtractor(final, observer)
	if err != nil {
		fatalf("%v", err)
	}
	engine := core.NewEngine(core.EngineConfig{
		Library:     library,
		Extractor:   reliable,
		Observer:    observer,
		IncludeText: final.includeText,
	})
	processor := parallel.NewParallelProcessor(engine, final.workers, final.timeout, observer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := progressPrinter(*quiet || final.debug)
	defer reportBreaker(breaker)

	if *benchmarkFile != "" {
		code := runBenchmark(ctx, *benchmarkFile, processor, progress, *maxErrors, final, *outputFile)
		observer.WriteSummary()
		reportBreaker(breaker)
		os.Exit(code)
	}

	var spans []span.Span
	if *inputFile != "" {
		spans, err = readSpans(*inputFile)
		if err != nil {
			fatalf("%v", err)
		}
	} else {
		spans, err = scanArchive(ctx, *scanDir, *documentID, final, observer, *quiet)
		if err != nil {
			fatalf("%v", err)
		}
	}
	if mainDebugObs != nil {
		mainDebugObs.LogMetric("main", "spans", len(spans))
	}

	agg := aggregate.New()
	stats, err := processor.ProcessSpans(ctx, spans, agg, progress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: run interrupted: %v\n", err)
	}
	if !*quiet && stats != nil {
		fmt.Fprintf(os.Stderr, "Analyzed %d spans in %d documents (%d discarded) in %s\n",
			stats.AnalyzedSpans, stats.TotalDocuments, stats.DiscardedDocuments, stats.TotalDuration.Round(time.Millisecond))
	}

	out, err := formatters.Export(final.format, agg.Records(), formatters.FormatterOptions{
		FlaggedOnly:    final.flaggedOnly,
		Verbose:        final.verbose,
		NoColor:        final.noColor || *outputFile != "",
		RedactEvidence: final.redactEvidence,
	})
	if err != nil {
		fatalf("failed to format results: %v", err)
	}
	if err := writeOutput(*outputFile, out); err != nil {
		fatalf("%v", err)
	}
	observer.WriteSummary()
}

// buildExtractor returns nil for the none backend, which leaves the engine
// on structural evidence alone.
func buildExtractor(final *finalConfiguration, observer *observability.StandardObserver) (*extractor.Reliable, *resilience.CircuitBreaker, error) {
	contract := extractor.DefaultContract()
	ec := final.extractor

	var inner extractor.Extractor
	switch final.backend {
	case "none":
		return nil, nil, nil
	case "stub":
		inner = extractor.NewStub()
	case "openai":
		apiKey := ""
		if ec.APIKeyEnv != "" {
			apiKey = extractor.APIKeyFromEnv(ec.APIKeyEnv)
			if apiKey == "" {
				return nil, nil, fmt.Errorf("environment variable %s is empty", ec.APIKeyEnv)
			}
		}
		inner = extractor.NewOpenAI(extractor.OpenAIConfig{
			BaseURL:     ec.BaseURL,
			Model:       ec.Model,
			APIKey:      apiKey,
			Temperature: ec.Temperature,
			MaxTokens:   ec.MaxTokens,
			Title:       "leakaudit",
		}, contract)
	case "ollama":
		inner = extractor.NewOllama(extractor.OllamaConfig{
			BaseURL:     ec.BaseURL,
			Model:       ec.Model,
			Temperature: ec.Temperature,
		}, contract)
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (stub, openai, ollama, none)", final.backend)
	}

	rc := extractor.DefaultReliableConfig()
	rc.Retry = ec.RetryConfig()
	if ec.CallTimeout > 0 {
		rc.CallTimeout = ec.CallTimeout
	}
	rc.Observer = observer
	if cbConfig, ok := ec.BreakerConfig(); ok {
		cbConfig.OnStateChange = func(name string, from, to resilience.CircuitBreakerState) {
			fmt.Fprintf(os.Stderr, "Warning: %s circuit %s -> %s\n", name, from, to)
		}
		rc.Breaker = resilience.NewCircuitBreaker(cbConfig)
	}
	return extractor.NewReliable(inner, rc), rc.Breaker, nil
}

func readSpans(path string) ([]span.Span, error) {
	if path == "-" {
		return span.Read(os.Stdin)
	}
	return span.ReadFile(path)
}

func scanArchive(ctx context.Context, dir, documentID string, final *finalConfiguration, observer *observability.StandardObserver, quiet bool) ([]span.Span, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cannot scan %s: not a directory", dir)
	}

	manager := spansource.NewDefaultManager(final.sources.MaxSpanLength)
	manager.SetObserver(observer)
	spans, problems, err := manager.Walk(ctx, spansource.WalkConfig{
		Root:         dir,
		DocumentID:   documentID,
		Include:      final.include,
		Exclude:      final.exclude,
		MaxFileBytes: final.sources.MaxFileBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("scan of %s stopped: %w", dir, err)
	}
	if !quiet {
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", p)
		}
		fmt.Fprintf(os.Stderr, "Extracted %d spans from %s\n", len(spans), dir)
	}
	return spans, nil
}

func runValidateDataset(path string, maxErrors int, final *finalConfiguration, outputFile string) int {
	records, err := benchmark.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	stats := benchmark.Describe(records, maxErrors)

	w, closeFn, err := openOutput(outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeFn()

	if final.format == "json" {
		err = stats.WriteJSON(w)
	} else {
		err = stats.WriteText(w, benchmark.ReportOptions{NoColor: final.noColor || outputFile != ""})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if stats.IssueCount > 0 {
		return 1
	}
	return 0
}

func runBenchmark(ctx context.Context, path string, processor *parallel.ParallelProcessor, progress parallel.ProgressCallback, maxErrors int, final *finalConfiguration, outputFile string) int {
	records, err := benchmark.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	cases, err := benchmark.Cases(records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid dataset: %v\n", err)
		return 1
	}

	result, err := benchmark.Run(ctx, cases, processor, progress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: benchmark interrupted: %v\n", err)
		return 1
	}

	w, closeFn, err := openOutput(outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeFn()

	if final.format == "json" {
		err = result.WriteJSON(w)
	} else {
		err = result.WriteText(w, benchmark.ReportOptions{NoColor: final.noColor || outputFile != "", MaxMisses: maxErrors})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func reportBreaker(breaker *resilience.CircuitBreaker) {
	if breaker == nil {
		return
	}
	if stats := breaker.GetStats(); stats.Rejected > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %s circuit rejected %d calls; affected spans are inconclusive\n", stats.Name, stats.Rejected)
	}
}

// progressPrinter reports committed and discarded documents on stderr.
func progressPrinter(quiet bool) parallel.ProgressCallback {
	if quiet {
		return nil
	}
	discarded := color.New(color.FgYellow)
	return func(completed, total int, documentID string, committed bool) {
		if committed {
			fmt.Fprintf(os.Stderr, "\r[%d/%d] %s", completed, total, documentID)
		} else {
			discarded.Fprintf(os.Stderr, "\r[%d/%d] %s discarded", completed, total, documentID)
		}
		if completed == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func writeOutput(path, content string) error {
	w, closeFn, err := openOutput(path)
	if err != nil {
		return err
	}
	defer closeFn()
	if _, err := io.WriteString(w, content); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// isFlagSet checks if a flag was explicitly set on the command line
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
