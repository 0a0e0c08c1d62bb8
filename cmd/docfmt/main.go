package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/docfmt/docfmt/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		docPath     string
		outputPath  string
		configPath  string
		llmBaseURL  string
		llmModel    string
		llmKey      string
		noAI        bool
		listModels  bool
		scopeKind   string
		scopeStart  int
		scopeEnd    int
		section     int
		indicesCSV  string
		apply       bool
		itemsCSV    string
		batchSize   int
		chineseFont string
		englishFont string
		undo        bool
		dryRun      bool
		cacheDir    string
		cacheStrict bool
		verbose     bool
	)

	flag.StringVar(&docPath, "doc", "", "Path to the .docx document to analyze")
	flag.StringVar(&outputPath, "output", "", "Path to write the modified document (default: overwrite -doc)")
	flag.StringVar(&configPath, "config", os.Getenv("DOCFMT_CONFIG"), "Optional YAML/JSON config file")
	flag.StringVar(&llmBaseURL, "llm.base", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", os.Getenv("LLM_MODEL"), "Model name")
	flag.StringVar(&llmKey, "llm.key", os.Getenv("LLM_API_KEY"), "API key for OpenAI-compatible server")
	flag.BoolVar(&noAI, "no-ai", false, "Disable the model-backed format analysis; rule-based detection only")
	flag.BoolVar(&listModels, "models", false, "List the models the configured backend serves, then exit")
	flag.StringVar(&scopeKind, "scope", "document", "Analysis scope: document, selection, section or indices")
	flag.IntVar(&scopeStart, "scope.start", 0, "First paragraph of a selection scope")
	flag.IntVar(&scopeEnd, "scope.end", 0, "Last paragraph of a selection scope (inclusive)")
	flag.IntVar(&section, "scope.section", 0, "Section number for a section scope (1-based)")
	flag.StringVar(&indicesCSV, "scope.indices", "", "Comma-separated paragraph indices for an indices scope")
	flag.BoolVar(&apply, "apply", false, "Execute the selected change items and write the document back")
	flag.StringVar(&itemsCSV, "items", "", "Comma-separated change item ids to apply (default: the pre-checked selection)")
	flag.IntVar(&batchSize, "batchSize", 20, "Paragraphs per formatting batch")
	flag.StringVar(&chineseFont, "fonts.chinese", "", "Override the CJK font used by merged typography changes")
	flag.StringVar(&englishFont, "fonts.english", "", "Override the Latin font used by merged typography changes")
	flag.BoolVar(&undo, "undo", false, "Restore the document from the last apply's undo sidecar")
	flag.BoolVar(&dryRun, "dry-run", false, "Analyze and print the plan without applying anything")
	flag.StringVar(&cacheDir, "cache.dir", ".docfmt-cache", "Model response cache directory; empty disables")
	flag.BoolVar(&cacheStrict, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := app.Config{
		DocPath:          docPath,
		OutputPath:       outputPath,
		ScopeKind:        scopeKind,
		SelectionStart:   scopeStart,
		SelectionEnd:     scopeEnd,
		SectionNumber:    section,
		LLMBaseURL:       llmBaseURL,
		LLMModel:         llmModel,
		LLMAPIKey:        llmKey,
		UseAI:            !noAI,
		ListModels:       listModels,
		Apply:            apply,
		BatchSize:        batchSize,
		ChineseFont:      chineseFont,
		EnglishFont:      englishFont,
		Undo:             undo,
		DryRun:           dryRun,
		CacheDir:         cacheDir,
		CacheStrictPerms: cacheStrict,
		Verbose:          verbose,
	}
	cfg.Indices = parseIntList(indicesCSV)
	cfg.SelectIDs = parseList(itemsCSV)

	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("config file")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	return a.Run(ctx)
}

func parseList(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseIntList(csv string) []int {
	out := []int(nil)
	for _, s := range parseList(csv) {
		n, err := strconv.Atoi(s)
		if err != nil {
			log.Warn().Str("value", s).Msg("ignoring non-numeric paragraph index")
			continue
		}
		out = append(out, n)
	}
	return out
}
