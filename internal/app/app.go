package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/docfmt/docfmt/internal/cache"
	"github.com/docfmt/docfmt/internal/detect"
	"github.com/docfmt/docfmt/internal/document"
	"github.com/docfmt/docfmt/internal/docx"
	"github.com/docfmt/docfmt/internal/execute"
	"github.com/docfmt/docfmt/internal/formatspec"
	"github.com/docfmt/docfmt/internal/llm"
	"github.com/docfmt/docfmt/internal/oplog"
	"github.com/docfmt/docfmt/internal/session"
)

// App wires the document store and the analysis engine for one run.
type App struct {
	cfg    Config
	store  *docx.Store
	engine *session.Engine
}

func New(ctx context.Context, cfg Config) (*App, error) {
	var store *docx.Store
	if !cfg.ListModels {
		if cfg.DocPath == "" {
			return nil, fmt.Errorf("document path is required")
		}
		var err error
		store, err = docx.Open(cfg.DocPath)
		if err != nil {
			return nil, fmt.Errorf("open document: %w", err)
		}
	}

	eng := &session.Engine{
		Doc:      store,
		Model:    cfg.LLMModel,
		Log:      &oplog.Log{},
		Detect:   detect.DefaultOptions(),
		Defaults: formatspec.StandardDefaults(),
	}
	if (cfg.UseAI && cfg.LLMModel != "") || cfg.ListModels {
		transportCfg := openai.DefaultConfig(cfg.LLMAPIKey)
		if cfg.LLMBaseURL != "" {
			transportCfg.BaseURL = cfg.LLMBaseURL
		}
		eng.Client = &llm.OpenAIProvider{Inner: openai.NewClientWithConfig(transportCfg)}
	}
	if cfg.CacheDir != "" {
		eng.Cache = &cache.LLMCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}
	return &App{cfg: cfg, store: store, engine: eng}, nil
}

// Run performs one analyze and, when requested, one apply pass. Undo mode
// restores the document from the undo sidecar written by the last apply.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.ListModels {
		return a.listModels(ctx, os.Stdout)
	}
	if a.cfg.Undo {
		return a.undo(ctx)
	}

	sess, err := a.engine.Analyze(ctx, a.scope(), session.AnalyzeOptions{
		UseAI: a.engine.Client != nil,
		OnProgress: func(stage string) {
			log.Debug().Str("stage", stage).Msg("analyze")
		},
	})
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	writeReport(os.Stdout, a.store.Name(), sess)

	if !a.cfg.Apply || a.cfg.DryRun {
		return nil
	}

	ids := a.cfg.SelectIDs
	if len(ids) == 0 {
		ids = sess.Selected
	}
	if len(ids) == 0 {
		log.Info().Msg("no change items selected; nothing to apply")
		return nil
	}

	res, err := a.engine.Apply(ctx, sess, ids, session.ApplyOptions{
		BatchSize: a.cfg.BatchSize,
		Fonts:     execute.FontOverrides{ChineseFont: a.cfg.ChineseFont, EnglishFont: a.cfg.EnglishFont},
		OnProgress: func(itemID string, done, total int) {
			log.Debug().Str("item", itemID).Int("done", done).Int("total", total).Msg("apply")
		},
	})
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	for _, n := range res.Advisories {
		log.Warn().Str("note", n).Msg("integrity advisory")
	}

	out := a.outputPath()
	if err := a.store.Save(out); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if err := a.writeUndoSidecar(out); err != nil {
		log.Warn().Err(err).Msg("undo sidecar not written")
	}
	log.Info().Str("output", out).Int("items", len(res.Executed)).Str("log", res.LogID).Msg("changes applied")
	return nil
}

// listModels prints the ids of the models the configured backend serves,
// one per line.
func (a *App) listModels(ctx context.Context, w io.Writer) error {
	lister, ok := a.engine.Client.(llm.ModelLister)
	if !ok {
		return fmt.Errorf("model listing requires a configured model backend")
	}
	list, err := lister.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, m := range list.Models {
		fmt.Fprintln(w, m.ID)
	}
	return nil
}

// undo restores the document from the snapshot saved next to the last apply
// output and removes the sidecar.
func (a *App) undo(ctx context.Context) error {
	out := a.outputPath()
	sidecar := undoPath(out)
	b, err := os.ReadFile(sidecar)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("nothing to undo: no sidecar at %s", sidecar)
		}
		return fmt.Errorf("read undo sidecar: %w", err)
	}
	st, err := docx.Open(out)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	if err := st.RestoreOOXML(ctx, string(b)); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	if err := st.Save(out); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	_ = os.Remove(sidecar)
	log.Info().Str("output", out).Msg("last apply undone")
	return nil
}

// writeUndoSidecar persists the pre-batch snapshot of the most recent log
// entry so a later invocation can revert the apply.
func (a *App) writeUndoSidecar(out string) error {
	entries := a.engine.Logs()
	if len(entries) == 0 {
		return fmt.Errorf("operation log is empty")
	}
	snap := entries[len(entries)-1].SnapshotOOXML
	if snap == "" {
		return fmt.Errorf("log entry carries no snapshot")
	}
	return os.WriteFile(undoPath(out), []byte(snap), 0o600)
}

func (a *App) outputPath() string {
	if a.cfg.OutputPath != "" {
		return a.cfg.OutputPath
	}
	return a.cfg.DocPath
}

func undoPath(docPath string) string { return docPath + ".undo" }

func (a *App) scope() document.Scope {
	switch a.cfg.ScopeKind {
	case "selection":
		return document.Scope{Kind: document.ScopeSelection, Start: a.cfg.SelectionStart, End: a.cfg.SelectionEnd}
	case "section":
		return document.Scope{Kind: document.ScopeSection, Section: a.cfg.SectionNumber}
	case "indices":
		return document.Scope{Kind: document.ScopeIndices, Indices: a.cfg.Indices}
	}
	return document.WholeDocument()
}

// writeReport prints the analysis summary and the selectable change plan.
// Items in the default selection are marked with [x].
func writeReport(w io.Writer, name string, s *session.Session) {
	fmt.Fprintf(w, "%s: %d paragraphs in scope (%s)\n", name, len(s.Indices), scopeLabel(s.Scope))
	for _, warn := range s.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}

	findings := 0
	for _, c := range s.Categories {
		if !c.HasFindings() {
			continue
		}
		findings++
		fmt.Fprintf(w, "\n%s\n", c.Title)
		for _, iss := range c.Issues {
			line := fmt.Sprintf("  [%s] %s", iss.Severity, iss.Name)
			if len(iss.Indices) > 0 {
				line += fmt.Sprintf(" (%d paragraphs)", len(iss.Indices))
			}
			if iss.Sample != "" {
				line += fmt.Sprintf(" e.g. %q", iss.Sample)
			}
			fmt.Fprintln(w, line)
		}
	}
	if findings == 0 {
		fmt.Fprintln(w, "no formatting issues detected")
	}

	if s.Spec != nil {
		fmt.Fprintf(w, "\nderived format specification covers: %s\n", classList(s.Spec))
	}
	for _, sg := range s.Suggestions {
		fmt.Fprintf(w, "suggestion: %s\n", sg)
	}

	if s.Plan == nil || len(s.Plan.Items) == 0 {
		fmt.Fprintln(w, "\nno changes proposed")
		return
	}
	selected := map[string]bool{}
	for _, id := range s.Selected {
		selected[id] = true
	}
	fmt.Fprintln(w, "\nproposed changes:")
	for _, it := range s.Plan.Items {
		mark := " "
		if selected[it.ID] {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %-24s %s\n", mark, it.ID, it.Title)
		if it.Description != "" {
			fmt.Fprintf(w, "      %s\n", it.Description)
		}
	}
}

func scopeLabel(sc document.Scope) string {
	switch sc.Kind {
	case document.ScopeSelection:
		return fmt.Sprintf("selection %d..%d", sc.Start, sc.End)
	case document.ScopeSection:
		return fmt.Sprintf("section %d", sc.Section)
	case document.ScopeIndices:
		return fmt.Sprintf("%d explicit paragraphs", len(sc.Indices))
	}
	return "whole document"
}

func classList(spec *formatspec.Spec) string {
	present := spec.Present()
	names := make([]string, 0, len(present))
	for _, c := range present {
		names = append(names, string(c))
	}
	if len(names) == 0 {
		return "no classes"
	}
	return strings.Join(names, ", ")
}
