// Package session exposes the engine surface consumers drive: analyze a
// document into a change plan, apply a selection of plan items, and undo
// applied batches.
package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/docfmt/docfmt/internal/aiparse"
	"github.com/docfmt/docfmt/internal/cache"
	"github.com/docfmt/docfmt/internal/detect"
	"github.com/docfmt/docfmt/internal/document"
	"github.com/docfmt/docfmt/internal/formatspec"
	"github.com/docfmt/docfmt/internal/llm"
	"github.com/docfmt/docfmt/internal/oplog"
	"github.com/docfmt/docfmt/internal/plan"
)

// Engine drives one document through analyze/apply/undo. It is not safe for
// concurrent use; callers serialize operations per document.
type Engine struct {
	Doc    document.Access
	Client llm.Client // nil disables AI analysis
	Model  string
	Log    *oplog.Log
	Cache  *cache.LLMCache // optional, caches model responses

	Detect   detect.Options
	Defaults formatspec.Defaults
}

// Session is one completed analysis: the findings, the derived format
// specification and the change plan built from both.
type Session struct {
	Scope          document.Scope
	Indices        []int
	ParagraphCount int

	Detection  *detect.Result
	Categories []detect.Category

	Spec            *formatspec.Spec
	Colors          []aiparse.ColorFinding
	Marks           []aiparse.MarkFinding
	Suggestions     []string
	Inconsistencies []string
	HeaderFooter    *aiparse.HeaderFooterPlan

	Plan     *plan.Plan
	Selected []string

	// Warnings records non-fatal analysis degradations, e.g. the model call
	// failing and the format specification being unavailable.
	Warnings []string
}

// AnalyzeOptions tunes one analysis pass.
type AnalyzeOptions struct {
	// UseAI enables the model-backed format specification and color/mark
	// verdicts. Without it (or without a configured client) the analysis is
	// purely rule-based.
	UseAI      bool
	OnProgress func(stage string)
}

// Analyze scans the scoped paragraphs, optionally asks the model for a
// format specification, and assembles the change plan. A failed model call
// degrades to rule-based analysis with a warning; only cancellation aborts.
func (e *Engine) Analyze(ctx context.Context, scope document.Scope, opts AnalyzeOptions) (*Session, error) {
	progress := opts.OnProgress
	if progress == nil {
		progress = func(string) {}
	}

	progress("scanning")
	indices, err := document.ResolveScopeParagraphIndices(ctx, e.Doc, scope)
	if err != nil {
		return nil, fmt.Errorf("resolve scope: %w", err)
	}
	paras, err := e.Doc.ListParagraphs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list paragraphs: %w", err)
	}
	scoped := subset(paras, indices)

	var tables []document.TableInfo
	var hfs []document.HeaderFooterInfo
	if scope.Kind == document.ScopeDocument {
		if tables, err = e.Doc.ListTables(ctx); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		if hfs, err = e.Doc.SectionHeadersFooters(ctx); err != nil {
			return nil, fmt.Errorf("list headers and footers: %w", err)
		}
	}

	progress("detecting")
	det := detect.Run(scoped, tables, hfs, e.Detect)

	s := &Session{
		Scope:          scope,
		Indices:        indices,
		ParagraphCount: len(scoped),
		Detection:      det,
		Categories:     det.Categories,
	}

	if opts.UseAI && e.Client != nil {
		progress("consulting model")
		analysis, err := e.formatAnalysis(ctx, scoped)
		switch {
		case err == nil:
			s.Spec = formatspec.Sanitize(analysis.Spec, e.Defaults)
			s.Colors = analysis.Colors
			s.Marks = analysis.Marks
			s.Suggestions = analysis.Suggestions
			s.Inconsistencies = analysis.Inconsistencies
		case ctx.Err() != nil:
			return nil, err
		default:
			log.Warn().Err(err).Str("doc", e.Doc.Name()).
				Msg("format analysis degraded to rule-based only")
			s.Warnings = append(s.Warnings,
				fmt.Sprintf("AI format analysis unavailable: %v", err))
		}

		if det.HeaderFooterDiverged && len(hfs) > 0 {
			s.HeaderFooter = e.headerFooterPlan(ctx, hfs)
		}
	}

	progress("planning")
	s.Plan = plan.Build(plan.BuildInput{
		Paragraphs:   scoped,
		Detection:    det,
		Spec:         s.Spec,
		Colors:       s.Colors,
		Marks:        s.Marks,
		HeaderFooter: s.HeaderFooter,
	})
	s.Selected = plan.DefaultSelection(s.Plan, det.Categories)
	return s, nil
}

func (e *Engine) formatAnalysis(ctx context.Context, paras []document.ParagraphInfo) (*aiparse.Analysis, error) {
	prompt := aiparse.BuildFormatAnalysisPrompt(paras)
	raw, err := e.invokeCached(ctx, aiparse.FormatAnalysisSystemPrompt, prompt, &llm.Schema{
		Name:       "format_analysis",
		Definition: aiparse.FormatAnalysisSchemaJSON,
	})
	if err != nil {
		return nil, err
	}
	return aiparse.ParseFormatAnalysis(raw)
}

func (e *Engine) headerFooterPlan(ctx context.Context, hfs []document.HeaderFooterInfo) *aiparse.HeaderFooterPlan {
	prompt := aiparse.BuildHeaderFooterPrompt(hfs)
	raw, err := e.invokeCached(ctx, aiparse.HeaderFooterSystemPrompt, prompt, nil)
	if err != nil {
		log.Warn().Err(err).Msg("header/footer planning call failed")
		return &aiparse.HeaderFooterPlan{ShouldUnify: false, Reason: "planning call failed"}
	}
	return aiparse.ParseHeaderFooterPlan(raw)
}

// invokeCached consults the response cache before calling the model. Cache
// failures only log; the call proceeds.
func (e *Engine) invokeCached(ctx context.Context, system, user string, schema *llm.Schema) (string, error) {
	var key string
	if e.Cache != nil {
		key = cache.KeyFrom(e.Model, system+"\n\n"+user)
		if b, ok, err := e.Cache.Get(ctx, key); err == nil && ok {
			log.Debug().Str("key", key).Msg("llm cache hit")
			return string(b), nil
		}
	}
	raw, err := llm.Invoke(ctx, e.Client, e.Model, system, user, schema)
	if err != nil {
		return "", err
	}
	if e.Cache != nil {
		if err := e.Cache.Save(ctx, key, []byte(raw)); err != nil {
			log.Debug().Err(err).Msg("llm cache save failed")
		}
	}
	return raw, nil
}

// Logs lists the applied batches, oldest first.
func (e *Engine) Logs() []oplog.Entry {
	if e.Log == nil {
		return nil
	}
	return e.Log.List()
}

func subset(paras []document.ParagraphInfo, indices []int) []document.ParagraphInfo {
	out := make([]document.ParagraphInfo, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(paras) {
			continue
		}
		out = append(out, paras[idx])
	}
	return out
}
