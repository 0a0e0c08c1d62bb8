package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfmt/docfmt/internal/detect"
	"github.com/docfmt/docfmt/internal/document"
	"github.com/docfmt/docfmt/internal/plan"
	"github.com/docfmt/docfmt/internal/session"
)

func TestLoadConfigFile_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docfmt.yaml")
	content := "" +
		"doc: thesis.docx\n" +
		"llm:\n" +
		"  base: http://localhost:1234/v1\n" +
		"  model: qwen2.5\n" +
		"ai:\n" +
		"  enable: false\n" +
		"scope:\n" +
		"  kind: section\n" +
		"  section: 2\n" +
		"apply:\n" +
		"  items: [body-style, heading1-style]\n" +
		"  chineseFont: FangSong\n" +
		"cache:\n" +
		"  dir: /tmp/docfmt-cache\n" +
		"verbose: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	fc, err := LoadConfigFile(path)
	require.NoError(t, err)

	cfg := Config{ScopeKind: "document", UseAI: true, BatchSize: 20}
	ApplyFileConfig(&cfg, fc)

	assert.Equal(t, "thesis.docx", cfg.DocPath)
	assert.Equal(t, "http://localhost:1234/v1", cfg.LLMBaseURL)
	assert.Equal(t, "qwen2.5", cfg.LLMModel)
	assert.False(t, cfg.UseAI)
	assert.Equal(t, "section", cfg.ScopeKind)
	assert.Equal(t, 2, cfg.SectionNumber)
	assert.Equal(t, []string{"body-style", "heading1-style"}, cfg.SelectIDs)
	assert.Equal(t, "FangSong", cfg.ChineseFont)
	assert.Equal(t, "/tmp/docfmt-cache", cfg.CacheDir)
	assert.True(t, cfg.Verbose)
}

func TestApplyFileConfig_FlagsWin(t *testing.T) {
	fc := FileConfig{Doc: "from-file.docx"}
	fc.LLM.Model = "file-model"

	cfg := Config{DocPath: "from-flag.docx", LLMModel: "flag-model"}
	ApplyFileConfig(&cfg, fc)

	assert.Equal(t, "from-flag.docx", cfg.DocPath)
	assert.Equal(t, "flag-model", cfg.LLMModel)
}

func TestScopeMapping(t *testing.T) {
	a := &App{cfg: Config{ScopeKind: "selection", SelectionStart: 2, SelectionEnd: 5}}
	assert.Equal(t, document.Scope{Kind: document.ScopeSelection, Start: 2, End: 5}, a.scope())

	a = &App{cfg: Config{ScopeKind: "indices", Indices: []int{4, 1}}}
	assert.Equal(t, document.ScopeIndices, a.scope().Kind)

	a = &App{cfg: Config{}}
	assert.Equal(t, document.WholeDocument(), a.scope())
}

func TestWriteReport_MarksDefaultSelection(t *testing.T) {
	s := &session.Session{
		Scope:   document.WholeDocument(),
		Indices: []int{0, 1, 2},
		Categories: []detect.Category{{
			Key:   detect.CategoryBody,
			Title: "Body text consistency",
			Issues: []detect.Issue{{
				Name:     "inconsistent body format",
				Severity: detect.SeverityWarning,
				Indices:  []int{1, 2},
				Sample:   "正文 body",
			}},
		}},
		Plan: &plan.Plan{Items: []plan.Item{
			{ID: "body-style", Title: "Unify body text format", Type: plan.TypeBodyStyle},
			{ID: "table-style", Title: "Unify table style", Type: plan.TypeTableStyle},
		}},
		Selected: []string{"body-style"},
	}

	var sb strings.Builder
	writeReport(&sb, "thesis.docx", s)
	out := sb.String()

	assert.Contains(t, out, "3 paragraphs in scope (whole document)")
	assert.Contains(t, out, "Body text consistency")
	assert.Contains(t, out, "(2 paragraphs)")
	assert.Contains(t, out, "[x] body-style")
	assert.Contains(t, out, "[ ] table-style")
}

func TestUndoPath(t *testing.T) {
	assert.Equal(t, "out.docx.undo", undoPath("out.docx"))
}

type fakeLister struct {
	ids []string
}

func (f *fakeLister) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, nil
}

func (f *fakeLister) ListModels(_ context.Context) (openai.ModelsList, error) {
	models := make([]openai.Model, 0, len(f.ids))
	for _, id := range f.ids {
		models = append(models, openai.Model{ID: id})
	}
	return openai.ModelsList{Models: models}, nil
}

func TestListModels_PrintsBackendModels(t *testing.T) {
	a := &App{
		cfg:    Config{ListModels: true},
		engine: &session.Engine{Client: &fakeLister{ids: []string{"qwen2.5", "glm-4"}}},
	}
	var sb strings.Builder
	require.NoError(t, a.listModels(context.Background(), &sb))
	assert.Equal(t, "qwen2.5\nglm-4\n", sb.String())
}

func TestListModels_NoBackend(t *testing.T) {
	a := &App{cfg: Config{ListModels: true}, engine: &session.Engine{}}
	err := a.listModels(context.Background(), &strings.Builder{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model backend")
}
