package session

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfmt/docfmt/internal/detect"
	"github.com/docfmt/docfmt/internal/document"
	"github.com/docfmt/docfmt/internal/execute"
	"github.com/docfmt/docfmt/internal/formatspec"
	"github.com/docfmt/docfmt/internal/oplog"
)

type fakeClient struct {
	content string
	err     error
	calls   int
}

func (f *fakeClient) CreateChatCompletion(ctx context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

const analysisJSON = `{
	"formatSpecification": {
		"bodyText": {
			"font": {"name": "Times New Roman", "eastAsianName": "SimSun", "size": 12},
			"paragraph": {"alignment": "justify", "lineSpacing": 1.5, "lineSpacingRule": "multiple"}
		}
	},
	"colorAnalysis": [
		{"paragraphIndex": 1, "reasonable": false, "currentColor": "FF00FF", "suggestedColor": "000000"}
	],
	"formatMarkAnalysis": [],
	"suggestions": ["unify the body font"]
}`

func newEngine(doc document.Access, client *fakeClient) *Engine {
	e := &Engine{
		Doc:      doc,
		Model:    "gpt-4o-mini",
		Log:      &oplog.Log{},
		Detect:   detect.DefaultOptions(),
		Defaults: formatspec.StandardDefaults(),
	}
	if client != nil {
		e.Client = client
	}
	return e
}

func TestAnalyze_RuleBasedWithoutClient(t *testing.T) {
	doc := document.NewMemDoc("d.docx", "first paragraph", "second paragraph", "third")
	e := newEngine(doc, nil)

	s, err := e.Analyze(context.Background(), document.WholeDocument(), AnalyzeOptions{UseAI: true})
	require.NoError(t, err)
	assert.Equal(t, 3, s.ParagraphCount)
	assert.Nil(t, s.Spec)
	require.NotNil(t, s.Plan)
	assert.Empty(t, s.Warnings)
}

func TestAnalyze_ModelBackedSpecAndPlan(t *testing.T) {
	doc := document.NewMemDoc("d.docx", "first", "oddly colored", "third")
	client := &fakeClient{content: analysisJSON}
	e := newEngine(doc, client)

	s, err := e.Analyze(context.Background(), document.WholeDocument(), AnalyzeOptions{UseAI: true})
	require.NoError(t, err)
	require.NotNil(t, s.Spec)
	require.NotNil(t, s.Spec.BodyText)
	assert.Equal(t, "Times New Roman", s.Spec.BodyText.Font.Name)
	assert.Equal(t, []string{"unify the body font"}, s.Suggestions)

	cc := s.Plan.Find("color-correction")
	require.NotNil(t, cc)
	assert.Equal(t, []int{1}, cc.ParagraphIndices)

	require.NotNil(t, s.Plan.Find("body-style"))
}

func TestAnalyze_ModelFailureDegradesWithWarning(t *testing.T) {
	doc := document.NewMemDoc("d.docx", "a", "b")
	client := &fakeClient{err: errors.New("upstream unavailable")}
	e := newEngine(doc, client)

	s, err := e.Analyze(context.Background(), document.WholeDocument(), AnalyzeOptions{UseAI: true})
	require.NoError(t, err)
	assert.Nil(t, s.Spec)
	require.Len(t, s.Warnings, 1)
	assert.Contains(t, s.Warnings[0], "AI format analysis unavailable")
	require.NotNil(t, s.Plan)
}

func TestAnalyze_CancellationAborts(t *testing.T) {
	doc := document.NewMemDoc("d.docx", "a")
	client := &fakeClient{content: analysisJSON}
	e := newEngine(doc, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Analyze(ctx, document.WholeDocument(), AnalyzeOptions{UseAI: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyThenUndo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	doc := document.NewMemDoc("d.docx", "first", "second", "third")
	client := &fakeClient{content: analysisJSON}
	e := newEngine(doc, client)

	s, err := e.Analyze(ctx, document.WholeDocument(), AnalyzeOptions{UseAI: true})
	require.NoError(t, err)
	require.NotNil(t, s.Plan.Find("body-style"))

	res, err := e.Apply(ctx, s, []string{"body-style"}, ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, execute.StatusCompleted, res.Status)
	assert.Equal(t, []string{"body-style"}, res.Executed)
	assert.NotEmpty(t, res.LogID)
	assert.Equal(t, 1, e.Log.Len())

	paras, err := doc.ListParagraphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Times New Roman", paras[0].Font.Name)

	entry, err := e.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.LogID, entry.ID)
	assert.Equal(t, 0, e.Log.Len())

	paras, err = doc.ListParagraphs(ctx)
	require.NoError(t, err)
	assert.Empty(t, paras[0].Font.Name)
}

func TestApply_DeletionBatchGetsAdvisory(t *testing.T) {
	ctx := context.Background()
	doc := document.NewMemDoc("d.docx", "a", "", "b", "", "c")
	e := newEngine(doc, nil)

	s, err := e.Analyze(ctx, document.WholeDocument(), AnalyzeOptions{})
	require.NoError(t, err)
	require.NotNil(t, s.Plan.Find("pagination-control"))

	res, err := e.Apply(ctx, s, []string{"pagination-control"}, ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, execute.StatusCompleted, res.Status)
	require.Len(t, res.Advisories, 1)
	assert.Contains(t, res.Advisories[0], "deleted as planned")

	paras, err := doc.ListParagraphs(ctx)
	require.NoError(t, err)
	require.Len(t, paras, 3)

	// the undo snapshot predates the deletion
	_, err = e.Undo(ctx)
	require.NoError(t, err)
	paras, err = doc.ListParagraphs(ctx)
	require.NoError(t, err)
	assert.Len(t, paras, 5)
}

func TestUndo_LIFOAcrossTwoBatches(t *testing.T) {
	ctx := context.Background()
	doc := document.NewMemDoc("d.docx", "first", "", "second", "", "third")
	client := &fakeClient{content: analysisJSON}
	e := newEngine(doc, client)

	s, err := e.Analyze(ctx, document.WholeDocument(), AnalyzeOptions{UseAI: true})
	require.NoError(t, err)
	_, err = e.Apply(ctx, s, []string{"body-style"}, ApplyOptions{})
	require.NoError(t, err)

	s, err = e.Analyze(ctx, document.WholeDocument(), AnalyzeOptions{UseAI: true})
	require.NoError(t, err)
	require.NotNil(t, s.Plan.Find("pagination-control"))
	_, err = e.Apply(ctx, s, []string{"pagination-control"}, ApplyOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, e.Log.Len())

	paras, err := doc.ListParagraphs(ctx)
	require.NoError(t, err)
	require.Len(t, paras, 3)

	// one undo rewinds only the second batch: the empty paragraphs return
	// and the first batch's formatting is still in place
	_, err = e.Undo(ctx)
	require.NoError(t, err)
	paras, err = doc.ListParagraphs(ctx)
	require.NoError(t, err)
	require.Len(t, paras, 5)
	assert.Equal(t, "Times New Roman", paras[0].Font.Name)

	// a second undo reaches the pristine document
	_, err = e.Undo(ctx)
	require.NoError(t, err)
	paras, err = doc.ListParagraphs(ctx)
	require.NoError(t, err)
	require.Len(t, paras, 5)
	assert.Empty(t, paras[0].Font.Name)
	assert.Equal(t, 0, e.Log.Len())
}

func TestApply_UnknownItemID(t *testing.T) {
	doc := document.NewMemDoc("d.docx", "a")
	e := newEngine(doc, nil)
	s, err := e.Analyze(context.Background(), document.WholeDocument(), AnalyzeOptions{})
	require.NoError(t, err)

	_, err = e.Apply(context.Background(), s, []string{"no-such-item"}, ApplyOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown change item")
}

func TestUndo_EmptyLog(t *testing.T) {
	doc := document.NewMemDoc("d.docx", "a")
	e := newEngine(doc, nil)
	_, err := e.Undo(context.Background())
	assert.ErrorIs(t, err, oplog.ErrNothingToUndo)
}
