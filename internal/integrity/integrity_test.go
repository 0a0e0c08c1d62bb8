package integrity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfmt/docfmt/internal/document"
)

func TestCompare_WholeDocument(t *testing.T) {
	ctx := context.Background()
	doc := document.NewMemDoc("d.docx", "alpha", "beta", "gamma")

	before, err := Capture(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 3, before.ParagraphCount)

	after, err := Capture(ctx, doc)
	require.NoError(t, err)
	assert.Nil(t, before.Compare(after))

	require.NoError(t, doc.ReplaceParagraphText(ctx, 1, "changed"))
	after, err = Capture(ctx, doc)
	require.NoError(t, err)
	m := before.Compare(after)
	require.NotNil(t, m)
	assert.Equal(t, "paragraph 2 content changed", m.Message)
}

func TestCompare_CountMismatchWinsOverHashes(t *testing.T) {
	ctx := context.Background()
	doc := document.NewMemDoc("d.docx", "alpha", "beta")
	before, err := Capture(ctx, doc)
	require.NoError(t, err)

	require.NoError(t, doc.ReplaceParagraphText(ctx, 0, "other"))
	require.NoError(t, doc.DeleteParagraphs(ctx, []int{1}))
	after, err := Capture(ctx, doc)
	require.NoError(t, err)

	m := before.Compare(after)
	require.NotNil(t, m)
	assert.Equal(t, "paragraph count changed from 2 to 1", m.Message)
}

func TestCompare_ScopedReportsDocumentPosition(t *testing.T) {
	ctx := context.Background()
	doc := document.NewMemDoc("d.docx", "a", "b", "c", "d")

	before, err := CaptureScoped(ctx, doc, []int{2})
	require.NoError(t, err)

	require.NoError(t, doc.ReplaceParagraphText(ctx, 2, "edited"))
	after, err := CaptureScoped(ctx, doc, []int{2})
	require.NoError(t, err)

	m := before.Compare(after)
	require.NotNil(t, m)
	assert.Equal(t, "paragraph 3 content changed", m.Message)
}

func TestCompare_ScopedIgnoresOutOfScopeEdits(t *testing.T) {
	ctx := context.Background()
	doc := document.NewMemDoc("d.docx", "a", "b", "c")

	before, err := CaptureScoped(ctx, doc, []int{0, 2})
	require.NoError(t, err)

	require.NoError(t, doc.ReplaceParagraphText(ctx, 1, "edited"))
	after, err := CaptureScoped(ctx, doc, []int{0, 2})
	require.NoError(t, err)
	assert.Nil(t, before.Compare(after))
}

func TestCaptureScoped_OutOfRange(t *testing.T) {
	doc := document.NewMemDoc("d.docx", "a")
	_, err := CaptureScoped(context.Background(), doc, []int{5})
	assert.Error(t, err)
}
