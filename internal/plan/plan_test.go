package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfmt/docfmt/internal/aiparse"
	"github.com/docfmt/docfmt/internal/detect"
	"github.com/docfmt/docfmt/internal/document"
	"github.com/docfmt/docfmt/internal/formatspec"
)

func lv(n int) *int { return &n }

func f64(v float64) *float64 { return &v }

func sampleSpec() *formatspec.Spec {
	return &formatspec.Spec{
		Heading1: &formatspec.ClassFormat{Para: formatspec.ParaTarget{SpaceBeforePt: f64(16)}},
		BodyText: &formatspec.ClassFormat{Font: formatspec.FontTarget{Name: "Times New Roman", EastAsianName: "SimSun"}},
	}
}

func TestBuild_EmissionOrderAndGating(t *testing.T) {
	paras := []document.ParagraphInfo{
		{Index: 0, Text: "Intro", OutlineLevel: lv(1)},
		{Index: 1, Text: "body one"},
		{Index: 2, Text: "Detail", OutlineLevel: lv(3)},
		{Index: 3, Text: "body two"},
	}
	det := &detect.Result{
		HeadingLevelFixes: []detect.HeadingLevelFix{{Index: 2, From: 3, To: 2}},
		ClassMembers: map[formatspec.Class][]int{
			formatspec.ClassHeading1: {0},
			formatspec.ClassBodyText: {1, 3},
		},
		TypographyIndices: []int{1},
		EmptyParagraphs:   []int{3},
	}
	p := Build(BuildInput{Paragraphs: paras, Detection: det, Spec: sampleSpec()})

	var ids []string
	for _, it := range p.Items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{
		"heading-level-fix",
		"heading1-style",
		"body-style",
		"heading-numbering",
		"mixed-typography",
		"pagination-control",
	}, ids)

	// heading2/3 styles are gated on the spec actually covering the level.
	assert.Nil(t, p.Find("heading3-style"))

	// the last item is the structural one
	last := p.Items[len(p.Items)-1]
	assert.Equal(t, TypePaginationControl, last.Type)
	assert.True(t, last.RequiresContentChange)
}

func TestBuild_ColorAndMarkItemsFilterVerdicts(t *testing.T) {
	colors := []aiparse.ColorFinding{
		{ParagraphIndex: 1, Reasonable: true, SuggestedColor: "000000"},
		{ParagraphIndex: 2, Reasonable: false, SuggestedColor: "000000"},
		{ParagraphIndex: 3, Reasonable: false}, // no replacement proposed
	}
	marks := []aiparse.MarkFinding{
		{ParagraphIndex: 4, FormatType: document.MarkUnderline, Keep: true},
		{ParagraphIndex: 5, FormatType: document.MarkUnderline, Keep: false},
		{ParagraphIndex: 6, FormatType: document.MarkItalic, Keep: false},
	}
	p := Build(BuildInput{Colors: colors, Marks: marks, Spec: sampleSpec()})

	cc := p.Find("color-correction")
	require.NotNil(t, cc)
	assert.Equal(t, []int{2}, cc.ParagraphIndices)

	ur := p.Find("underline-removal")
	require.NotNil(t, ur)
	assert.Equal(t, []int{5}, ur.ParagraphIndices)

	ir := p.Find("italic-removal")
	require.NotNil(t, ir)
	assert.Equal(t, []int{6}, ir.ParagraphIndices)
}

func TestHeadingNumbers_StripsExistingPrefixes(t *testing.T) {
	paras := []document.ParagraphInfo{
		{Index: 0, Text: "3. Introduction", OutlineLevel: lv(1)},
		{Index: 1, Text: "Background", OutlineLevel: lv(2)},
		{Index: 2, Text: "1.1 Scope", OutlineLevel: lv(2)},
		{Index: 3, Text: "Next chapter", OutlineLevel: lv(1)},
	}
	nums := HeadingNumbers(paras)

	assert.Equal(t, "1 Introduction", nums[0])
	assert.Equal(t, "1.1 Background", nums[1])
	assert.Equal(t, "1.2 Scope", nums[2])
	assert.Equal(t, "2 Next chapter", nums[3])
}

func TestRenumberCaption(t *testing.T) {
	fix := detect.CaptionFix{Expected: 2}
	assert.Equal(t, "图2. 流程", RenumberCaption("图3. 流程", fix))
	assert.Equal(t, "Figure 2: results", RenumberCaption("Figure 5: results", fix))
	assert.Equal(t, "表2：参数", RenumberCaption("表：参数", detect.CaptionFix{Expected: 2}))
}

func TestDefaultSelection_IssueDrivenLowRiskOnly(t *testing.T) {
	p := &Plan{Items: []Item{
		{ID: "body-style", Type: TypeBodyStyle},
		{ID: "heading-numbering", Type: TypeHeadingNumbering, RequiresContentChange: true},
		{ID: "table-style", Type: TypeTableStyle},
		{ID: "mixed-typography", Type: TypeMixedTypography, RequiresContentChange: true},
		{ID: "special-content", Type: TypeSpecialContent},
	}}
	cats := []detect.Category{
		{Key: detect.CategoryBody, Issues: []detect.Issue{{Name: "x", Indices: []int{1}}}},
		{Key: detect.CategoryTable, Issues: []detect.Issue{{Name: "y", Indices: []int{0}}}},
		{Key: detect.CategoryTypography, Issues: []detect.Issue{{Name: "z", Indices: []int{2}}}},
	}
	got := DefaultSelection(p, cats)

	// body-style: issue-backed, low risk -> selected.
	// heading-numbering, mixed-typography: content-changing -> excluded.
	// table-style: high-impact global -> excluded.
	// special-content: its category produced no findings -> excluded.
	assert.Equal(t, []string{"body-style"}, got)
}
