package aiparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfmt/docfmt/internal/document"
)

func TestExtractJSONObject_WholeString(t *testing.T) {
	obj, err := ExtractJSONObject(`  {"a": 1}  `)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(obj))
}

func TestExtractJSONObject_FencedBlockInsideProse(t *testing.T) {
	raw := "Sure! Here is the analysis you asked for:\n\n```json\n{\"formatSpecification\": {\"bodyText\": {\"font\": {\"name\": \"SimSun\"}, \"paragraph\": {}}}}\n```\n\nLet me know if you need anything else."
	obj, err := ExtractJSONObject(raw)
	require.NoError(t, err)
	assert.Contains(t, string(obj), "SimSun")
}

func TestExtractJSONObject_BraceScanIgnoresBracesInStrings(t *testing.T) {
	raw := `The spec is {"note": "braces like { and } inside strings", "n": 2} as requested.`
	obj, err := ExtractJSONObject(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"note": "braces like { and } inside strings", "n": 2}`, string(obj))
}

func TestExtractJSONObject_EscapedQuotes(t *testing.T) {
	raw := `prefix {"s": "a \"quoted\" brace }", "k": 1} suffix`
	obj, err := ExtractJSONObject(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"s": "a \"quoted\" brace }", "k": 1}`, string(obj))
}

func TestExtractJSONObject_NoJSON(t *testing.T) {
	_, err := ExtractJSONObject("I could not analyze the document, sorry.")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestParseFormatAnalysis_DropsMalformedEntries(t *testing.T) {
	raw := `{
	  "formatSpecification": {"bodyText": {"font": {"name": "SimSun"}, "paragraph": {"lineSpacing": 1.5}}},
	  "colorAnalysis": [
	    {"paragraphIndex": 3, "currentColor": "#FF0000", "reasonable": false, "suggestedColor": "000000"},
	    {"paragraphIndex": -1, "currentColor": "00FF00"},
	    {"paragraphIndex": "nope"}
	  ],
	  "formatMarkAnalysis": [
	    {"paragraphIndex": 5, "formatType": "underline", "keep": false},
	    {"paragraphIndex": 6, "formatType": "blink", "keep": true}
	  ],
	  "suggestions": ["tighten spacing", "", 42, "  unify fonts  "]
	}`
	a, err := ParseFormatAnalysis(raw)
	require.NoError(t, err)

	require.NotNil(t, a.Spec)
	assert.Equal(t, "SimSun", a.Spec.BodyText.Font.Name)

	require.Len(t, a.Colors, 1)
	assert.Equal(t, 3, a.Colors[0].ParagraphIndex)
	assert.Equal(t, "FF0000", a.Colors[0].CurrentColor)

	require.Len(t, a.Marks, 1)
	assert.Equal(t, document.MarkUnderline, a.Marks[0].FormatType)
	assert.False(t, a.Marks[0].Keep)

	assert.Equal(t, []string{"tighten spacing", "unify fonts"}, a.Suggestions)
}

func TestParseFormatAnalysis_NoJSONIsHardError(t *testing.T) {
	_, err := ParseFormatAnalysis("no structured content here")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot parse AI format specification")
}

func TestParseHeaderFooterPlan_SoftFallback(t *testing.T) {
	plan := ParseHeaderFooterPlan("the model rambled with no JSON at all")
	assert.False(t, plan.ShouldUnify)
	assert.Equal(t, "cannot parse", plan.Reason)

	plan = ParseHeaderFooterPlan(`{"shouldUnify": true, "headerText": "Q3 Report", "headerAlign": "center"}`)
	assert.True(t, plan.ShouldUnify)
	assert.Equal(t, "Q3 Report", plan.HeaderText)
}
