package aiparse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docfmt/docfmt/internal/document"
)

// FormatAnalysisSystemPrompt instructs the model to return strict JSON for
// the format-analysis call. Kept permissive about optional sections so that
// smaller models can answer partially.
const FormatAnalysisSystemPrompt = "You are a document formatting reviewer. Respond with strict JSON only, no narration. " +
	"The JSON schema is {\"formatSpecification\": {\"heading1|heading2|heading3|bodyText|listItem\": {\"font\": {\"name\", \"eastAsianName\", \"size\", \"bold\", \"color\"}, \"paragraph\": {\"alignment\", \"firstLineIndentChars\", \"leftIndentChars\", \"lineSpacing\", \"lineSpacingRule\", \"spaceBeforePt\", \"spaceAfterPt\"}}}, " +
	"\"colorAnalysis\": [{\"paragraphIndex\", \"text\", \"currentColor\", \"reasonable\", \"reason\", \"suggestedColor\"}], " +
	"\"formatMarkAnalysis\": [{\"paragraphIndex\", \"text\", \"formatType\": \"underline|italic|strikethrough\", \"reasonable\", \"reason\", \"keep\"}], " +
	"\"suggestions\": string[], \"inconsistencies\": string[]}. " +
	"Derive the most likely intended format per paragraph class from the samples; omit classes you cannot judge."

// HeaderFooterSystemPrompt instructs the model for header/footer planning.
const HeaderFooterSystemPrompt = "You are a document formatting reviewer. Respond with strict JSON only: " +
	"{\"shouldUnify\": bool, \"reason\": string, \"headerText\": string, \"footerText\": string, \"headerAlign\": \"left|center|right\", \"footerAlign\": \"left|center|right\", \"pageNumbers\": bool}. " +
	"Decide whether the section headers and footers should be unified to one template."

// FormatAnalysisSchemaJSON is the structured-output schema hint for backends
// that accept json_schema response formats.
var FormatAnalysisSchemaJSON = json.RawMessage(`{
  "type": "object",
  "properties": {
    "formatSpecification": {"type": "object"},
    "colorAnalysis": {"type": "array", "items": {"type": "object"}},
    "formatMarkAnalysis": {"type": "array", "items": {"type": "object"}},
    "suggestions": {"type": "array", "items": {"type": "string"}},
    "inconsistencies": {"type": "array", "items": {"type": "string"}}
  },
  "additionalProperties": true
}`)

// maxPromptParagraphs caps how many paragraph samples one analysis call
// serializes; beyond it the head is kept and a note is appended.
const maxPromptParagraphs = 120

// BuildFormatAnalysisPrompt serializes paragraph snapshots into the user
// message of the format-analysis call.
func BuildFormatAnalysisPrompt(paras []document.ParagraphInfo) string {
	var sb strings.Builder
	sb.WriteString("Analyze the formatting of the following paragraphs and derive the intended format specification.\n")
	sb.WriteString("Paragraphs (index | class hints | attributes | text sample):\n")
	n := len(paras)
	if n > maxPromptParagraphs {
		n = maxPromptParagraphs
	}
	for _, p := range paras[:n] {
		sb.WriteString(fmt.Sprintf("%d | %s | %s | %s\n",
			p.Index, classHint(p), attrSummary(p), truncate(p.Text, 80)))
	}
	if len(paras) > n {
		sb.WriteString(fmt.Sprintf("(%d more paragraphs omitted)\n", len(paras)-n))
	}
	return sb.String()
}

// BuildHeaderFooterPrompt serializes section header/footer state for the
// unification planning call.
func BuildHeaderFooterPrompt(hfs []document.HeaderFooterInfo) string {
	var sb strings.Builder
	sb.WriteString("Sections and their current headers/footers:\n")
	for _, hf := range hfs {
		sb.WriteString(fmt.Sprintf("section %d | header: %q | footer: %q\n",
			hf.SectionIndex, truncate(hf.HeaderText, 60), truncate(hf.FooterText, 60)))
	}
	return sb.String()
}

func classHint(p document.ParagraphInfo) string {
	switch {
	case p.HeadingLevel() > 0:
		return fmt.Sprintf("heading%d", p.HeadingLevel())
	case p.InList:
		return "listItem"
	case p.HasImage:
		return "image"
	default:
		return "body"
	}
}

func attrSummary(p document.ParagraphInfo) string {
	parts := []string{}
	if p.Font.Name != "" {
		parts = append(parts, "font="+p.Font.Name)
	}
	if p.Font.Size > 0 {
		parts = append(parts, fmt.Sprintf("size=%.1f", p.Font.Size))
	}
	if p.Font.Bold {
		parts = append(parts, "bold")
	}
	if p.Font.Color != "" {
		parts = append(parts, "color="+p.Font.Color)
	}
	if p.Font.Underline != "" {
		parts = append(parts, "underline="+p.Font.Underline)
	}
	if p.Font.Italic {
		parts = append(parts, "italic")
	}
	if p.Font.Strikethrough {
		parts = append(parts, "strike")
	}
	if p.Para.Alignment != "" {
		parts = append(parts, "align="+string(p.Para.Alignment))
	}
	if p.Para.LineSpacing > 0 {
		parts = append(parts, fmt.Sprintf("line=%.2f/%s", p.Para.LineSpacing, p.Para.LineSpacingRule))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "…"
}
