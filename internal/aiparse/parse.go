package aiparse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/docfmt/docfmt/internal/document"
	"github.com/docfmt/docfmt/internal/formatspec"
)

// ColorFinding is one AI verdict on a paragraph's font color.
type ColorFinding struct {
	ParagraphIndex int    `json:"paragraphIndex"`
	Sample         string `json:"text,omitempty"`
	CurrentColor   string `json:"currentColor,omitempty"`
	Reasonable     bool   `json:"reasonable"`
	Rationale      string `json:"reason,omitempty"`
	SuggestedColor string `json:"suggestedColor,omitempty"`
}

// MarkFinding is one AI verdict on an underline/italic/strikethrough mark.
type MarkFinding struct {
	ParagraphIndex int               `json:"paragraphIndex"`
	Sample         string            `json:"text,omitempty"`
	FormatType     document.MarkKind `json:"formatType"`
	Reasonable     bool              `json:"reasonable"`
	Rationale      string            `json:"reason,omitempty"`
	Keep           bool              `json:"keep"`
}

// Analysis is the structured result of the format-analysis model call.
type Analysis struct {
	Spec            *formatspec.Spec
	Colors          []ColorFinding
	Marks           []MarkFinding
	Suggestions     []string
	Inconsistencies []string
}

// HeaderFooterPlan is the (soft-fallback) result of the header/footer call.
type HeaderFooterPlan struct {
	ShouldUnify bool   `json:"shouldUnify"`
	Reason      string `json:"reason,omitempty"`
	HeaderText  string `json:"headerText,omitempty"`
	FooterText  string `json:"footerText,omitempty"`
	HeaderAlign string `json:"headerAlign,omitempty"`
	FooterAlign string `json:"footerAlign,omitempty"`
	PageNumbers bool   `json:"pageNumbers,omitempty"`
}

type rawAnalysis struct {
	FormatSpecification *formatspec.Spec  `json:"formatSpecification"`
	ColorAnalysis       []json.RawMessage `json:"colorAnalysis"`
	FormatMarkAnalysis  []json.RawMessage `json:"formatMarkAnalysis"`
	Suggestions         []any             `json:"suggestions"`
	Inconsistencies     []any             `json:"inconsistencies"`
}

// ParseFormatAnalysis extracts and validates the format-analysis payload.
// Missing JSON is a hard error; malformed individual entries are dropped
// rather than failing the whole parse.
func ParseFormatAnalysis(raw string) (*Analysis, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("cannot parse AI format specification: %w", err)
	}
	var ra rawAnalysis
	if err := json.Unmarshal(obj, &ra); err != nil {
		return nil, fmt.Errorf("cannot parse AI format specification: %w", err)
	}
	out := &Analysis{
		Spec:            ra.FormatSpecification,
		Suggestions:     filterStrings(ra.Suggestions),
		Inconsistencies: filterStrings(ra.Inconsistencies),
	}
	for _, item := range ra.ColorAnalysis {
		var cf ColorFinding
		if err := json.Unmarshal(item, &cf); err != nil || cf.ParagraphIndex < 0 {
			log.Debug().Msg("dropping malformed color analysis entry")
			continue
		}
		cf.CurrentColor = normalizeHex(cf.CurrentColor)
		cf.SuggestedColor = normalizeHex(cf.SuggestedColor)
		out.Colors = append(out.Colors, cf)
	}
	for _, item := range ra.FormatMarkAnalysis {
		var mf MarkFinding
		if err := json.Unmarshal(item, &mf); err != nil || mf.ParagraphIndex < 0 || !document.ValidMark(string(mf.FormatType)) {
			log.Debug().Msg("dropping malformed format mark entry")
			continue
		}
		out.Marks = append(out.Marks, mf)
	}
	return out, nil
}

// ParseHeaderFooterPlan extracts the header/footer planning payload. Parse
// failure is soft: the caller gets a do-nothing plan, not an error.
func ParseHeaderFooterPlan(raw string) *HeaderFooterPlan {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return &HeaderFooterPlan{ShouldUnify: false, Reason: "cannot parse"}
	}
	var plan HeaderFooterPlan
	if err := json.Unmarshal(obj, &plan); err != nil {
		return &HeaderFooterPlan{ShouldUnify: false, Reason: "cannot parse"}
	}
	return &plan
}

// filterStrings keeps trimmed non-blank strings and drops everything else.
func filterStrings(in []any) []string {
	var out []string
	for _, v := range in {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func normalizeHex(c string) string {
	c = strings.TrimPrefix(strings.TrimSpace(c), "#")
	return strings.ToUpper(c)
}
