// Package document defines the paragraph-level view of a structured document
// and the access contract the engine mutates it through. ParagraphInfo values
// are read-time snapshots: they become stale the moment paragraph indices
// shift, so callers must re-list (or remap) after any structural edit.
package document

// Alignment is the paragraph justification.
type Alignment string

const (
	AlignNone    Alignment = ""
	AlignLeft    Alignment = "left"
	AlignCenter  Alignment = "center"
	AlignRight   Alignment = "right"
	AlignJustify Alignment = "justify"
)

// LineSpacingRule qualifies how a line-spacing value is interpreted.
type LineSpacingRule string

const (
	SpacingRuleNone     LineSpacingRule = ""
	SpacingRuleMultiple LineSpacingRule = "multiple"
	SpacingRuleExactly  LineSpacingRule = "exactly"
	SpacingRuleAtLeast  LineSpacingRule = "atLeast"
)

// MarkKind is one of the removable inline format marks.
type MarkKind string

const (
	MarkUnderline     MarkKind = "underline"
	MarkItalic        MarkKind = "italic"
	MarkStrikethrough MarkKind = "strikethrough"
)

// ValidMark reports whether s names a known format mark.
func ValidMark(s string) bool {
	switch MarkKind(s) {
	case MarkUnderline, MarkItalic, MarkStrikethrough:
		return true
	}
	return false
}

// FontAttrs captures the run-level formatting of a paragraph as observed on
// its first formatted run.
type FontAttrs struct {
	Name          string  `json:"name,omitempty"`
	EastAsianName string  `json:"eastAsianName,omitempty"`
	Size          float64 `json:"size,omitempty"` // points
	Bold          bool    `json:"bold,omitempty"`
	Italic        bool    `json:"italic,omitempty"`
	Underline     string  `json:"underline,omitempty"` // underline kind, "" when absent
	Strikethrough bool    `json:"strikethrough,omitempty"`
	Color         string  `json:"color,omitempty"` // RRGGBB without '#'
}

// ParaAttrs captures paragraph-level formatting.
type ParaAttrs struct {
	Alignment            Alignment       `json:"alignment,omitempty"`
	FirstLineIndentChars float64         `json:"firstLineIndentChars,omitempty"`
	LeftIndentChars      float64         `json:"leftIndentChars,omitempty"`
	LineSpacing          float64         `json:"lineSpacing,omitempty"`
	LineSpacingRule      LineSpacingRule `json:"lineSpacingRule,omitempty"`
	SpaceBeforePt        float64         `json:"spaceBeforePt,omitempty"`
	SpaceAfterPt         float64         `json:"spaceAfterPt,omitempty"`
}

// ParagraphInfo is a read-only snapshot of one paragraph at list time.
type ParagraphInfo struct {
	Index        int       `json:"index"`
	Text         string    `json:"text"`
	StyleID      string    `json:"styleId,omitempty"`
	OutlineLevel *int      `json:"outlineLevel,omitempty"` // 1-based heading depth, nil for non-headings
	InList       bool      `json:"inList,omitempty"`
	ListID       string    `json:"listId,omitempty"`
	ListLevel    int       `json:"listLevel,omitempty"`
	PageBreak    bool      `json:"pageBreak,omitempty"` // break-before property or an explicit page-break run
	HasImage     bool      `json:"hasImage,omitempty"`
	Font         FontAttrs `json:"font"`
	Para         ParaAttrs `json:"para"`
}

// IsHeading reports whether the paragraph is a heading of level 1..9.
func (p ParagraphInfo) IsHeading() bool {
	return p.OutlineLevel != nil && *p.OutlineLevel >= 1
}

// HeadingLevel returns the 1-based heading depth, or 0 for non-headings.
func (p ParagraphInfo) HeadingLevel() int {
	if p.OutlineLevel == nil {
		return 0
	}
	return *p.OutlineLevel
}

// HeaderFooterInfo describes one section's header and footer text.
type HeaderFooterInfo struct {
	SectionIndex int
	HeaderText   string
	FooterText   string
	HeaderAlign  Alignment
	FooterAlign  Alignment
}

// HeaderFooterTemplate is the unified header/footer applied across sections.
type HeaderFooterTemplate struct {
	HeaderText  string
	FooterText  string
	HeaderAlign Alignment
	FooterAlign Alignment
	PageNumbers bool
}

// TableInfo is a snapshot of one table's identity and styling.
type TableInfo struct {
	Index   int
	StyleID string
	Rows    int
	Cols    int
}

// ColorCorrection replaces the font color of one paragraph.
type ColorCorrection struct {
	Index    int
	NewColor string // RRGGBB
}
