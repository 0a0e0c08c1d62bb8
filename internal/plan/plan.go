// Package plan turns detector and AI output into an ordered set of typed,
// individually selectable change items.
package plan

import (
	"github.com/docfmt/docfmt/internal/detect"
	"github.com/docfmt/docfmt/internal/formatspec"
)

// ChangeType is the closed set of change item kinds. The execution
// dispatcher switches exhaustively over it and fails on anything unknown, so
// adding a member is a checked obligation everywhere it is handled.
type ChangeType string

const (
	TypeHeadingLevelFix      ChangeType = "heading-level-fix"
	TypeHeadingStyle         ChangeType = "heading-style"
	TypeBodyStyle            ChangeType = "body-style"
	TypeListStyle            ChangeType = "list-style"
	TypeHeadingNumbering     ChangeType = "heading-numbering"
	TypeTableStyle           ChangeType = "table-style"
	TypeCaptionStyle         ChangeType = "caption-style"
	TypeImageAlignment       ChangeType = "image-alignment"
	TypeHeaderFooterTemplate ChangeType = "header-footer-template"
	TypeColorCorrection      ChangeType = "color-correction"
	TypeMixedTypography      ChangeType = "mixed-typography"
	TypePunctuationSpacing   ChangeType = "punctuation-spacing"
	TypePaginationControl    ChangeType = "pagination-control"
	TypeSpecialContent       ChangeType = "special-content"
	TypeUnderlineRemoval     ChangeType = "underline-removal"
	TypeItalicRemoval        ChangeType = "italic-removal"
	TypeStrikethroughRemoval ChangeType = "strikethrough-removal"
)

// Structural reports whether executing this type can delete paragraphs and
// therefore invalidate indices other items still hold.
func (t ChangeType) Structural() bool { return t == TypePaginationControl }

// Item is one addressable correction. IDs are stable per detection source;
// composite ids like "a+b" denote a merge.
type Item struct {
	ID                    string         `json:"id"`
	Title                 string         `json:"title"`
	Description           string         `json:"description,omitempty"`
	Type                  ChangeType     `json:"type"`
	ParagraphIndices      []int          `json:"paragraphIndices,omitempty"`
	Data                  map[string]any `json:"data,omitempty"`
	RequiresContentChange bool           `json:"requiresContentChange,omitempty"`
}

// Clone returns a deep-enough copy: indices and the data bag are copied so
// merge and remap never alias the original plan.
func (it Item) Clone() Item {
	out := it
	out.ParagraphIndices = append([]int(nil), it.ParagraphIndices...)
	if it.Data != nil {
		out.Data = make(map[string]any, len(it.Data))
		for k, v := range it.Data {
			out.Data[k] = v
		}
	}
	return out
}

// Plan is the ordered collection of items plus the specification used to
// build them.
type Plan struct {
	Items []Item           `json:"items"`
	Spec  *formatspec.Spec `json:"spec,omitempty"`
}

// Find returns the item with the given id, or nil.
func (p *Plan) Find(id string) *Item {
	for i := range p.Items {
		if p.Items[i].ID == id {
			return &p.Items[i]
		}
	}
	return nil
}

// highImpactGlobal lists types excluded from default selection regardless of
// findings: they restyle whole document surfaces in one step.
var highImpactGlobal = map[ChangeType]bool{
	TypeHeaderFooterTemplate: true,
	TypeTableStyle:           true,
	TypeImageAlignment:       true,
}

// typeCategories maps each change type to the issue categories that can
// justify pre-selecting it.
var typeCategories = map[ChangeType][]detect.CategoryKey{
	TypeHeadingLevelFix:      {detect.CategoryHierarchy},
	TypeHeadingStyle:         {detect.CategoryHeading, detect.CategoryHierarchy},
	TypeBodyStyle:            {detect.CategoryBody},
	TypeListStyle:            {detect.CategoryList},
	TypeHeadingNumbering:     {detect.CategoryHierarchy, detect.CategoryHeading},
	TypeTableStyle:           {detect.CategoryTable},
	TypeCaptionStyle:         {detect.CategoryCaption},
	TypeImageAlignment:       {detect.CategoryPagination},
	TypeHeaderFooterTemplate: {detect.CategoryHeaderFooter},
	TypeColorCorrection:      {detect.CategoryColor},
	TypeMixedTypography:      {detect.CategoryTypography},
	TypePunctuationSpacing:   {detect.CategoryPunctuation},
	TypePaginationControl:    {detect.CategoryPagination},
	TypeSpecialContent:       {detect.CategoryPagination},
	TypeUnderlineRemoval:     {detect.CategoryFormatMarks},
	TypeItalicRemoval:        {detect.CategoryFormatMarks},
	TypeStrikethroughRemoval: {detect.CategoryFormatMarks},
}

// DefaultSelection pre-checks only issue-driven, low-risk items: no content
// change, not a high-impact global type, and backed by a category that
// actually produced findings.
func DefaultSelection(p *Plan, categories []detect.Category) []string {
	withFindings := map[detect.CategoryKey]bool{}
	for _, c := range categories {
		if c.HasFindings() {
			withFindings[c.Key] = true
		}
	}
	var out []string
	for _, it := range p.Items {
		if it.RequiresContentChange || highImpactGlobal[it.Type] {
			continue
		}
		backed := false
		for _, key := range typeCategories[it.Type] {
			if withFindings[key] {
				backed = true
				break
			}
		}
		if backed {
			out = append(out, it.ID)
		}
	}
	return out
}
