// Package formatspec models the per-class target formatting derived from an
// AI analysis, and the sanitizer that normalizes it before it is used to
// build a change plan. The specification is partial: a class left nil is left
// untouched by every consumer.
package formatspec

// Class names one paragraph class a specification can target.
type Class string

const (
	ClassHeading1 Class = "heading1"
	ClassHeading2 Class = "heading2"
	ClassHeading3 Class = "heading3"
	ClassBodyText Class = "bodyText"
	ClassListItem Class = "listItem"
)

// Classes lists all known classes in declaration order.
var Classes = []Class{ClassHeading1, ClassHeading2, ClassHeading3, ClassBodyText, ClassListItem}

// FontTarget is the desired run-level formatting for a class. Pointer fields
// distinguish "unset" from zero values.
type FontTarget struct {
	Name          string   `json:"name,omitempty"`
	EastAsianName string   `json:"eastAsianName,omitempty"`
	Size          *float64 `json:"size,omitempty"` // points
	Bold          *bool    `json:"bold,omitempty"`
	Color         string   `json:"color,omitempty"` // RRGGBB
}

// ParaTarget is the desired paragraph-level formatting for a class.
type ParaTarget struct {
	Alignment            string   `json:"alignment,omitempty"`
	FirstLineIndentChars *float64 `json:"firstLineIndentChars,omitempty"`
	LeftIndentChars      *float64 `json:"leftIndentChars,omitempty"`
	LineSpacing          *float64 `json:"lineSpacing,omitempty"`
	LineSpacingRule      string   `json:"lineSpacingRule,omitempty"` // multiple|exactly|atLeast
	SpaceBeforePt        *float64 `json:"spaceBeforePt,omitempty"`
	SpaceAfterPt         *float64 `json:"spaceAfterPt,omitempty"`
}

// ClassFormat pairs the font and paragraph targets for one class.
type ClassFormat struct {
	Font FontTarget `json:"font"`
	Para ParaTarget `json:"paragraph"`
}

// Spec holds the optional per-class targets.
type Spec struct {
	Heading1 *ClassFormat `json:"heading1,omitempty"`
	Heading2 *ClassFormat `json:"heading2,omitempty"`
	Heading3 *ClassFormat `json:"heading3,omitempty"`
	BodyText *ClassFormat `json:"bodyText,omitempty"`
	ListItem *ClassFormat `json:"listItem,omitempty"`
}

// Class returns the target for c, or nil when the spec does not cover it.
func (s *Spec) Class(c Class) *ClassFormat {
	if s == nil {
		return nil
	}
	switch c {
	case ClassHeading1:
		return s.Heading1
	case ClassHeading2:
		return s.Heading2
	case ClassHeading3:
		return s.Heading3
	case ClassBodyText:
		return s.BodyText
	case ClassListItem:
		return s.ListItem
	}
	return nil
}

// Present lists the classes the spec actually covers.
func (s *Spec) Present() []Class {
	if s == nil {
		return nil
	}
	out := make([]Class, 0, len(Classes))
	for _, c := range Classes {
		if s.Class(c) != nil {
			out = append(out, c)
		}
	}
	return out
}

// HeadingClass maps a 1-based heading level to its class, or "" beyond 3.
func HeadingClass(level int) Class {
	switch level {
	case 1:
		return ClassHeading1
	case 2:
		return ClassHeading2
	case 3:
		return ClassHeading3
	}
	return ""
}

func ptr[T any](v T) *T { return &v }
