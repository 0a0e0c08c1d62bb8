package plan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docfmt/docfmt/internal/aiparse"
	"github.com/docfmt/docfmt/internal/detect"
	"github.com/docfmt/docfmt/internal/document"
	"github.com/docfmt/docfmt/internal/formatspec"
)

// BuildInput gathers everything the builder draws items from.
type BuildInput struct {
	Paragraphs   []document.ParagraphInfo
	Detection    *detect.Result
	Spec         *formatspec.Spec
	Colors       []aiparse.ColorFinding
	Marks        []aiparse.MarkFinding
	HeaderFooter *aiparse.HeaderFooterPlan
}

// DefaultTableStyle is applied to tables left on degenerate default styling.
const DefaultTableStyle = "GridTable1Light"

// Build assembles the change plan in a fixed emission order. Every item is
// only emitted when its detection source actually produced something.
func Build(in BuildInput) *Plan {
	p := &Plan{Spec: in.Spec}
	det := in.Detection
	if det == nil {
		det = &detect.Result{}
	}
	add := func(it Item) {
		if len(it.ParagraphIndices) == 0 && it.Data == nil {
			return
		}
		p.Items = append(p.Items, it)
	}

	if len(det.HeadingLevelFixes) > 0 {
		add(Item{
			ID:               "heading-level-fix",
			Title:            "Fix skipped heading levels",
			Description:      fmt.Sprintf("Clamp %d headings that skip a level", len(det.HeadingLevelFixes)),
			Type:             TypeHeadingLevelFix,
			ParagraphIndices: fixIndices(det.HeadingLevelFixes),
			Data:             map[string]any{"fixes": det.HeadingLevelFixes},
		})
	}

	for level := 1; level <= 3; level++ {
		class := formatspec.HeadingClass(level)
		if in.Spec.Class(class) == nil {
			continue
		}
		members := det.ClassMembers[class]
		if len(members) == 0 {
			continue
		}
		add(Item{
			ID:               fmt.Sprintf("heading%d-style", level),
			Title:            fmt.Sprintf("Unify level %d heading style", level),
			Description:      fmt.Sprintf("Apply the target format to %d level %d headings", len(members), level),
			Type:             TypeHeadingStyle,
			ParagraphIndices: members,
			Data:             map[string]any{"class": string(class)},
		})
	}

	if in.Spec.Class(formatspec.ClassBodyText) != nil && len(det.ClassMembers[formatspec.ClassBodyText]) > 0 {
		members := det.ClassMembers[formatspec.ClassBodyText]
		add(Item{
			ID:               "body-style",
			Title:            "Unify body text style",
			Description:      fmt.Sprintf("Apply the target format to %d body paragraphs", len(members)),
			Type:             TypeBodyStyle,
			ParagraphIndices: members,
			Data:             map[string]any{"class": string(formatspec.ClassBodyText)},
		})
	}

	if in.Spec.Class(formatspec.ClassListItem) != nil && len(det.ClassMembers[formatspec.ClassListItem]) > 0 {
		members := det.ClassMembers[formatspec.ClassListItem]
		add(Item{
			ID:               "list-style",
			Title:            "Unify list item style",
			Description:      fmt.Sprintf("Apply the target format to %d list items", len(members)),
			Type:             TypeListStyle,
			ParagraphIndices: members,
			Data:             map[string]any{"class": string(formatspec.ClassListItem)},
		})
	}

	if headings := headingIndices(in.Paragraphs); len(headings) >= 2 {
		add(Item{
			ID:                    "heading-numbering",
			Title:                 "Renumber headings",
			Description:           fmt.Sprintf("Recompute multi-level numbering across %d headings", len(headings)),
			Type:                  TypeHeadingNumbering,
			ParagraphIndices:      headings,
			Data:                  map[string]any{"refreshTOC": true},
			RequiresContentChange: true,
		})
	}

	if corrections := colorCorrections(in.Colors); len(corrections) > 0 {
		add(Item{
			ID:               "color-correction",
			Title:            "Correct unreasonable font colors",
			Description:      fmt.Sprintf("Replace the font color of %d paragraphs", len(corrections)),
			Type:             TypeColorCorrection,
			ParagraphIndices: correctionIndices(corrections),
			Data:             map[string]any{"corrections": corrections},
		})
	}

	if len(det.CaptionFixes) > 0 {
		add(Item{
			ID:                    "caption-style",
			Title:                 "Renumber captions",
			Description:           fmt.Sprintf("Renumber %d out-of-sequence captions", len(det.CaptionFixes)),
			Type:                  TypeCaptionStyle,
			ParagraphIndices:      captionIndices(det.CaptionFixes),
			Data:                  map[string]any{"fixes": det.CaptionFixes},
			RequiresContentChange: true,
		})
	}

	if len(det.DegenerateTables) > 0 {
		add(Item{
			ID:          "table-style",
			Title:       "Apply a table style",
			Description: fmt.Sprintf("Style %d tables left on the default grid", len(det.DegenerateTables)),
			Type:        TypeTableStyle,
			Data:        map[string]any{"tables": det.DegenerateTables, "styleId": DefaultTableStyle},
		})
	}

	if len(det.UncenteredImages) > 0 {
		add(Item{
			ID:               "image-alignment",
			Title:            "Center images",
			Description:      fmt.Sprintf("Center %d image paragraphs", len(det.UncenteredImages)),
			Type:             TypeImageAlignment,
			ParagraphIndices: det.UncenteredImages,
		})
	}

	if hf := in.HeaderFooter; hf != nil && hf.ShouldUnify {
		add(Item{
			ID:          "header-footer-template",
			Title:       "Unify headers and footers",
			Description: strings.TrimSpace("Apply one header/footer template to every section. " + hf.Reason),
			Type:        TypeHeaderFooterTemplate,
			Data: map[string]any{"template": document.HeaderFooterTemplate{
				HeaderText:  hf.HeaderText,
				FooterText:  hf.FooterText,
				HeaderAlign: document.Alignment(hf.HeaderAlign),
				FooterAlign: document.Alignment(hf.FooterAlign),
				PageNumbers: hf.PageNumbers,
			}},
		})
	}

	if len(det.TypographyIndices) > 0 {
		add(Item{
			ID:                    "mixed-typography",
			Title:                 "Normalize mixed CJK/Latin typography",
			Description:           fmt.Sprintf("Insert separating spaces in %d paragraphs", len(det.TypographyIndices)),
			Type:                  TypeMixedTypography,
			ParagraphIndices:      det.TypographyIndices,
			Data:                  typographyData(in.Spec, map[string]any{"addCJKLatinSpace": true}),
			RequiresContentChange: true,
		})
	}

	if len(det.PunctuationIndices) > 0 {
		add(Item{
			ID:                    "punctuation-spacing",
			Title:                 "Fix punctuation spacing",
			Description:           fmt.Sprintf("Normalize punctuation in %d paragraphs", len(det.PunctuationIndices)),
			Type:                  TypePunctuationSpacing,
			ParagraphIndices:      det.PunctuationIndices,
			Data:                  typographyData(in.Spec, map[string]any{"fixPunctuationSpacing": true}),
			RequiresContentChange: true,
		})
	}

	if len(det.SpecialIndices) > 0 {
		add(Item{
			ID:               "special-content",
			Title:            "Style quoted and code content",
			Description:      fmt.Sprintf("Indent %d block-quote or code paragraphs", len(det.SpecialIndices)),
			Type:             TypeSpecialContent,
			ParagraphIndices: det.SpecialIndices,
		})
	}

	for _, mk := range []struct {
		kind  document.MarkKind
		typ   ChangeType
		title string
	}{
		{document.MarkUnderline, TypeUnderlineRemoval, "Remove stray underlines"},
		{document.MarkItalic, TypeItalicRemoval, "Remove stray italics"},
		{document.MarkStrikethrough, TypeStrikethroughRemoval, "Remove strikethrough text marks"},
	} {
		indices := markRemovalIndices(in.Marks, mk.kind)
		if len(indices) == 0 {
			continue
		}
		add(Item{
			ID:               string(mk.typ),
			Title:            mk.title,
			Description:      fmt.Sprintf("Clear %s on %d paragraphs the analysis marked not keep-worthy", mk.kind, len(indices)),
			Type:             mk.typ,
			ParagraphIndices: indices,
			Data:             map[string]any{"mark": string(mk.kind)},
		})
	}

	if len(det.EmptyParagraphs) > 0 {
		add(Item{
			ID:                    "pagination-control",
			Title:                 "Remove spacing paragraphs",
			Description:           fmt.Sprintf("Delete %d empty paragraphs used for manual spacing", len(det.EmptyParagraphs)),
			Type:                  TypePaginationControl,
			ParagraphIndices:      det.EmptyParagraphs,
			Data:                  map[string]any{"removeEmptyParagraphs": true},
			RequiresContentChange: true,
		})
	}

	return p
}

func fixIndices(fixes []detect.HeadingLevelFix) []int {
	out := make([]int, len(fixes))
	for i, f := range fixes {
		out[i] = f.Index
	}
	return out
}

func captionIndices(fixes []detect.CaptionFix) []int {
	out := make([]int, len(fixes))
	for i, f := range fixes {
		out[i] = f.Index
	}
	return out
}

func headingIndices(paras []document.ParagraphInfo) []int {
	var out []int
	for _, p := range paras {
		if p.IsHeading() {
			out = append(out, p.Index)
		}
	}
	return out
}

func colorCorrections(findings []aiparse.ColorFinding) []document.ColorCorrection {
	var out []document.ColorCorrection
	for _, f := range findings {
		if f.Reasonable || f.SuggestedColor == "" {
			continue
		}
		out = append(out, document.ColorCorrection{Index: f.ParagraphIndex, NewColor: f.SuggestedColor})
	}
	return out
}

func correctionIndices(items []document.ColorCorrection) []int {
	out := make([]int, len(items))
	for i, c := range items {
		out[i] = c.Index
	}
	return out
}

func markRemovalIndices(marks []aiparse.MarkFinding, kind document.MarkKind) []int {
	var out []int
	seen := map[int]bool{}
	for _, m := range marks {
		if m.FormatType != kind || m.Keep || seen[m.ParagraphIndex] {
			continue
		}
		seen[m.ParagraphIndex] = true
		out = append(out, m.ParagraphIndex)
	}
	return out
}

func typographyData(spec *formatspec.Spec, data map[string]any) map[string]any {
	if cf := spec.Class(formatspec.ClassBodyText); cf != nil {
		if cf.Font.EastAsianName != "" {
			data["chineseFont"] = cf.Font.EastAsianName
		}
		if cf.Font.Name != "" {
			data["englishFont"] = cf.Font.Name
		}
	}
	return data
}

// numberPrefixRe strips a pre-existing "1.2.3 " style prefix (trailing dot
// optional) before renumbering.
var numberPrefixRe = regexp.MustCompile(`^\s*\d+(\.\d+)*\.?\s+`)

// HeadingNumbers recomputes multi-level numbering over the live paragraph
// snapshot and returns the new full text per heading index, only for
// headings whose text actually changes.
func HeadingNumbers(paras []document.ParagraphInfo) map[int]string {
	counters := make([]int, 9)
	out := map[int]string{}
	for _, p := range paras {
		lv := p.HeadingLevel()
		if lv < 1 || lv > len(counters) {
			continue
		}
		counters[lv-1]++
		for i := lv; i < len(counters); i++ {
			counters[i] = 0
		}
		parts := make([]string, lv)
		for i := 0; i < lv; i++ {
			parts[i] = fmt.Sprintf("%d", counters[i])
		}
		stripped := numberPrefixRe.ReplaceAllString(p.Text, "")
		numbered := strings.Join(parts, ".") + " " + strings.TrimSpace(stripped)
		if numbered != p.Text {
			out[p.Index] = numbered
		}
	}
	return out
}

// captionNumberRe finds the marker and optional number a caption renumber
// rewrites.
var captionNumberRe = regexp.MustCompile(`^(\s*)(图表|图|表|Figure|Table)(\s*)(\d+)?`)

// RenumberCaption rewrites the caption's number to the expected counter
// value, inserting one when the caption had none.
func RenumberCaption(text string, fix detect.CaptionFix) string {
	return captionNumberRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := captionNumberRe.FindStringSubmatch(m)
		sep := sub[3]
		if sub[4] == "" && sep == "" && (sub[2] == "Figure" || sub[2] == "Table") {
			sep = " "
		}
		return sub[1] + sub[2] + sep + fmt.Sprintf("%d", fix.Expected)
	})
}
