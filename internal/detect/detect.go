// Package detect scans paragraph collections for formatting inconsistencies.
// Each detector is independent and degrades to zero findings on failure, so
// one broken probe never takes down the whole analysis.
package detect

import (
	"github.com/rs/zerolog/log"

	"github.com/docfmt/docfmt/internal/document"
	"github.com/docfmt/docfmt/internal/formatspec"
)

// Severity tags a finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is a named finding referencing zero or more paragraph indices.
type Issue struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
	Indices  []int    `json:"indices,omitempty"`
	Sample   string   `json:"sample,omitempty"`
}

// CategoryKey identifies an issue category.
type CategoryKey string

const (
	CategoryHierarchy    CategoryKey = "hierarchy"
	CategoryHeading      CategoryKey = "heading"
	CategoryBody         CategoryKey = "body"
	CategoryList         CategoryKey = "list"
	CategoryColor        CategoryKey = "color"
	CategoryTypography   CategoryKey = "typography"
	CategoryPunctuation  CategoryKey = "punctuation"
	CategoryPagination   CategoryKey = "pagination"
	CategoryHeaderFooter CategoryKey = "headerFooter"
	CategoryTable        CategoryKey = "table"
	CategoryCaption      CategoryKey = "caption"
	CategoryFormatMarks  CategoryKey = "formatMarks"
)

// Category groups the issues of one concern.
type Category struct {
	Key    CategoryKey `json:"key"`
	Title  string      `json:"title"`
	Issues []Issue     `json:"issues,omitempty"`
}

// HasFindings reports whether any issue in the category references paragraphs
// or stands on its own.
func (c Category) HasFindings() bool { return len(c.Issues) > 0 }

var categoryTitles = map[CategoryKey]string{
	CategoryHierarchy:    "Heading hierarchy",
	CategoryHeading:      "Heading consistency",
	CategoryBody:         "Body text consistency",
	CategoryList:         "List consistency",
	CategoryColor:        "Font color",
	CategoryTypography:   "Mixed typography",
	CategoryPunctuation:  "Punctuation spacing",
	CategoryPagination:   "Pagination",
	CategoryHeaderFooter: "Headers and footers",
	CategoryTable:        "Tables",
	CategoryCaption:      "Captions",
	CategoryFormatMarks:  "Underline, italic and strikethrough",
}

// HeadingLevelFix clamps one heading's level after a hierarchy skip.
type HeadingLevelFix struct {
	Index int `json:"index"`
	From  int `json:"from"`
	To    int `json:"to"`
}

// CaptionKind distinguishes figure and table caption counters.
type CaptionKind string

const (
	CaptionFigure CaptionKind = "figure"
	CaptionTable  CaptionKind = "table"
)

// CaptionFix renumbers one caption to the expected running counter value.
type CaptionFix struct {
	Index    int         `json:"index"`
	Kind     CaptionKind `json:"kind"`
	Number   int         `json:"number"` // captured number, 0 when absent
	Expected int         `json:"expected"`
}

// Options carries detector policy. Tolerance is the maximum absolute
// difference between rounded numeric signature fields before a paragraph is
// reported inconsistent; it is inherited policy, not an invariant.
type Options struct {
	Tolerance float64
	// SampleLen caps issue text samples, in runes.
	SampleLen int
}

// DefaultOptions returns the stock detector policy.
func DefaultOptions() Options {
	return Options{Tolerance: 0.5, SampleLen: 40}
}

// Result aggregates every detector's output for the plan builder.
type Result struct {
	Categories []Category

	HeadingLevelFixes []HeadingLevelFix
	CaptionFixes      []CaptionFix

	// ClassMembers and ClassInconsistent map paragraph classes to member
	// indices and to indices that diverge from the dominant signature.
	ClassMembers      map[formatspec.Class][]int
	ClassInconsistent map[formatspec.Class][]int

	MarkIndices map[document.MarkKind][]int

	ColorIndices       []int
	TypographyIndices  []int
	PunctuationIndices []int
	PaginationIndices  []int
	EmptyParagraphs    []int
	PageBreaks         []int
	SpecialIndices     []int
	UncenteredImages   []int
	DegenerateTables   []int

	HeaderFooterDiverged bool
}

// Category returns the category with the given key, or a zero Category.
func (r *Result) Category(key CategoryKey) Category {
	for _, c := range r.Categories {
		if c.Key == key {
			return c
		}
	}
	return Category{Key: key, Title: categoryTitles[key]}
}

// Run executes every detector over the paragraph snapshot plus section and
// table metadata, and assembles the category list in a stable order.
func Run(paras []document.ParagraphInfo, tables []document.TableInfo, hfs []document.HeaderFooterInfo, opts Options) *Result {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}
	if opts.SampleLen <= 0 {
		opts.SampleLen = DefaultOptions().SampleLen
	}

	r := &Result{
		ClassMembers:      map[formatspec.Class][]int{},
		ClassInconsistent: map[formatspec.Class][]int{},
		MarkIndices:       map[document.MarkKind][]int{},
	}
	cats := map[CategoryKey][]Issue{}
	add := func(key CategoryKey, issues ...Issue) {
		for _, is := range issues {
			if len(is.Indices) > 0 || is.Name != "" {
				cats[key] = append(cats[key], is)
			}
		}
	}

	safeScan("signatures", func() { scanSignatures(r, paras, opts, add) })
	safeScan("hierarchy", func() { scanHierarchy(r, paras, opts, add) })
	safeScan("captions", func() { scanCaptions(r, paras, opts, add) })
	safeScan("typography", func() { scanTypography(r, paras, opts, add) })
	safeScan("punctuation", func() { scanPunctuation(r, paras, opts, add) })
	safeScan("pagination", func() { scanPagination(r, paras, opts, add) })
	safeScan("special", func() { scanSpecialContent(r, paras, opts, add) })
	safeScan("color", func() { scanColors(r, paras, opts, add) })
	safeScan("marks", func() { scanFormatMarks(r, paras, opts, add) })
	safeScan("images", func() { scanImages(r, paras, opts, add) })
	safeScan("tables", func() { scanTables(r, tables, add) })
	safeScan("headersFooters", func() { scanHeadersFooters(r, hfs, add) })

	order := []CategoryKey{
		CategoryHierarchy, CategoryHeading, CategoryBody, CategoryList,
		CategoryColor, CategoryTypography, CategoryPunctuation,
		CategoryPagination, CategoryHeaderFooter, CategoryTable,
		CategoryCaption, CategoryFormatMarks,
	}
	for _, key := range order {
		r.Categories = append(r.Categories, Category{
			Key:    key,
			Title:  categoryTitles[key],
			Issues: cats[key],
		})
	}
	return r
}

// safeScan isolates one detector so a panic degrades to zero findings.
func safeScan(name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Warn().Str("detector", name).Interface("panic", rec).Msg("detector failed; reporting no findings")
		}
	}()
	fn()
}

func sample(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "…"
}
