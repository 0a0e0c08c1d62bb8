package detect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"github.com/docfmt/docfmt/internal/document"
)

// scanHierarchy walks headings in document order and flags any level jump
// greater than +1 from the last seen level. The fix clamps to lastLevel+1 and
// that clamped value becomes the new running "last good level".
func scanHierarchy(r *Result, paras []document.ParagraphInfo, opts Options, add func(CategoryKey, ...Issue)) {
	last := 0
	var skipped []int
	var sampleText string
	for _, p := range paras {
		lv := p.HeadingLevel()
		if lv == 0 {
			continue
		}
		if lv > last+1 {
			fixed := last + 1
			r.HeadingLevelFixes = append(r.HeadingLevelFixes, HeadingLevelFix{Index: p.Index, From: lv, To: fixed})
			skipped = append(skipped, p.Index)
			if sampleText == "" {
				sampleText = sample(p.Text, opts.SampleLen)
			}
			last = fixed
			continue
		}
		last = lv
	}
	if len(skipped) > 0 {
		add(CategoryHierarchy, Issue{
			Name:     fmt.Sprintf("%d headings skip a level", len(skipped)),
			Severity: SeverityWarning,
			Indices:  skipped,
			Sample:   sampleText,
		})
	}
}

// captionRe matches caption-looking paragraphs. The two-character 图表 form
// must precede 图/表 in the alternation.
var captionRe = regexp.MustCompile(`^(图表|图|表|Figure|Table)\s*(\d+)?\s*[.:：]`)

func captionKind(marker string) CaptionKind {
	if marker == "表" || marker == "Table" {
		return CaptionTable
	}
	return CaptionFigure
}

// scanCaptions keeps independent running counters for figures and tables and
// flags every caption whose captured number does not match the expected
// counter value (or carries no number at all).
func scanCaptions(r *Result, paras []document.ParagraphInfo, opts Options, add func(CategoryKey, ...Issue)) {
	counters := map[CaptionKind]int{}
	var wrong []int
	var sampleText string
	for _, p := range paras {
		text := strings.TrimSpace(p.Text)
		m := captionRe.FindStringSubmatch(text)
		if m == nil || p.IsHeading() {
			continue
		}
		kind := captionKind(m[1])
		counters[kind]++
		expected := counters[kind]
		num := 0
		if m[2] != "" {
			num, _ = strconv.Atoi(m[2])
		}
		if num != expected {
			r.CaptionFixes = append(r.CaptionFixes, CaptionFix{Index: p.Index, Kind: kind, Number: num, Expected: expected})
			wrong = append(wrong, p.Index)
			if sampleText == "" {
				sampleText = sample(text, opts.SampleLen)
			}
		}
	}
	if len(wrong) > 0 {
		add(CategoryCaption, Issue{
			Name:     fmt.Sprintf("%d captions are numbered out of sequence", len(wrong)),
			Severity: SeverityWarning,
			Indices:  wrong,
			Sample:   sampleText,
		})
	}
}

var cjkLatinRe = regexp.MustCompile(`[\p{Han}][A-Za-z0-9]|[A-Za-z0-9][\p{Han}]`)

func scanTypography(r *Result, paras []document.ParagraphInfo, opts Options, add func(CategoryKey, ...Issue)) {
	var hits []int
	var sampleText string
	for _, p := range paras {
		if cjkLatinRe.MatchString(p.Text) {
			hits = append(hits, p.Index)
			if sampleText == "" {
				sampleText = sample(p.Text, opts.SampleLen)
			}
		}
	}
	if len(hits) > 0 {
		r.TypographyIndices = hits
		add(CategoryTypography, Issue{
			Name:     fmt.Sprintf("%d paragraphs mix CJK and Latin text without separating spaces", len(hits)),
			Severity: SeverityInfo,
			Indices:  hits,
			Sample:   sampleText,
		})
	}
}

var (
	fullwidthPunctSpaceRe = regexp.MustCompile(`[，。、；：！？]\s`)
	asciiPunctRunRe       = regexp.MustCompile(`[,.;:!?]\s{2,}`)
)

func isWide(r rune) bool {
	k := width.LookupRune(r).Kind()
	return k == width.EastAsianWide || k == width.EastAsianFullwidth
}

// halfwidthPunctInCJK reports a halfwidth comma or period squeezed between
// two wide runes, e.g. "中文,中文".
func halfwidthPunctInCJK(s string) bool {
	runes := []rune(s)
	for i := 1; i < len(runes)-1; i++ {
		if (runes[i] == ',' || runes[i] == '.' || runes[i] == ';') &&
			isWide(runes[i-1]) && isWide(runes[i+1]) {
			return true
		}
	}
	return false
}

func scanPunctuation(r *Result, paras []document.ParagraphInfo, opts Options, add func(CategoryKey, ...Issue)) {
	var hits []int
	var sampleText string
	for _, p := range paras {
		if fullwidthPunctSpaceRe.MatchString(p.Text) ||
			asciiPunctRunRe.MatchString(p.Text) ||
			halfwidthPunctInCJK(p.Text) {
			hits = append(hits, p.Index)
			if sampleText == "" {
				sampleText = sample(p.Text, opts.SampleLen)
			}
		}
	}
	if len(hits) > 0 {
		r.PunctuationIndices = hits
		add(CategoryPunctuation, Issue{
			Name:     fmt.Sprintf("%d paragraphs have irregular punctuation spacing", len(hits)),
			Severity: SeverityInfo,
			Indices:  hits,
			Sample:   sampleText,
		})
	}
}

func scanPagination(r *Result, paras []document.ParagraphInfo, opts Options, add func(CategoryKey, ...Issue)) {
	var breaks, empties []int
	for _, p := range paras {
		if p.PageBreak {
			breaks = append(breaks, p.Index)
		}
		if strings.TrimSpace(p.Text) == "" && !p.HasImage && !p.PageBreak {
			empties = append(empties, p.Index)
		}
	}
	if len(breaks) > 0 {
		add(CategoryPagination, Issue{
			Name:     fmt.Sprintf("%d explicit page breaks", len(breaks)),
			Severity: SeverityInfo,
			Indices:  breaks,
		})
	}
	if len(empties) > 0 {
		add(CategoryPagination, Issue{
			Name:     fmt.Sprintf("%d empty paragraphs used for spacing", len(empties)),
			Severity: SeverityInfo,
			Indices:  empties,
		})
	}
	r.PageBreaks = breaks
	r.EmptyParagraphs = empties
	r.PaginationIndices = append(append([]int{}, breaks...), empties...)
}

var specialMarkerRe = regexp.MustCompile("^(>\\s|```|\\t| {4})")

func scanSpecialContent(r *Result, paras []document.ParagraphInfo, opts Options, add func(CategoryKey, ...Issue)) {
	var hits []int
	var sampleText string
	for _, p := range paras {
		if specialMarkerRe.MatchString(p.Text) {
			hits = append(hits, p.Index)
			if sampleText == "" {
				sampleText = sample(p.Text, opts.SampleLen)
			}
		}
	}
	if len(hits) > 0 {
		r.SpecialIndices = hits
		add(CategoryPagination, Issue{
			Name:     fmt.Sprintf("%d paragraphs carry block-quote or code markers", len(hits)),
			Severity: SeverityInfo,
			Indices:  hits,
			Sample:   sampleText,
		})
	}
}

func normalColor(c string) bool {
	c = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c)), "#")
	return c == "" || c == "000000" || c == "auto"
}

func scanColors(r *Result, paras []document.ParagraphInfo, opts Options, add func(CategoryKey, ...Issue)) {
	var hits []int
	var sampleText string
	for _, p := range paras {
		if normalColor(p.Font.Color) || strings.TrimSpace(p.Text) == "" {
			continue
		}
		hits = append(hits, p.Index)
		if sampleText == "" {
			sampleText = sample(p.Text, opts.SampleLen)
		}
	}
	if len(hits) > 0 {
		r.ColorIndices = hits
		add(CategoryColor, Issue{
			Name:     fmt.Sprintf("%d paragraphs use a non-default font color", len(hits)),
			Severity: SeverityInfo,
			Indices:  hits,
			Sample:   sampleText,
		})
	}
}

func scanFormatMarks(r *Result, paras []document.ParagraphInfo, opts Options, add func(CategoryKey, ...Issue)) {
	for _, p := range paras {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		if u := strings.ToLower(p.Font.Underline); u != "" && u != "none" {
			r.MarkIndices[document.MarkUnderline] = append(r.MarkIndices[document.MarkUnderline], p.Index)
		}
		// Italic headings are a deliberate style in some templates; still
		// reported, the AI pass decides keep-worthiness.
		if p.Font.Italic {
			r.MarkIndices[document.MarkItalic] = append(r.MarkIndices[document.MarkItalic], p.Index)
		}
		if p.Font.Strikethrough {
			r.MarkIndices[document.MarkStrikethrough] = append(r.MarkIndices[document.MarkStrikethrough], p.Index)
		}
	}
	for _, mark := range []document.MarkKind{document.MarkUnderline, document.MarkItalic, document.MarkStrikethrough} {
		if hits := r.MarkIndices[mark]; len(hits) > 0 {
			add(CategoryFormatMarks, Issue{
				Name:     fmt.Sprintf("%d paragraphs use %s", len(hits), mark),
				Severity: SeverityInfo,
				Indices:  hits,
			})
		}
	}
}

func scanImages(r *Result, paras []document.ParagraphInfo, opts Options, add func(CategoryKey, ...Issue)) {
	var hits []int
	for _, p := range paras {
		if p.HasImage && p.Para.Alignment != document.AlignCenter {
			hits = append(hits, p.Index)
		}
	}
	if len(hits) > 0 {
		r.UncenteredImages = hits
		add(CategoryPagination, Issue{
			Name:     fmt.Sprintf("%d images are not centered", len(hits)),
			Severity: SeverityInfo,
			Indices:  hits,
		})
	}
}

func degenerateTableStyle(styleID string) bool {
	s := strings.ToLower(strings.TrimSpace(styleID))
	return s == "" || s == "tablenormal" || s == "normaltable" || s == "a"
}

func scanTables(r *Result, tables []document.TableInfo, add func(CategoryKey, ...Issue)) {
	var hits []int
	for _, t := range tables {
		if degenerateTableStyle(t.StyleID) {
			hits = append(hits, t.Index)
		}
	}
	if len(hits) > 0 {
		r.DegenerateTables = hits
		add(CategoryTable, Issue{
			Name:     fmt.Sprintf("%d tables use default styling", len(hits)),
			Severity: SeverityInfo,
			Indices:  hits,
		})
	}
}

func scanHeadersFooters(r *Result, hfs []document.HeaderFooterInfo, add func(CategoryKey, ...Issue)) {
	if len(hfs) == 0 {
		return
	}
	headers := map[string]bool{}
	footers := map[string]bool{}
	allEmpty := true
	for _, hf := range hfs {
		h := strings.TrimSpace(hf.HeaderText)
		f := strings.TrimSpace(hf.FooterText)
		if h != "" {
			headers[h] = true
			allEmpty = false
		}
		if f != "" {
			footers[f] = true
			allEmpty = false
		}
	}
	switch {
	case len(headers) > 1 || len(footers) > 1:
		r.HeaderFooterDiverged = true
		add(CategoryHeaderFooter, Issue{
			Name:     fmt.Sprintf("headers and footers diverge across %d sections", len(hfs)),
			Severity: SeverityWarning,
		})
	case allEmpty && len(hfs) > 0:
		add(CategoryHeaderFooter, Issue{
			Name:     "document has no header or footer content",
			Severity: SeverityInfo,
		})
	}
}

// HasCJK reports whether s contains Han runes. Used by callers choosing
// typography defaults.
func HasCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
