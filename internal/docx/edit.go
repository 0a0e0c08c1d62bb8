package docx

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docfmt/docfmt/internal/document"
	"github.com/docfmt/docfmt/internal/formatspec"
)

// Chunk surgery. Every mutation takes a paragraph's raw bytes and returns
// the rewritten bytes; anything the pattern does not name stays verbatim.

var (
	pprOpenRe  = regexp.MustCompile(`<w:pPr[ >]`)
	runOpenRe  = regexp.MustCompile(`<w:r[ >]`)
	hyperRe    = regexp.MustCompile(`(?s)<w:hyperlink[ >].*?</w:hyperlink>`)
	rprBlockRe = regexp.MustCompile(`(?s)<w:rPr>.*?</w:rPr>|<w:rPr/>`)
)

// childRe matches one direct pPr/rPr child element, self-closing or paired.
func childRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)<w:` + name + `\b[^>]*?/>|<w:` + name + `\b[^>]*?>.*?</w:` + name + `>`)
}

var (
	spacingRe   = childRe("spacing")
	indRe       = childRe("ind")
	jcRe        = childRe("jc")
	outlineRe   = childRe("outlineLvl")
	pStyleRe    = childRe("pStyle")
	rFontsRe    = childRe("rFonts")
	szRe        = childRe("sz")
	szCsRe      = childRe("szCs")
	boldRe      = childRe("b")
	boldCsRe    = childRe("bCs")
	italicRe    = childRe("i")
	italicCsRe  = childRe("iCs")
	underlineRe = childRe("u")
	strikeRe    = childRe("strike")
	colorRe     = childRe("color")
)

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

// openTagEnd returns the offset just past the element's opening tag.
func openTagEnd(chunk []byte) int {
	for i, b := range chunk {
		if b == '>' {
			return i + 1
		}
	}
	return len(chunk)
}

// pprBounds locates the paragraph's pPr block, inserting an empty one after
// the opening tag when absent. Returns the chunk and the [start, end) of the
// block's inner content.
func pprBounds(chunk []byte) ([]byte, int, int) {
	s := string(chunk)
	loc := pprOpenRe.FindStringIndex(s)
	if loc == nil || loc[0] > strings.Index(s, "<w:r") && strings.Index(s, "<w:r") >= 0 {
		at := openTagEnd(chunk)
		s = s[:at] + "<w:pPr></w:pPr>" + s[at:]
		return []byte(s), at + len("<w:pPr>"), at + len("<w:pPr>")
	}
	if s[loc[1]-1] == ' ' {
		// attribute-bearing pPr open tag; advance to '>'
		loc[1] = loc[0] + strings.IndexByte(s[loc[0]:], '>') + 1
	}
	end := strings.Index(s[loc[1]:], "</w:pPr>")
	if end < 0 {
		// self-closing <w:pPr/> cannot match pprOpenRe; paired but broken
		return chunk, -1, -1
	}
	return chunk, loc[1], loc[1] + end
}

// setPPrChild replaces the named pPr child or appends frag to the block.
func setPPrChild(chunk []byte, re *regexp.Regexp, frag string) []byte {
	chunk, a, b := pprBounds(chunk)
	if a < 0 {
		return chunk
	}
	inner := string(chunk[a:b])
	if re.MatchString(inner) {
		inner = re.ReplaceAllString(inner, frag)
	} else {
		inner += frag
	}
	return []byte(string(chunk[:a]) + inner + string(chunk[b:]))
}

func removePPrChild(chunk []byte, re *regexp.Regexp) []byte {
	chunk, a, b := pprBounds(chunk)
	if a < 0 {
		return chunk
	}
	inner := re.ReplaceAllString(string(chunk[a:b]), "")
	return []byte(string(chunk[:a]) + inner + string(chunk[b:]))
}

// runSegments returns the [start, end) spans of every run in the chunk,
// including runs nested in hyperlinks.
func runSegments(chunk []byte) [][2]int {
	s := string(chunk)
	var out [][2]int
	offset := 0
	for {
		loc := runOpenRe.FindStringIndex(s[offset:])
		if loc == nil {
			return out
		}
		start := offset + loc[0]
		end := strings.Index(s[start:], "</w:r>")
		if end < 0 {
			return out
		}
		end = start + end + len("</w:r>")
		out = append(out, [2]int{start, end})
		offset = end
	}
}

// editRuns applies fn to every run segment, rebuilding the chunk.
func editRuns(chunk []byte, fn func(run string) string) []byte {
	segs := runSegments(chunk)
	if len(segs) == 0 {
		return chunk
	}
	s := string(chunk)
	var b strings.Builder
	prev := 0
	for _, seg := range segs {
		b.WriteString(s[prev:seg[0]])
		b.WriteString(fn(s[seg[0]:seg[1]]))
		prev = seg[1]
	}
	b.WriteString(s[prev:])
	return []byte(b.String())
}

// setRunChild replaces the named rPr child in one run, creating the rPr
// block when needed. Empty frag removes the child.
func setRunChild(run string, re *regexp.Regexp, frag string) string {
	loc := rprBlockRe.FindStringIndex(run)
	if loc == nil {
		if frag == "" {
			return run
		}
		at := openTagEnd([]byte(run))
		return run[:at] + "<w:rPr>" + frag + "</w:rPr>" + run[at:]
	}
	block := run[loc[0]:loc[1]]
	inner := strings.TrimSuffix(strings.TrimPrefix(block, "<w:rPr>"), "</w:rPr>")
	if block == "<w:rPr/>" {
		inner = ""
	}
	if re.MatchString(inner) {
		inner = re.ReplaceAllString(inner, frag)
	} else if frag != "" {
		inner += frag
	}
	return run[:loc[0]] + "<w:rPr>" + inner + "</w:rPr>" + run[loc[1]:]
}

// applyFormatTo rewrites one paragraph chunk per the class target. Absent
// target fields leave the existing markup alone.
func applyFormatTo(chunk []byte, t formatspec.ClassFormat) []byte {
	if t.Para.SpaceBeforePt != nil || t.Para.SpaceAfterPt != nil ||
		t.Para.LineSpacing != nil {
		chunk = setPPrChild(chunk, spacingRe, renderSpacing(t.Para))
	}
	if t.Para.FirstLineIndentChars != nil || t.Para.LeftIndentChars != nil {
		chunk = setPPrChild(chunk, indRe, renderInd(t.Para))
	}
	if t.Para.Alignment != "" {
		chunk = setPPrChild(chunk, jcRe, fmt.Sprintf(`<w:jc w:val="%s"/>`, jcVal(t.Para.Alignment)))
	}

	font := t.Font
	chunk = editRuns(chunk, func(run string) string {
		if font.Name != "" || font.EastAsianName != "" {
			run = setRunChild(run, rFontsRe, renderRFonts(font))
		}
		if font.Size != nil {
			half := int(*font.Size * 2)
			run = setRunChild(run, szRe, fmt.Sprintf(`<w:sz w:val="%d"/>`, half))
			run = setRunChild(run, szCsRe, fmt.Sprintf(`<w:szCs w:val="%d"/>`, half))
		}
		if font.Bold != nil {
			if *font.Bold {
				run = setRunChild(run, boldRe, "<w:b/>")
			} else {
				run = setRunChild(run, boldRe, "")
				run = setRunChild(run, boldCsRe, "")
			}
		}
		if font.Color != "" {
			run = setRunChild(run, colorRe, fmt.Sprintf(`<w:color w:val="%s"/>`, font.Color))
		}
		return run
	})
	return chunk
}

func renderSpacing(p formatspec.ParaTarget) string {
	var b strings.Builder
	b.WriteString("<w:spacing")
	if p.SpaceBeforePt != nil {
		fmt.Fprintf(&b, ` w:before="%d"`, int(*p.SpaceBeforePt*20))
	}
	if p.SpaceAfterPt != nil {
		fmt.Fprintf(&b, ` w:after="%d"`, int(*p.SpaceAfterPt*20))
	}
	if p.LineSpacing != nil {
		switch p.LineSpacingRule {
		case "exactly":
			fmt.Fprintf(&b, ` w:line="%d" w:lineRule="exact"`, int(*p.LineSpacing*20))
		case "atLeast":
			fmt.Fprintf(&b, ` w:line="%d" w:lineRule="atLeast"`, int(*p.LineSpacing*20))
		default:
			fmt.Fprintf(&b, ` w:line="%d" w:lineRule="auto"`, int(*p.LineSpacing*240))
		}
	}
	b.WriteString("/>")
	return b.String()
}

func renderInd(p formatspec.ParaTarget) string {
	var b strings.Builder
	b.WriteString("<w:ind")
	if p.FirstLineIndentChars != nil {
		fmt.Fprintf(&b, ` w:firstLineChars="%d" w:firstLine="%d"`,
			int(*p.FirstLineIndentChars*100), int(*p.FirstLineIndentChars*210))
	}
	if p.LeftIndentChars != nil {
		fmt.Fprintf(&b, ` w:leftChars="%d"`, int(*p.LeftIndentChars*100))
	}
	b.WriteString("/>")
	return b.String()
}

func renderRFonts(f formatspec.FontTarget) string {
	var b strings.Builder
	b.WriteString("<w:rFonts")
	if f.Name != "" {
		fmt.Fprintf(&b, ` w:ascii="%s" w:hAnsi="%s"`, escapeXML(f.Name), escapeXML(f.Name))
	}
	if f.EastAsianName != "" {
		fmt.Fprintf(&b, ` w:eastAsia="%s"`, escapeXML(f.EastAsianName))
	}
	b.WriteString("/>")
	return b.String()
}

func jcVal(alignment string) string {
	if alignment == "justify" {
		return "both"
	}
	return alignment
}

// setHeadingLevelTo rewrites the style and outline level of one paragraph.
func setHeadingLevelTo(chunk []byte, level int) []byte {
	chunk = setPPrChild(chunk, pStyleRe, fmt.Sprintf(`<w:pStyle w:val="Heading%d"/>`, level))
	return setPPrChild(chunk, outlineRe, fmt.Sprintf(`<w:outlineLvl w:val="%d"/>`, level-1))
}

// replaceTextIn collapses the paragraph's runs into one run carrying the
// first run's properties and the new text. Non-run children such as
// bookmarks stay in place.
func replaceTextIn(chunk []byte, text string) []byte {
	s := string(chunk)
	s = hyperRe.ReplaceAllString(s, "")
	segs := runSegments([]byte(s))

	rpr := ""
	if len(segs) > 0 {
		if loc := rprBlockRe.FindStringIndex(s[segs[0][0]:segs[0][1]]); loc != nil {
			rpr = s[segs[0][0]+loc[0] : segs[0][0]+loc[1]]
		}
	}
	newRun := "<w:r>" + rpr + `<w:t xml:space="preserve">` + escapeXML(text) + "</w:t></w:r>"

	if len(segs) == 0 {
		at := strings.LastIndex(s, "</w:p>")
		if at < 0 {
			return chunk
		}
		return []byte(s[:at] + newRun + s[at:])
	}
	var b strings.Builder
	prev := 0
	for i, seg := range segs {
		b.WriteString(s[prev:seg[0]])
		if i == 0 {
			b.WriteString(newRun)
		}
		prev = seg[1]
	}
	b.WriteString(s[prev:])
	return []byte(b.String())
}

// clearMarkIn removes one inline mark kind from every run.
func clearMarkIn(chunk []byte, mark document.MarkKind) []byte {
	return editRuns(chunk, func(run string) string {
		switch mark {
		case document.MarkUnderline:
			return setRunChild(run, underlineRe, "")
		case document.MarkItalic:
			run = setRunChild(run, italicRe, "")
			return setRunChild(run, italicCsRe, "")
		case document.MarkStrikethrough:
			return setRunChild(run, strikeRe, "")
		}
		return run
	})
}

// setColorIn forces one font color across the paragraph's runs.
func setColorIn(chunk []byte, color string) []byte {
	frag := fmt.Sprintf(`<w:color w:val="%s"/>`, strings.ToUpper(color))
	return editRuns(chunk, func(run string) string {
		return setRunChild(run, colorRe, frag)
	})
}

var tblStyleRe = childRe("tblStyle")

// setTableStyleIn rewrites the table's style id, creating tblPr when the
// table has none.
func setTableStyleIn(chunk []byte, styleID string) []byte {
	s := string(chunk)
	frag := fmt.Sprintf(`<w:tblStyle w:val="%s"/>`, escapeXML(styleID))
	if loc := regexp.MustCompile(`<w:tblPr[ >]`).FindStringIndex(s); loc != nil {
		end := strings.Index(s[loc[1]:], "</w:tblPr>")
		if end < 0 {
			return chunk
		}
		inner := s[loc[1] : loc[1]+end]
		if tblStyleRe.MatchString(inner) {
			inner = tblStyleRe.ReplaceAllString(inner, frag)
		} else {
			inner = frag + inner
		}
		return []byte(s[:loc[1]] + inner + s[loc[1]+end:])
	}
	at := openTagEnd(chunk)
	return []byte(s[:at] + "<w:tblPr>" + frag + "</w:tblPr>" + s[at:])
}
