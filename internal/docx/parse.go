// Package docx implements document.Access over a WordprocessingML (.docx)
// package. The main part, word/document.xml, is split into raw body chunks
// (paragraphs, tables, everything else); reads stream over a chunk's tokens
// and mutations rewrite the chunk bytes in place, so markup the store does
// not model survives the round trip untouched.
package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docfmt/docfmt/internal/document"
)

type nodeKind int

const (
	nodePara nodeKind = iota
	nodeTable
	nodeOther
)

// node is one direct child of w:body, kept as raw bytes.
type node struct {
	kind nodeKind
	raw  []byte
}

// splitBody cuts word/document.xml into the markup before the body content,
// the body's direct children, and the markup from the body close tag on.
func splitBody(doc []byte) (prefix []byte, nodes []node, suffix []byte, err error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	depth := 0
	bodyDepth := -1
	for {
		before := dec.InputOffset()
		tok, terr := dec.RawToken()
		if terr == io.EOF {
			break
		}
		if terr != nil {
			return nil, nil, nil, fmt.Errorf("parse document.xml: %w", terr)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if bodyDepth < 0 {
				if t.Name.Local == "body" {
					bodyDepth = depth
					prefix = doc[:dec.InputOffset()]
				}
				depth++
				continue
			}
			if depth == bodyDepth+1 {
				end, serr := skipElement(dec, t.Name)
				if serr != nil {
					return nil, nil, nil, serr
				}
				kind := nodeOther
				switch t.Name.Local {
				case "p":
					kind = nodePara
				case "tbl":
					kind = nodeTable
				}
				nodes = append(nodes, node{kind: kind, raw: doc[before:end]})
				continue
			}
			depth++
		case xml.EndElement:
			depth--
			if bodyDepth >= 0 && depth == bodyDepth {
				suffix = doc[before:]
				return prefix, nodes, suffix, nil
			}
		}
	}
	return nil, nil, nil, fmt.Errorf("parse document.xml: no body element")
}

// skipElement consumes tokens until the element opened by name closes and
// returns the byte offset just past its end tag.
func skipElement(dec *xml.Decoder, name xml.Name) (int64, error) {
	depth := 1
	for depth > 0 {
		tok, err := dec.RawToken()
		if err != nil {
			return 0, fmt.Errorf("parse document.xml: unterminated %s: %w", name.Local, err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return dec.InputOffset(), nil
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func alignOf(val string) document.Alignment {
	switch val {
	case "center":
		return document.AlignCenter
	case "right", "end":
		return document.AlignRight
	case "both", "justify", "distribute":
		return document.AlignJustify
	case "left", "start":
		return document.AlignLeft
	}
	return document.AlignNone
}

// paraInfoOf streams over one paragraph chunk and assembles its snapshot.
// Run attributes come from the first run that carries any.
func paraInfoOf(chunk []byte, index int) document.ParagraphInfo {
	p := document.ParagraphInfo{Index: index}
	dec := xml.NewDecoder(bytes.NewReader(chunk))
	var text strings.Builder
	inPPr, inRPrSeen := false, false
	inNumPr := false
	inT := false
	depth := 0
	pprDepth, rprDepth := -1, -1
	for {
		tok, err := dec.RawToken()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "pPr":
				if pprDepth < 0 {
					inPPr = true
					pprDepth = depth
				}
			case "rPr":
				if inPPr {
					// paragraph mark run properties, not a text run
					break
				}
				if !inRPrSeen {
					rprDepth = depth
				}
			case "numPr":
				if inPPr {
					inNumPr = true
					p.InList = true
				}
			case "ilvl":
				if inNumPr {
					p.ListLevel = atoiOr(attr(t, "val"), 0)
				}
			case "numId":
				if inNumPr {
					p.ListID = attr(t, "val")
				}
			case "pStyle":
				if inPPr {
					p.StyleID = attr(t, "val")
					if lvl := headingStyleLevel(p.StyleID); lvl > 0 && p.OutlineLevel == nil {
						p.OutlineLevel = &lvl
					}
				}
			case "outlineLvl":
				if inPPr {
					lvl := atoiOr(attr(t, "val"), -1) + 1
					if lvl >= 1 {
						p.OutlineLevel = &lvl
					}
				}
			case "jc":
				if inPPr {
					p.Para.Alignment = alignOf(attr(t, "val"))
				}
			case "spacing":
				if inPPr {
					p.Para.SpaceBeforePt = float64(atoiOr(attr(t, "before"), 0)) / 20
					p.Para.SpaceAfterPt = float64(atoiOr(attr(t, "after"), 0)) / 20
					readLineSpacing(t, &p.Para)
				}
			case "ind":
				if inPPr {
					p.Para.FirstLineIndentChars = float64(atoiOr(attr(t, "firstLineChars"), 0)) / 100
					p.Para.LeftIndentChars = float64(atoiOr(attr(t, "leftChars"), 0)) / 100
				}
			case "pageBreakBefore":
				if inPPr && attr(t, "val") != "false" && attr(t, "val") != "0" {
					p.PageBreak = true
				}
			case "br":
				if attr(t, "type") == "page" {
					p.PageBreak = true
				}
			case "t":
				if !inPPr {
					inT = true
				}
			case "drawing", "pict", "object":
				p.HasImage = true
			}
			if rprDepth > 0 && depth == rprDepth+1 && !inRPrSeen {
				readRunProp(t, &p.Font)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "pPr":
				if depth == pprDepth {
					inPPr = false
				}
			case "rPr":
				if depth == rprDepth {
					if p.Font != (document.FontAttrs{}) {
						inRPrSeen = true
					}
					rprDepth = -1
				}
			case "numPr":
				inNumPr = false
			case "t":
				inT = false
			}
			depth--
		case xml.CharData:
			if inT {
				text.Write(t)
			}
		}
	}
	p.Text = text.String()
	return p
}

func readLineSpacing(t xml.StartElement, pa *document.ParaAttrs) {
	line := atoiOr(attr(t, "line"), 0)
	if line == 0 {
		return
	}
	switch attr(t, "lineRule") {
	case "exact":
		pa.LineSpacing = float64(line) / 20
		pa.LineSpacingRule = document.SpacingRuleExactly
	case "atLeast":
		pa.LineSpacing = float64(line) / 20
		pa.LineSpacingRule = document.SpacingRuleAtLeast
	default: // "auto" and absent both mean a multiple of single spacing
		pa.LineSpacing = float64(line) / 240
		pa.LineSpacingRule = document.SpacingRuleMultiple
	}
}

func readRunProp(t xml.StartElement, f *document.FontAttrs) {
	switch t.Name.Local {
	case "rFonts":
		if v := attr(t, "ascii"); v != "" {
			f.Name = v
		}
		if v := attr(t, "eastAsia"); v != "" {
			f.EastAsianName = v
		}
	case "sz":
		f.Size = float64(atoiOr(attr(t, "val"), 0)) / 2
	case "b":
		f.Bold = attr(t, "val") != "false" && attr(t, "val") != "0"
	case "i":
		f.Italic = attr(t, "val") != "false" && attr(t, "val") != "0"
	case "u":
		if v := attr(t, "val"); v != "" && v != "none" {
			f.Underline = v
		}
	case "strike":
		f.Strikethrough = attr(t, "val") != "false" && attr(t, "val") != "0"
	case "color":
		if v := attr(t, "val"); v != "" && v != "auto" {
			f.Color = strings.ToUpper(v)
		}
	}
}

// headingStyleLevel maps built-in heading style ids to their level.
func headingStyleLevel(styleID string) int {
	s := strings.ToLower(styleID)
	if !strings.HasPrefix(s, "heading") {
		return 0
	}
	lvl := atoiOr(strings.TrimSpace(strings.TrimPrefix(s, "heading")), 0)
	if lvl < 1 || lvl > 9 {
		return 0
	}
	return lvl
}

// tableInfoOf streams over one table chunk counting rows and the widest row.
func tableInfoOf(chunk []byte, index int) document.TableInfo {
	ti := document.TableInfo{Index: index}
	dec := xml.NewDecoder(bytes.NewReader(chunk))
	depth := 0
	cells, rowDepth := 0, -1
	for {
		tok, err := dec.RawToken()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "tblStyle":
				if ti.StyleID == "" {
					ti.StyleID = attr(t, "val")
				}
			case "tr":
				if rowDepth < 0 {
					rowDepth = depth
					ti.Rows++
					cells = 0
				}
			case "tc":
				if depth == rowDepth+1 {
					cells++
				}
			}
		case xml.EndElement:
			if t.Name.Local == "tr" && depth == rowDepth {
				if cells > ti.Cols {
					ti.Cols = cells
				}
				rowDepth = -1
			}
			depth--
		}
	}
	return ti
}

// partText streams a header or footer part and returns its visible text and
// first explicit alignment.
func partText(part []byte) (string, document.Alignment) {
	dec := xml.NewDecoder(bytes.NewReader(part))
	var text strings.Builder
	align := document.AlignNone
	inT := false
	for {
		tok, err := dec.RawToken()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inT = true
			case "jc":
				if align == document.AlignNone {
					align = alignOf(attr(t, "val"))
				}
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inT = false
			}
		case xml.CharData:
			if inT {
				text.Write(t)
			}
		}
	}
	return strings.TrimSpace(text.String()), align
}
