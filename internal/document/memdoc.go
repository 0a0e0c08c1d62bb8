package document

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docfmt/docfmt/internal/formatspec"
)

// MemDoc is an in-memory Access implementation. It backs tests and dry runs,
// and doubles as the reference semantics for real stores: every mutation is
// defined here in the simplest possible terms.
type MemDoc struct {
	DocName    string
	Paragraphs []ParagraphInfo
	// Sections[i] is the section number of paragraph i; empty means one section.
	Sections      []int
	Tables        []TableInfo
	HeadersFooter []HeaderFooterInfo
}

type memSnapshot struct {
	DocName       string             `json:"docName"`
	Paragraphs    []ParagraphInfo    `json:"paragraphs"`
	Sections      []int              `json:"sections,omitempty"`
	Tables        []TableInfo        `json:"tables,omitempty"`
	HeadersFooter []HeaderFooterInfo `json:"headersFooters,omitempty"`
}

// NewMemDoc builds a memory document from paragraph texts, all body class.
func NewMemDoc(name string, texts ...string) *MemDoc {
	d := &MemDoc{DocName: name}
	for i, t := range texts {
		d.Paragraphs = append(d.Paragraphs, ParagraphInfo{Index: i, Text: t})
	}
	return d
}

func (d *MemDoc) Name() string {
	if d.DocName == "" {
		return "untitled"
	}
	return d.DocName
}

func (d *MemDoc) ListParagraphs(_ context.Context) ([]ParagraphInfo, error) {
	out := make([]ParagraphInfo, len(d.Paragraphs))
	copy(out, d.Paragraphs)
	for i := range out {
		out[i].Index = i
	}
	return out, nil
}

func (d *MemDoc) SectionHeadersFooters(_ context.Context) ([]HeaderFooterInfo, error) {
	out := make([]HeaderFooterInfo, len(d.HeadersFooter))
	copy(out, d.HeadersFooter)
	return out, nil
}

func (d *MemDoc) SectionParagraphIndices(_ context.Context, section int) ([]int, error) {
	var out []int
	for i := range d.Paragraphs {
		s := 0
		if i < len(d.Sections) {
			s = d.Sections[i]
		}
		if s == section {
			out = append(out, i)
		}
	}
	return out, nil
}

func (d *MemDoc) ListTables(_ context.Context) ([]TableInfo, error) {
	out := make([]TableInfo, len(d.Tables))
	copy(out, d.Tables)
	return out, nil
}

func (d *MemDoc) ApplyFormat(_ context.Context, target formatspec.ClassFormat, indices []int, batchSize int, progress ProgressFunc) error {
	if batchSize <= 0 {
		batchSize = 20
	}
	done := 0
	for _, i := range indices {
		if i < 0 || i >= len(d.Paragraphs) {
			return fmt.Errorf("paragraph %d out of range", i)
		}
		applyTarget(&d.Paragraphs[i], target)
		done++
		if progress != nil && (done%batchSize == 0 || done == len(indices)) {
			progress(done, len(indices))
		}
	}
	return nil
}

func applyTarget(p *ParagraphInfo, t formatspec.ClassFormat) {
	if t.Font.Name != "" {
		p.Font.Name = t.Font.Name
	}
	if t.Font.EastAsianName != "" {
		p.Font.EastAsianName = t.Font.EastAsianName
	}
	if t.Font.Size != nil {
		p.Font.Size = *t.Font.Size
	}
	if t.Font.Bold != nil {
		p.Font.Bold = *t.Font.Bold
	}
	if t.Font.Color != "" {
		p.Font.Color = t.Font.Color
	}
	if t.Para.Alignment != "" {
		p.Para.Alignment = Alignment(t.Para.Alignment)
	}
	if t.Para.FirstLineIndentChars != nil {
		p.Para.FirstLineIndentChars = *t.Para.FirstLineIndentChars
	}
	if t.Para.LeftIndentChars != nil {
		p.Para.LeftIndentChars = *t.Para.LeftIndentChars
	}
	if t.Para.LineSpacing != nil {
		p.Para.LineSpacing = *t.Para.LineSpacing
	}
	if t.Para.LineSpacingRule != "" {
		p.Para.LineSpacingRule = LineSpacingRule(t.Para.LineSpacingRule)
	}
	if t.Para.SpaceBeforePt != nil {
		p.Para.SpaceBeforePt = *t.Para.SpaceBeforePt
	}
	if t.Para.SpaceAfterPt != nil {
		p.Para.SpaceAfterPt = *t.Para.SpaceAfterPt
	}
}

func (d *MemDoc) ApplyHeaderFooterTemplate(_ context.Context, tpl HeaderFooterTemplate) error {
	if len(d.HeadersFooter) == 0 {
		d.HeadersFooter = []HeaderFooterInfo{{SectionIndex: 0}}
	}
	for i := range d.HeadersFooter {
		d.HeadersFooter[i].HeaderText = tpl.HeaderText
		d.HeadersFooter[i].FooterText = tpl.FooterText
		d.HeadersFooter[i].HeaderAlign = tpl.HeaderAlign
		d.HeadersFooter[i].FooterAlign = tpl.FooterAlign
	}
	return nil
}

func (d *MemDoc) ApplyColorCorrections(_ context.Context, items []ColorCorrection, progress ProgressFunc) error {
	for n, it := range items {
		if it.Index < 0 || it.Index >= len(d.Paragraphs) {
			return fmt.Errorf("paragraph %d out of range", it.Index)
		}
		d.Paragraphs[it.Index].Font.Color = it.NewColor
		if progress != nil {
			progress(n+1, len(items))
		}
	}
	return nil
}

func (d *MemDoc) SetHeadingLevel(_ context.Context, index, level int) error {
	if index < 0 || index >= len(d.Paragraphs) {
		return fmt.Errorf("paragraph %d out of range", index)
	}
	lv := level
	d.Paragraphs[index].OutlineLevel = &lv
	d.Paragraphs[index].StyleID = fmt.Sprintf("Heading%d", level)
	return nil
}

func (d *MemDoc) ReplaceParagraphText(_ context.Context, index int, text string) error {
	if index < 0 || index >= len(d.Paragraphs) {
		return fmt.Errorf("paragraph %d out of range", index)
	}
	d.Paragraphs[index].Text = text
	return nil
}

func (d *MemDoc) SetTableStyle(_ context.Context, tableIndex int, styleID string) error {
	for i := range d.Tables {
		if d.Tables[i].Index == tableIndex {
			d.Tables[i].StyleID = styleID
			return nil
		}
	}
	return fmt.Errorf("table %d not found", tableIndex)
}

func (d *MemDoc) SetImageAlignment(_ context.Context, index int, align Alignment) error {
	if index < 0 || index >= len(d.Paragraphs) {
		return fmt.Errorf("paragraph %d out of range", index)
	}
	d.Paragraphs[index].Para.Alignment = align
	return nil
}

func (d *MemDoc) ClearFormatMarks(_ context.Context, indices []int, mark MarkKind) error {
	for _, i := range indices {
		if i < 0 || i >= len(d.Paragraphs) {
			return fmt.Errorf("paragraph %d out of range", i)
		}
		switch mark {
		case MarkUnderline:
			d.Paragraphs[i].Font.Underline = ""
		case MarkItalic:
			d.Paragraphs[i].Font.Italic = false
		case MarkStrikethrough:
			d.Paragraphs[i].Font.Strikethrough = false
		default:
			return fmt.Errorf("unknown format mark %q", mark)
		}
	}
	return nil
}

func (d *MemDoc) DeleteParagraphs(_ context.Context, indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	drop := map[int]bool{}
	for _, i := range indices {
		if i < 0 || i >= len(d.Paragraphs) {
			return fmt.Errorf("paragraph %d out of range", i)
		}
		drop[i] = true
	}
	kept := d.Paragraphs[:0]
	var keptSections []int
	for i := range d.Paragraphs {
		if drop[i] {
			continue
		}
		p := d.Paragraphs[i]
		p.Index = len(kept)
		kept = append(kept, p)
		if i < len(d.Sections) {
			keptSections = append(keptSections, d.Sections[i])
		}
	}
	d.Paragraphs = kept
	if d.Sections != nil {
		d.Sections = keptSections
	}
	return nil
}

func (d *MemDoc) RefreshTOC(_ context.Context) error { return nil }

func (d *MemDoc) SnapshotOOXML(_ context.Context) (string, error) {
	b, err := json.Marshal(memSnapshot{
		DocName:       d.DocName,
		Paragraphs:    d.Paragraphs,
		Sections:      d.Sections,
		Tables:        d.Tables,
		HeadersFooter: d.HeadersFooter,
	})
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	return string(b), nil
}

func (d *MemDoc) RestoreOOXML(_ context.Context, ooxml string) error {
	var s memSnapshot
	if err := json.Unmarshal([]byte(ooxml), &s); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	d.DocName = s.DocName
	d.Paragraphs = s.Paragraphs
	d.Sections = s.Sections
	d.Tables = s.Tables
	d.HeadersFooter = s.HeadersFooter
	return nil
}

var _ Access = (*MemDoc)(nil)
