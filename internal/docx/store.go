package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/docfmt/docfmt/internal/document"
	"github.com/docfmt/docfmt/internal/formatspec"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

const documentPart = "word/document.xml"

// Store is a document.Access over an opened .docx package. Zip entries the
// store never touches are written back byte for byte.
type Store struct {
	name  string
	parts map[string][]byte
	order []string

	prefix []byte
	nodes  []node
	suffix []byte
}

// Open reads a .docx file from disk.
func Open(filePath string) (*Store, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	return OpenBytes(path.Base(filePath), data)
}

// OpenBytes opens a .docx package held in memory.
func OpenBytes(name string, data []byte) (*Store, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	st := &Store{name: name, parts: map[string][]byte{}}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		st.parts[f.Name] = b
		st.order = append(st.order, f.Name)
	}
	doc, ok := st.parts[documentPart]
	if !ok {
		return nil, fmt.Errorf("open docx: %s not found", documentPart)
	}
	if st.prefix, st.nodes, st.suffix, err = splitBody(doc); err != nil {
		return nil, err
	}
	return st, nil
}

// renderDocument reassembles word/document.xml from the body chunks.
func (st *Store) renderDocument() []byte {
	var b bytes.Buffer
	b.Write(st.prefix)
	for _, n := range st.nodes {
		b.Write(n.raw)
	}
	b.Write(st.suffix)
	return b.Bytes()
}

// Save writes the package to filePath, untouched entries verbatim.
func (st *Store) Save(filePath string) error {
	st.parts[documentPart] = st.renderDocument()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range st.order {
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		if _, err := w.Write(st.parts[name]); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish docx: %w", err)
	}
	if err := os.WriteFile(filePath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save docx: %w", err)
	}
	return nil
}

func (st *Store) Name() string { return st.name }

// paraPositions maps paragraph index to its node position.
func (st *Store) paraPositions() []int {
	var out []int
	for pos, n := range st.nodes {
		if n.kind == nodePara {
			out = append(out, pos)
		}
	}
	return out
}

func (st *Store) paraNode(positions []int, index int) (*node, error) {
	if index < 0 || index >= len(positions) {
		return nil, fmt.Errorf("paragraph %d out of range", index)
	}
	return &st.nodes[positions[index]], nil
}

func (st *Store) ListParagraphs(_ context.Context) ([]document.ParagraphInfo, error) {
	var out []document.ParagraphInfo
	i := 0
	for _, n := range st.nodes {
		if n.kind != nodePara {
			continue
		}
		out = append(out, paraInfoOf(n.raw, i))
		i++
	}
	return out, nil
}

func (st *Store) ListTables(_ context.Context) ([]document.TableInfo, error) {
	var out []document.TableInfo
	i := 0
	for _, n := range st.nodes {
		if n.kind != nodeTable {
			continue
		}
		out = append(out, tableInfoOf(n.raw, i))
		i++
	}
	return out, nil
}

var sectPrRe = regexp.MustCompile(`(?s)<w:sectPr[ >].*?</w:sectPr>|<w:sectPr/>`)

// sectionBreaks returns, per paragraph index, whether its pPr carries a
// section break.
func (st *Store) sectionBreaks() []bool {
	var out []bool
	for _, n := range st.nodes {
		if n.kind != nodePara {
			continue
		}
		out = append(out, sectPrRe.Match(n.raw))
	}
	return out
}

func (st *Store) SectionParagraphIndices(_ context.Context, section int) ([]int, error) {
	breaks := st.sectionBreaks()
	cur := 0
	var out []int
	for i, brk := range breaks {
		if cur == section {
			out = append(out, i)
		}
		if brk {
			cur++
		}
	}
	if section < 0 || section > cur {
		return nil, fmt.Errorf("section %d out of range", section)
	}
	return out, nil
}

// sectPrSegments lists every section's sectPr markup in document order: the
// paragraph-level breaks first, then the body-level trailer.
func (st *Store) sectPrSegments() []string {
	var out []string
	for _, n := range st.nodes {
		if n.kind == nodePara {
			if m := sectPrRe.Find(n.raw); m != nil {
				out = append(out, string(m))
			}
			continue
		}
		if n.kind == nodeOther {
			if m := sectPrRe.Find(n.raw); m != nil {
				out = append(out, string(m))
			}
		}
	}
	if m := sectPrRe.Find(st.suffix); m != nil {
		out = append(out, string(m))
	}
	return out
}

var refRe = regexp.MustCompile(`<w:(header|footer)Reference\b[^>]*>`)

type relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Relationships []relationship `xml:"Relationship"`
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

func (st *Store) documentRels() map[string]string {
	out := map[string]string{}
	raw, ok := st.parts["word/_rels/document.xml.rels"]
	if !ok {
		return out
	}
	var rels relationships
	if err := xml.Unmarshal(raw, &rels); err != nil {
		return out
	}
	for _, r := range rels.Relationships {
		out[r.ID] = r.Target
	}
	return out
}

func (st *Store) SectionHeadersFooters(_ context.Context) ([]document.HeaderFooterInfo, error) {
	rels := st.documentRels()
	var out []document.HeaderFooterInfo
	for i, seg := range st.sectPrSegments() {
		info := document.HeaderFooterInfo{SectionIndex: i}
		for _, ref := range refRe.FindAllString(seg, -1) {
			if !strings.Contains(ref, `w:type="default"`) && strings.Contains(ref, "w:type=") {
				continue
			}
			id := attrIn(ref, "id")
			target, ok := rels[id]
			if !ok {
				continue
			}
			text, align := partText(st.parts["word/"+target])
			if strings.HasPrefix(ref, "<w:headerReference") {
				info.HeaderText, info.HeaderAlign = text, align
			} else {
				info.FooterText, info.FooterAlign = text, align
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// attrIn pulls one attribute value out of a raw tag by local name.
func attrIn(tag, local string) string {
	re := regexp.MustCompile(`[ :]` + local + `="([^"]*)"`)
	m := re.FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	return m[1]
}

func (st *Store) ApplyFormat(_ context.Context, target formatspec.ClassFormat, indices []int, batchSize int, progress document.ProgressFunc) error {
	if batchSize <= 0 {
		batchSize = 20
	}
	positions := st.paraPositions()
	done := 0
	for _, idx := range indices {
		n, err := st.paraNode(positions, idx)
		if err != nil {
			return err
		}
		n.raw = applyFormatTo(n.raw, target)
		done++
		if progress != nil && (done%batchSize == 0 || done == len(indices)) {
			progress(done, len(indices))
		}
	}
	return nil
}

func (st *Store) ApplyColorCorrections(_ context.Context, items []document.ColorCorrection, progress document.ProgressFunc) error {
	positions := st.paraPositions()
	for i, c := range items {
		n, err := st.paraNode(positions, c.Index)
		if err != nil {
			return err
		}
		n.raw = setColorIn(n.raw, c.NewColor)
		if progress != nil {
			progress(i+1, len(items))
		}
	}
	return nil
}

func (st *Store) SetHeadingLevel(_ context.Context, index, level int) error {
	if level < 1 || level > 9 {
		return fmt.Errorf("heading level %d out of range", level)
	}
	n, err := st.paraNode(st.paraPositions(), index)
	if err != nil {
		return err
	}
	n.raw = setHeadingLevelTo(n.raw, level)
	return nil
}

func (st *Store) ReplaceParagraphText(_ context.Context, index int, text string) error {
	n, err := st.paraNode(st.paraPositions(), index)
	if err != nil {
		return err
	}
	n.raw = replaceTextIn(n.raw, text)
	return nil
}

func (st *Store) SetTableStyle(_ context.Context, tableIndex int, styleID string) error {
	i := 0
	for pos := range st.nodes {
		if st.nodes[pos].kind != nodeTable {
			continue
		}
		if i == tableIndex {
			st.nodes[pos].raw = setTableStyleIn(st.nodes[pos].raw, styleID)
			return nil
		}
		i++
	}
	return fmt.Errorf("table %d out of range", tableIndex)
}

func (st *Store) SetImageAlignment(_ context.Context, index int, align document.Alignment) error {
	n, err := st.paraNode(st.paraPositions(), index)
	if err != nil {
		return err
	}
	n.raw = setPPrChild(n.raw, jcRe, fmt.Sprintf(`<w:jc w:val="%s"/>`, jcVal(string(align))))
	return nil
}

func (st *Store) ClearFormatMarks(_ context.Context, indices []int, mark document.MarkKind) error {
	positions := st.paraPositions()
	for _, idx := range indices {
		n, err := st.paraNode(positions, idx)
		if err != nil {
			return err
		}
		n.raw = clearMarkIn(n.raw, mark)
	}
	return nil
}

func (st *Store) DeleteParagraphs(_ context.Context, indices []int) error {
	positions := st.paraPositions()
	var del []int
	for _, idx := range indices {
		if idx < 0 || idx >= len(positions) {
			return fmt.Errorf("paragraph %d out of range", idx)
		}
		del = append(del, positions[idx])
	}
	sort.Sort(sort.Reverse(sort.IntSlice(del)))
	for _, pos := range del {
		st.nodes = append(st.nodes[:pos], st.nodes[pos+1:]...)
	}
	return nil
}

func (st *Store) ApplyHeaderFooterTemplate(_ context.Context, tpl document.HeaderFooterTemplate) error {
	touched := 0
	for name := range st.parts {
		base := path.Base(name)
		switch {
		case strings.HasPrefix(base, "header") && strings.HasSuffix(base, ".xml") && strings.HasPrefix(name, "word/"):
			st.parts[name] = renderHeaderFooterPart("hdr", tpl.HeaderText, tpl.HeaderAlign, false)
			touched++
		case strings.HasPrefix(base, "footer") && strings.HasSuffix(base, ".xml") && strings.HasPrefix(name, "word/"):
			st.parts[name] = renderHeaderFooterPart("ftr", tpl.FooterText, tpl.FooterAlign, tpl.PageNumbers)
			touched++
		}
	}
	if touched == 0 {
		return fmt.Errorf("document has no header or footer parts")
	}
	return nil
}

func renderHeaderFooterPart(root, text string, align document.Alignment, pageNumbers bool) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	fmt.Fprintf(&b, `<w:%s xmlns:w="%s">`, root, wordNS)
	b.WriteString("<w:p><w:pPr>")
	if align != document.AlignNone {
		fmt.Fprintf(&b, `<w:jc w:val="%s"/>`, jcVal(string(align)))
	}
	b.WriteString("</w:pPr>")
	if text != "" {
		b.WriteString(`<w:r><w:t xml:space="preserve">` + escapeXML(text) + `</w:t></w:r>`)
	}
	if pageNumbers {
		if text != "" {
			b.WriteString(`<w:r><w:t xml:space="preserve"> </w:t></w:r>`)
		}
		b.WriteString(`<w:r><w:fldChar w:fldCharType="begin"/></w:r>` +
			`<w:r><w:instrText xml:space="preserve"> PAGE </w:instrText></w:r>` +
			`<w:r><w:fldChar w:fldCharType="end"/></w:r>`)
	}
	b.WriteString("</w:p>")
	fmt.Fprintf(&b, "</w:%s>", root)
	return []byte(b.String())
}

const settingsPart = "word/settings.xml"

// RefreshTOC asks the application to update fields on next open, which
// recalculates the table of contents. Documents without settings.xml have no
// TOC machinery to refresh.
func (st *Store) RefreshTOC(_ context.Context) error {
	raw, ok := st.parts[settingsPart]
	if !ok {
		return nil
	}
	s := string(raw)
	if strings.Contains(s, "<w:updateFields") {
		return nil
	}
	openEnd := strings.Index(s, "<w:settings")
	if openEnd < 0 {
		return nil
	}
	at := openEnd + strings.IndexByte(s[openEnd:], '>') + 1
	st.parts[settingsPart] = []byte(s[:at] + `<w:updateFields w:val="true"/>` + s[at:])
	return nil
}

// ooxmlSnapshot bundles the mutable parts so a restore rewinds headers and
// settings along with the body.
type ooxmlSnapshot struct {
	Parts map[string][]byte `json:"parts"`
}

func (st *Store) mutableParts() []string {
	out := []string{documentPart}
	for name := range st.parts {
		base := path.Base(name)
		if strings.HasPrefix(name, "word/") &&
			(strings.HasPrefix(base, "header") || strings.HasPrefix(base, "footer")) &&
			strings.HasSuffix(base, ".xml") {
			out = append(out, name)
		}
	}
	if _, ok := st.parts[settingsPart]; ok {
		out = append(out, settingsPart)
	}
	sort.Strings(out)
	return out
}

func (st *Store) SnapshotOOXML(_ context.Context) (string, error) {
	st.parts[documentPart] = st.renderDocument()
	snap := ooxmlSnapshot{Parts: map[string][]byte{}}
	for _, name := range st.mutableParts() {
		snap.Parts[name] = append([]byte(nil), st.parts[name]...)
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("snapshot document: %w", err)
	}
	return string(b), nil
}

func (st *Store) RestoreOOXML(_ context.Context, ooxml string) error {
	var snap ooxmlSnapshot
	if err := json.Unmarshal([]byte(ooxml), &snap); err != nil {
		return fmt.Errorf("restore document: %w", err)
	}
	doc, ok := snap.Parts[documentPart]
	if !ok {
		return fmt.Errorf("restore document: snapshot has no %s", documentPart)
	}
	prefix, nodes, suffix, err := splitBody(doc)
	if err != nil {
		return fmt.Errorf("restore document: %w", err)
	}
	for name, data := range snap.Parts {
		st.parts[name] = data
	}
	st.prefix, st.nodes, st.suffix = prefix, nodes, suffix
	return nil
}
