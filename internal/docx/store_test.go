package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfmt/docfmt/internal/document"
	"github.com/docfmt/docfmt/internal/formatspec"
)

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body><w:p><w:pPr><w:pStyle w:val="Heading1"/><w:outlineLvl w:val="0"/></w:pPr><w:r><w:rPr><w:b/><w:sz w:val="32"/></w:rPr><w:t>引言</w:t></w:r></w:p><w:p><w:pPr><w:spacing w:before="200" w:after="200" w:line="360" w:lineRule="auto"/><w:ind w:firstLineChars="200" w:firstLine="420"/><w:jc w:val="both"/></w:pPr><w:r><w:rPr><w:rFonts w:ascii="Arial" w:eastAsia="宋体"/><w:sz w:val="24"/><w:u w:val="single"/></w:rPr><w:t xml:space="preserve">正文 body</w:t></w:r></w:p><w:p/><w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/></w:tblPr><w:tr><w:tc><w:p><w:r><w:t>c1</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>c2</w:t></w:r></w:p></w:tc></w:tr></w:tbl><w:sectPr><w:headerReference w:type="default" r:id="rId1"/></w:sectPr></w:body></w:document>`

const testHeaderXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:hdr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:t>Acme Corp</w:t></w:r></w:p></w:hdr>`

const testRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/header" Target="header1.xml"/></Relationships>`

const testSettingsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:settings xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:zoom w:percent="100"/></w:settings>`

func buildTestDocx(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range map[string]string{
		"word/document.xml":            testDocumentXML,
		"word/header1.xml":             testHeaderXML,
		"word/_rels/document.xml.rels": testRelsXML,
		"word/settings.xml":            testSettingsXML,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenBytes("test.docx", buildTestDocx(t))
	require.NoError(t, err)
	return st
}

func TestListParagraphs_ReadsAttributes(t *testing.T) {
	st := openTestStore(t)
	paras, err := st.ListParagraphs(context.Background())
	require.NoError(t, err)
	require.Len(t, paras, 3)

	h := paras[0]
	assert.Equal(t, "引言", h.Text)
	assert.Equal(t, "Heading1", h.StyleID)
	assert.Equal(t, 1, h.HeadingLevel())
	assert.True(t, h.Font.Bold)
	assert.Equal(t, 16.0, h.Font.Size)

	b := paras[1]
	assert.Equal(t, "正文 body", b.Text)
	assert.Equal(t, 0, b.HeadingLevel())
	assert.Equal(t, "Arial", b.Font.Name)
	assert.Equal(t, "宋体", b.Font.EastAsianName)
	assert.Equal(t, 12.0, b.Font.Size)
	assert.Equal(t, "single", b.Font.Underline)
	assert.Equal(t, 10.0, b.Para.SpaceBeforePt)
	assert.Equal(t, 10.0, b.Para.SpaceAfterPt)
	assert.Equal(t, 1.5, b.Para.LineSpacing)
	assert.Equal(t, document.SpacingRuleMultiple, b.Para.LineSpacingRule)
	assert.Equal(t, 2.0, b.Para.FirstLineIndentChars)
	assert.Equal(t, document.AlignJustify, b.Para.Alignment)

	assert.Empty(t, paras[2].Text)
}

func TestApplyFormat_RoundTripsThroughSave(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	size := 14.0
	line := 1.25
	target := formatspec.ClassFormat{
		Font: formatspec.FontTarget{Name: "Times New Roman", EastAsianName: "SimSun", Size: &size},
		Para: formatspec.ParaTarget{
			Alignment:       "justify",
			LineSpacing:     &line,
			LineSpacingRule: "multiple",
		},
	}
	require.NoError(t, st.ApplyFormat(ctx, target, []int{1}, 10, nil))

	out := filepath.Join(t.TempDir(), "out.docx")
	require.NoError(t, st.Save(out))
	reopened, err := Open(out)
	require.NoError(t, err)

	paras, err := reopened.ListParagraphs(ctx)
	require.NoError(t, err)
	b := paras[1]
	assert.Equal(t, "Times New Roman", b.Font.Name)
	assert.Equal(t, "SimSun", b.Font.EastAsianName)
	assert.Equal(t, 14.0, b.Font.Size)
	assert.Equal(t, 1.25, b.Para.LineSpacing)
	assert.Equal(t, document.AlignJustify, b.Para.Alignment)
	// untouched paragraph keeps its markup
	assert.Equal(t, "引言", paras[0].Text)
}

func TestReplaceParagraphText_KeepsRunProperties(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	require.NoError(t, st.ReplaceParagraphText(ctx, 0, "1 引言"))
	paras, err := st.ListParagraphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1 引言", paras[0].Text)
	assert.True(t, paras[0].Font.Bold)
	assert.Equal(t, 1, paras[0].HeadingLevel())
}

func TestClearFormatMarks(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	require.NoError(t, st.ClearFormatMarks(ctx, []int{1}, document.MarkUnderline))
	paras, err := st.ListParagraphs(ctx)
	require.NoError(t, err)
	assert.Empty(t, paras[1].Font.Underline)
	// other run props survive
	assert.Equal(t, "Arial", paras[1].Font.Name)
}

func TestSetHeadingLevel(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	require.NoError(t, st.SetHeadingLevel(ctx, 1, 2))
	paras, err := st.ListParagraphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Heading2", paras[1].StyleID)
	assert.Equal(t, 2, paras[1].HeadingLevel())
}

func TestDeleteParagraphs_KeepsTables(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	require.NoError(t, st.DeleteParagraphs(ctx, []int{2}))
	paras, err := st.ListParagraphs(ctx)
	require.NoError(t, err)
	require.Len(t, paras, 2)

	tables, err := st.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "TableGrid", tables[0].StyleID)
	assert.Equal(t, 1, tables[0].Rows)
	assert.Equal(t, 2, tables[0].Cols)
}

func TestSetTableStyle(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	require.NoError(t, st.SetTableStyle(ctx, 0, "GridTable1Light"))
	tables, err := st.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, "GridTable1Light", tables[0].StyleID)
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	snap, err := st.SnapshotOOXML(ctx)
	require.NoError(t, err)

	require.NoError(t, st.ReplaceParagraphText(ctx, 0, "changed"))
	require.NoError(t, st.DeleteParagraphs(ctx, []int{2}))

	require.NoError(t, st.RestoreOOXML(ctx, snap))
	paras, err := st.ListParagraphs(ctx)
	require.NoError(t, err)
	require.Len(t, paras, 3)
	assert.Equal(t, "引言", paras[0].Text)
}

func TestSectionHeadersFooters_AndTemplate(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	hfs, err := st.SectionHeadersFooters(ctx)
	require.NoError(t, err)
	require.Len(t, hfs, 1)
	assert.Equal(t, "Acme Corp", hfs[0].HeaderText)
	assert.Equal(t, document.AlignCenter, hfs[0].HeaderAlign)

	tpl := document.HeaderFooterTemplate{HeaderText: "Annual Report", HeaderAlign: document.AlignCenter}
	require.NoError(t, st.ApplyHeaderFooterTemplate(ctx, tpl))

	hfs, err = st.SectionHeadersFooters(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Annual Report", hfs[0].HeaderText)
}

func TestSectionParagraphIndices_SingleSection(t *testing.T) {
	st := openTestStore(t)
	indices, err := st.SectionParagraphIndices(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, indices)
}

func TestRefreshTOC_SetsUpdateFields(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.RefreshTOC(context.Background()))
	assert.Contains(t, string(st.parts[settingsPart]), "<w:updateFields")

	// idempotent
	require.NoError(t, st.RefreshTOC(context.Background()))
	assert.Equal(t, 1, bytes.Count(st.parts[settingsPart], []byte("<w:updateFields")))
}
