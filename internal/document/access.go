package document

import (
	"context"

	"github.com/docfmt/docfmt/internal/formatspec"
)

// ProgressFunc reports completed units out of total during a batched mutation.
type ProgressFunc func(done, total int)

// Access is the contract the engine consumes to read and mutate a live
// document. Every mutation operates on the current live index space; callers
// must remap stale indices before calling. Implementations are not required
// to be safe for concurrent use: the engine is single-flight per session.
type Access interface {
	// Name returns a human-readable document name for log attribution.
	Name() string

	ListParagraphs(ctx context.Context) ([]ParagraphInfo, error)
	SectionHeadersFooters(ctx context.Context) ([]HeaderFooterInfo, error)
	SectionParagraphIndices(ctx context.Context, section int) ([]int, error)
	ListTables(ctx context.Context) ([]TableInfo, error)

	// ApplyFormat applies one class target to the given paragraphs in
	// batches of batchSize, invoking progress after each batch.
	ApplyFormat(ctx context.Context, target formatspec.ClassFormat, indices []int, batchSize int, progress ProgressFunc) error
	ApplyHeaderFooterTemplate(ctx context.Context, tpl HeaderFooterTemplate) error
	ApplyColorCorrections(ctx context.Context, items []ColorCorrection, progress ProgressFunc) error

	SetHeadingLevel(ctx context.Context, index, level int) error
	ReplaceParagraphText(ctx context.Context, index int, text string) error
	SetTableStyle(ctx context.Context, tableIndex int, styleID string) error
	SetImageAlignment(ctx context.Context, index int, align Alignment) error
	ClearFormatMarks(ctx context.Context, indices []int, mark MarkKind) error

	// DeleteParagraphs removes the given paragraphs and shifts every later
	// index down. Indices may arrive in any order.
	DeleteParagraphs(ctx context.Context, indices []int) error

	// RefreshTOC marks or rebuilds the table of contents after heading
	// renumbering. Implementations without a TOC return nil.
	RefreshTOC(ctx context.Context) error

	// SnapshotOOXML serializes the document to an opaque blob that
	// RestoreOOXML accepts verbatim. The engine never inspects it.
	SnapshotOOXML(ctx context.Context) (string, error)
	RestoreOOXML(ctx context.Context, ooxml string) error
}
