package execute

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/docfmt/docfmt/internal/detect"
	"github.com/docfmt/docfmt/internal/document"
	"github.com/docfmt/docfmt/internal/formatspec"
	"github.com/docfmt/docfmt/internal/plan"
)

// Status is the lifecycle of one execution batch.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// ErrCancelled is returned when the context is cancelled between items. Work
// already applied stays applied; the caller's snapshot is the way back.
var ErrCancelled = errors.New("operation cancelled")

// ItemError identifies which change item a batch failed on.
type ItemError struct {
	ID    string
	Title string
	Err   error
}

func (e *ItemError) Error() string { return fmt.Sprintf("change %q failed: %v", e.Title, e.Err) }
func (e *ItemError) Unwrap() error { return e.Err }

// Options tunes a run.
type Options struct {
	// Spec supplies the class format targets style items apply.
	Spec *formatspec.Spec
	// BatchSize is the paragraph batch per formatting call. Zero means 20.
	BatchSize int
	// Fonts overrides the merged typography item's font choices.
	Fonts FontOverrides
	// Progress, when set, is invoked after each completed item.
	Progress func(itemID string, done, total int)
}

const defaultBatchSize = 20

// Result reports what a run did. On failure or cancellation Executed holds
// the items that finished before the stop.
type Result struct {
	Status   Status
	Executed []string
	Notes    []string
	// Deleted holds the document indices structural items removed, in the
	// index space that was live when each deletion ran.
	Deleted []int
}

// Run merges, orders and executes the given change items against the
// document. Cancellation is honored between items; a failing item aborts the
// batch with an ItemError. After any structural item the remaining items'
// paragraph indices are remapped into the post-deletion index space.
func Run(ctx context.Context, doc document.Access, items []plan.Item, opts Options) (*Result, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	ordered := OrderForExecution(MergeTypographyItems(items, opts.Fonts))
	res := &Result{Status: StatusRunning}

	for i := 0; i < len(ordered); i++ {
		it := ordered[i]
		if ctx.Err() != nil {
			res.Status = StatusCancelled
			return res, fmt.Errorf("before change %q: %w", it.ID, ErrCancelled)
		}
		log.Debug().
			Str("doc", doc.Name()).
			Str("item", it.ID).
			Int("paragraphs", len(it.ParagraphIndices)).
			Msg("executing change item")
		note, err := applyItem(ctx, doc, it, opts)
		if err != nil {
			res.Status = StatusFailed
			return res, &ItemError{ID: it.ID, Title: it.Title, Err: err}
		}
		res.Executed = append(res.Executed, it.ID)
		if note != "" {
			res.Notes = append(res.Notes, note)
		}
		if opts.Progress != nil {
			opts.Progress(it.ID, i+1, len(ordered))
		}
		if it.Type.Structural() && len(it.ParagraphIndices) > 0 {
			res.Deleted = append(res.Deleted, it.ParagraphIndices...)
			for j := i + 1; j < len(ordered); j++ {
				ordered[j] = ordered[j].Clone()
				ordered[j].ParagraphIndices = RemapIndicesAfterDeletion(ordered[j].ParagraphIndices, it.ParagraphIndices)
			}
		}
	}
	res.Status = StatusCompleted
	return res, nil
}

func applyItem(ctx context.Context, doc document.Access, it plan.Item, opts Options) (string, error) {
	switch it.Type {
	case plan.TypeHeadingLevelFix:
		fixes, ok := it.Data["fixes"].([]detect.HeadingLevelFix)
		if !ok {
			return "", errors.New("missing heading level fixes")
		}
		for _, f := range fixes {
			if err := doc.SetHeadingLevel(ctx, f.Index, f.To); err != nil {
				return "", fmt.Errorf("set heading level %d on paragraph %d: %w", f.To, f.Index, err)
			}
		}
		return fmt.Sprintf("clamped %d heading levels", len(fixes)), nil

	case plan.TypeHeadingStyle, plan.TypeBodyStyle, plan.TypeListStyle:
		name, _ := it.Data["class"].(string)
		cf := opts.Spec.Class(formatspec.Class(name))
		if cf == nil {
			return "", fmt.Errorf("no format target for class %q", name)
		}
		return "", doc.ApplyFormat(ctx, *cf, it.ParagraphIndices, opts.BatchSize, nil)

	case plan.TypeHeadingNumbering:
		paras, err := doc.ListParagraphs(ctx)
		if err != nil {
			return "", fmt.Errorf("list paragraphs: %w", err)
		}
		nums := plan.HeadingNumbers(paras)
		idxs := make([]int, 0, len(nums))
		for idx := range nums {
			idxs = append(idxs, idx)
		}
		sort.Ints(idxs)
		for _, idx := range idxs {
			if err := doc.ReplaceParagraphText(ctx, idx, nums[idx]); err != nil {
				return "", fmt.Errorf("renumber heading %d: %w", idx, err)
			}
		}
		if err := doc.RefreshTOC(ctx); err != nil {
			return "", fmt.Errorf("refresh table of contents: %w", err)
		}
		return fmt.Sprintf("renumbered %d headings", len(idxs)), nil

	case plan.TypeCaptionStyle:
		fixes, ok := it.Data["fixes"].([]detect.CaptionFix)
		if !ok {
			return "", errors.New("missing caption fixes")
		}
		paras, err := doc.ListParagraphs(ctx)
		if err != nil {
			return "", fmt.Errorf("list paragraphs: %w", err)
		}
		byIndex := paragraphTexts(paras)
		changed := 0
		for _, f := range fixes {
			text, ok := byIndex[f.Index]
			if !ok {
				continue
			}
			next := plan.RenumberCaption(text, f)
			if next == text {
				continue
			}
			if err := doc.ReplaceParagraphText(ctx, f.Index, next); err != nil {
				return "", fmt.Errorf("renumber caption %d: %w", f.Index, err)
			}
			changed++
		}
		return fmt.Sprintf("renumbered %d captions", changed), nil

	case plan.TypeTableStyle:
		tables, _ := it.Data["tables"].([]int)
		styleID, _ := it.Data["styleId"].(string)
		if styleID == "" {
			styleID = plan.DefaultTableStyle
		}
		for _, t := range tables {
			if err := doc.SetTableStyle(ctx, t, styleID); err != nil {
				return "", fmt.Errorf("style table %d: %w", t, err)
			}
		}
		return "", nil

	case plan.TypeImageAlignment:
		for _, idx := range it.ParagraphIndices {
			if err := doc.SetImageAlignment(ctx, idx, document.AlignCenter); err != nil {
				return "", fmt.Errorf("center image paragraph %d: %w", idx, err)
			}
		}
		return "", nil

	case plan.TypeHeaderFooterTemplate:
		tpl, ok := it.Data["template"].(document.HeaderFooterTemplate)
		if !ok {
			return "", errors.New("missing header/footer template")
		}
		return "", doc.ApplyHeaderFooterTemplate(ctx, tpl)

	case plan.TypeColorCorrection:
		corrections, ok := it.Data["corrections"].([]document.ColorCorrection)
		if !ok {
			return "", errors.New("missing color corrections")
		}
		return "", doc.ApplyColorCorrections(ctx, corrections, nil)

	case plan.TypeMixedTypography, plan.TypePunctuationSpacing:
		return applyTypography(ctx, doc, it, opts.BatchSize)

	case plan.TypeSpecialContent:
		indent := 2.0
		target := formatspec.ClassFormat{Para: formatspec.ParaTarget{LeftIndentChars: &indent}}
		return "", doc.ApplyFormat(ctx, target, it.ParagraphIndices, opts.BatchSize, nil)

	case plan.TypeUnderlineRemoval, plan.TypeItalicRemoval, plan.TypeStrikethroughRemoval:
		name, _ := it.Data["mark"].(string)
		if !document.ValidMark(name) {
			return "", fmt.Errorf("unknown format mark %q", name)
		}
		return "", doc.ClearFormatMarks(ctx, it.ParagraphIndices, document.MarkKind(name))

	case plan.TypePaginationControl:
		if err := doc.DeleteParagraphs(ctx, it.ParagraphIndices); err != nil {
			return "", fmt.Errorf("delete paragraphs: %w", err)
		}
		return fmt.Sprintf("deleted %d spacing paragraphs", len(it.ParagraphIndices)), nil

	default:
		return "", fmt.Errorf("unknown change type %q", it.Type)
	}
}

func applyTypography(ctx context.Context, doc document.Access, it plan.Item, batch int) (string, error) {
	addSpace, _ := it.Data["addCJKLatinSpace"].(bool)
	fixPunct, _ := it.Data["fixPunctuationSpacing"].(bool)

	paras, err := doc.ListParagraphs(ctx)
	if err != nil {
		return "", fmt.Errorf("list paragraphs: %w", err)
	}
	byIndex := paragraphTexts(paras)
	changed := 0
	for _, idx := range it.ParagraphIndices {
		text, ok := byIndex[idx]
		if !ok {
			continue
		}
		next := text
		if addSpace {
			next = AddCJKLatinSpaces(next)
		}
		if fixPunct {
			next = FixPunctuationSpacing(next)
		}
		if next == text {
			continue
		}
		if err := doc.ReplaceParagraphText(ctx, idx, next); err != nil {
			return "", fmt.Errorf("rewrite paragraph %d: %w", idx, err)
		}
		changed++
	}

	cn, _ := it.Data["chineseFont"].(string)
	en, _ := it.Data["englishFont"].(string)
	if cn != "" || en != "" {
		target := formatspec.ClassFormat{Font: formatspec.FontTarget{Name: en, EastAsianName: cn}}
		if err := doc.ApplyFormat(ctx, target, it.ParagraphIndices, batch, nil); err != nil {
			return "", fmt.Errorf("apply typography fonts: %w", err)
		}
	}
	return fmt.Sprintf("rewrote %d paragraphs", changed), nil
}

func paragraphTexts(paras []document.ParagraphInfo) map[int]string {
	out := make(map[int]string, len(paras))
	for _, p := range paras {
		out[p.Index] = p.Text
	}
	return out
}
