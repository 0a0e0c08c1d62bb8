package session

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/docfmt/docfmt/internal/document"
	"github.com/docfmt/docfmt/internal/execute"
	"github.com/docfmt/docfmt/internal/integrity"
	"github.com/docfmt/docfmt/internal/oplog"
	"github.com/docfmt/docfmt/internal/plan"
)

// ApplyOptions tunes one apply batch.
type ApplyOptions struct {
	BatchSize int
	// Fonts overrides the merged typography item's Chinese/English font
	// choices, beating the items' own first-non-empty defaults.
	Fonts      execute.FontOverrides
	OnProgress func(itemID string, done, total int)
}

// ApplyResult reports one executed batch.
type ApplyResult struct {
	Status   execute.Status
	Executed []string
	Notes    []string
	// Advisories holds tolerated integrity notes, e.g. content rewritten by
	// an item that declared it would.
	Advisories []string
	LogID      string
}

// Apply executes the selected plan items inside an integrity envelope: a
// full document snapshot plus a scoped content checkpoint taken before the
// batch. A post-batch mismatch is fatal unless an executed item declared a
// content change; then it becomes an advisory note on the log entry.
// Cancelled and failed batches append nothing, and already-applied mutations
// stay applied: recovery is the caller's explicit undo of an earlier batch,
// never an automatic rollback.
func (e *Engine) Apply(ctx context.Context, s *Session, selectedIDs []string, opts ApplyOptions) (*ApplyResult, error) {
	items, err := selectItems(s.Plan, selectedIDs)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no change items selected")
	}

	snapshot, err := e.Doc.SnapshotOOXML(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot document: %w", err)
	}

	touched := touchedIndices(items)
	before, err := integrity.CaptureScoped(ctx, e.Doc, touched)
	if err != nil {
		return nil, fmt.Errorf("capture checkpoint: %w", err)
	}
	beforeTexts, err := paragraphTexts(ctx, e.Doc, touched)
	if err != nil {
		return nil, fmt.Errorf("capture checkpoint: %w", err)
	}

	res, runErr := execute.Run(ctx, e.Doc, items, execute.Options{
		Spec:      s.Plan.Spec,
		BatchSize: opts.BatchSize,
		Fonts:     opts.Fonts,
		Progress:  opts.OnProgress,
	})
	out := &ApplyResult{Status: res.Status, Executed: res.Executed, Notes: res.Notes}
	if runErr != nil {
		// Mutations already applied stay applied; there is no automatic
		// rollback. The batch appends no log entry.
		return out, runErr
	}

	contentChange := anyContentChange(items)
	if mismatch := e.verifyIntegrity(ctx, before, beforeTexts, touched, res.Deleted, contentChange); mismatch != nil {
		if !contentChange {
			log.Error().Str("doc", e.Doc.Name()).Str("mismatch", mismatch.Err.Message).
				Msg("post-batch integrity check failed; document keeps the applied mutations")
			out.Status = execute.StatusFailed
			return out, fmt.Errorf("content integrity check: %w", mismatch.Err)
		}
		out.Advisories = append(out.Advisories, mismatch.Note)
	}

	if e.Log != nil {
		entry := e.Log.Append(oplog.Entry{
			Title:         batchTitle(items),
			Scope:         string(s.Scope.Kind),
			ChangeIDs:     res.Executed,
			Summary:       strings.Join(append(res.Notes, out.Advisories...), "; "),
			SnapshotOOXML: snapshot,
		})
		out.LogID = entry.ID
	}
	return out, nil
}

// integrityMismatch carries both the hard error and the advisory rendering
// of one detected content change.
type integrityMismatch struct {
	Err  *integrity.MismatchError
	Note string
}

func (e *Engine) verifyIntegrity(ctx context.Context, before *integrity.ScopedCheckpoint, beforeTexts map[int]string, touched, deleted []int, contentChange bool) *integrityMismatch {
	if len(deleted) > 0 {
		// Structural items changed the index space; the hash comparison is
		// meaningless. Only legal when a content change was declared.
		if contentChange {
			return &integrityMismatch{
				Err:  &integrity.MismatchError{Message: fmt.Sprintf("%d paragraphs deleted", len(deleted))},
				Note: fmt.Sprintf("%d paragraphs deleted as planned", len(deleted)),
			}
		}
		return &integrityMismatch{Err: &integrity.MismatchError{
			Message: fmt.Sprintf("paragraph count changed by %d", len(deleted)),
		}}
	}

	after, err := integrity.CaptureScoped(ctx, e.Doc, touched)
	if err != nil {
		return &integrityMismatch{Err: &integrity.MismatchError{
			Message: fmt.Sprintf("post-batch checkpoint failed: %v", err),
		}}
	}
	mismatch := before.Compare(after)
	if mismatch == nil {
		return nil
	}
	note := mismatch.Message
	if contentChange {
		note = fmt.Sprintf("%s: %s", mismatch.Message, e.diffNote(ctx, beforeTexts, touched))
	}
	return &integrityMismatch{Err: mismatch, Note: note}
}

// diffNote summarizes how the touched paragraphs' text moved, as insert and
// delete character counts.
func (e *Engine) diffNote(ctx context.Context, beforeTexts map[int]string, touched []int) string {
	paras, err := e.Doc.ListParagraphs(ctx)
	if err != nil {
		return "diff unavailable"
	}
	dmp := diffmatchpatch.New()
	var inserted, deleted int
	for _, idx := range touched {
		if idx < 0 || idx >= len(paras) {
			continue
		}
		for _, d := range dmp.DiffMain(beforeTexts[idx], paras[idx].Text, false) {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				inserted += len([]rune(d.Text))
			case diffmatchpatch.DiffDelete:
				deleted += len([]rune(d.Text))
			}
		}
	}
	return fmt.Sprintf("+%d/-%d chars across checked paragraphs", inserted, deleted)
}

// Undo restores the document to the snapshot of the most recent batch. On a
// failed restore the entry is pushed back so the undo can be retried.
func (e *Engine) Undo(ctx context.Context) (oplog.Entry, error) {
	if e.Log == nil {
		return oplog.Entry{}, oplog.ErrNothingToUndo
	}
	entry, err := e.Log.Pop()
	if err != nil {
		return oplog.Entry{}, err
	}
	if err := e.Doc.RestoreOOXML(ctx, entry.SnapshotOOXML); err != nil {
		e.Log.Append(entry)
		return oplog.Entry{}, fmt.Errorf("restore snapshot: %w", err)
	}
	log.Info().Str("doc", e.Doc.Name()).Str("batch", entry.Title).Msg("batch undone")
	return entry, nil
}

func selectItems(p *plan.Plan, ids []string) ([]plan.Item, error) {
	out := make([]plan.Item, 0, len(ids))
	for _, id := range ids {
		it := p.Find(id)
		if it == nil {
			return nil, fmt.Errorf("unknown change item %q", id)
		}
		out = append(out, it.Clone())
	}
	return out, nil
}

func touchedIndices(items []plan.Item) []int {
	set := map[int]bool{}
	for _, it := range items {
		for _, idx := range it.ParagraphIndices {
			set[idx] = true
		}
	}
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func anyContentChange(items []plan.Item) bool {
	for _, it := range items {
		if it.RequiresContentChange {
			return true
		}
	}
	return false
}

func paragraphTexts(ctx context.Context, doc document.Access, indices []int) (map[int]string, error) {
	paras, err := doc.ListParagraphs(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(paras) {
			continue
		}
		out[idx] = paras[idx].Text
	}
	return out, nil
}

func batchTitle(items []plan.Item) string {
	if len(items) == 1 {
		return items[0].Title
	}
	return fmt.Sprintf("%d formatting changes", len(items))
}
