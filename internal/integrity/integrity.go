// Package integrity captures content checkpoints around a change batch and
// detects unintended paragraph text changes afterward.
package integrity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/docfmt/docfmt/internal/document"
)

// Checkpoint is a whole-document content fingerprint: one sha256 per
// paragraph text plus the totals used for cheap pre-checks.
type Checkpoint struct {
	ParagraphCount int
	TotalChars     int
	Hashes         []string
}

// ScopedCheckpoint fingerprints a subset of paragraphs; Hashes[i] covers
// the paragraph at Indices[i].
type ScopedCheckpoint struct {
	Indices    []int
	TotalChars int
	Hashes     []string
}

// MismatchError reports the first integrity violation found. Message is the
// stable text surfaced to callers.
type MismatchError struct {
	Message string
}

func (e *MismatchError) Error() string { return e.Message }

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Capture fingerprints every paragraph in the document.
func Capture(ctx context.Context, doc document.Access) (*Checkpoint, error) {
	paras, err := doc.ListParagraphs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list paragraphs: %w", err)
	}
	cp := &Checkpoint{ParagraphCount: len(paras)}
	for _, p := range paras {
		cp.TotalChars += len([]rune(p.Text))
		cp.Hashes = append(cp.Hashes, hashText(p.Text))
	}
	return cp, nil
}

// CaptureScoped fingerprints only the given paragraph indices. Out-of-range
// indices are an error: the caller resolved them against the same live
// document a moment ago.
func CaptureScoped(ctx context.Context, doc document.Access, indices []int) (*ScopedCheckpoint, error) {
	paras, err := doc.ListParagraphs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list paragraphs: %w", err)
	}
	cp := &ScopedCheckpoint{}
	for _, idx := range indices {
		if idx < 0 || idx >= len(paras) {
			return nil, fmt.Errorf("paragraph %d out of range", idx)
		}
		cp.Indices = append(cp.Indices, idx)
		cp.TotalChars += len([]rune(paras[idx].Text))
		cp.Hashes = append(cp.Hashes, hashText(paras[idx].Text))
	}
	return cp, nil
}

// Compare checks a later whole-document checkpoint against this one. The
// checks run in a fixed order: paragraph count first, then the first
// paragraph whose content hash changed.
func (cp *Checkpoint) Compare(after *Checkpoint) *MismatchError {
	if cp.ParagraphCount != after.ParagraphCount {
		return &MismatchError{Message: fmt.Sprintf(
			"paragraph count changed from %d to %d", cp.ParagraphCount, after.ParagraphCount)}
	}
	for i := range cp.Hashes {
		if cp.Hashes[i] != after.Hashes[i] {
			return &MismatchError{Message: fmt.Sprintf("paragraph %d content changed", i+1)}
		}
	}
	return nil
}

// Compare checks a later scoped checkpoint against this one. Index sets must
// match exactly; then the first differing hash is reported by its document
// position, 1-based.
func (cp *ScopedCheckpoint) Compare(after *ScopedCheckpoint) *MismatchError {
	if len(cp.Indices) != len(after.Indices) {
		return &MismatchError{Message: fmt.Sprintf(
			"checked paragraph count changed from %d to %d", len(cp.Indices), len(after.Indices))}
	}
	for i := range cp.Indices {
		if cp.Indices[i] != after.Indices[i] {
			return &MismatchError{Message: fmt.Sprintf(
				"checked paragraph set changed at position %d", i)}
		}
	}
	for i := range cp.Hashes {
		if cp.Hashes[i] != after.Hashes[i] {
			return &MismatchError{Message: fmt.Sprintf("paragraph %d content changed", cp.Indices[i]+1)}
		}
	}
	return nil
}
