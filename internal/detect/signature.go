package detect

import (
	"fmt"
	"math"
	"strings"

	"github.com/docfmt/docfmt/internal/document"
	"github.com/docfmt/docfmt/internal/formatspec"
)

// signature is the normalized format tuple a paragraph is grouped by when
// electing the dominant format of its class.
type signature struct {
	fontName  string
	fontSize  float64
	bold      bool
	alignment document.Alignment
	firstLine float64
	leftInd   float64
	lineVal   float64
	lineRule  document.LineSpacingRule
	before    float64
	after     float64
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func signatureOf(p document.ParagraphInfo) signature {
	return signature{
		fontName:  strings.TrimSpace(p.Font.Name),
		fontSize:  round1(p.Font.Size),
		bold:      p.Font.Bold,
		alignment: p.Para.Alignment,
		firstLine: round1(p.Para.FirstLineIndentChars),
		leftInd:   round1(p.Para.LeftIndentChars),
		lineVal:   round1(p.Para.LineSpacing),
		lineRule:  p.Para.LineSpacingRule,
		before:    round1(p.Para.SpaceBeforePt),
		after:     round1(p.Para.SpaceAfterPt),
	}
}

func (s signature) key() string {
	return fmt.Sprintf("%s|%.1f|%t|%s|%.1f|%.1f|%.1f|%s|%.1f|%.1f",
		s.fontName, s.fontSize, s.bold, s.alignment,
		s.firstLine, s.leftInd, s.lineVal, s.lineRule, s.before, s.after)
}

// differs reports a mismatch beyond tolerance: categorical fields must match
// exactly, numeric fields within |Δ| <= tol.
func (s signature) differs(ref signature, tol float64) bool {
	if s.fontName != ref.fontName || s.bold != ref.bold ||
		s.alignment != ref.alignment || s.lineRule != ref.lineRule {
		return true
	}
	nums := [][2]float64{
		{s.fontSize, ref.fontSize},
		{s.firstLine, ref.firstLine},
		{s.leftInd, ref.leftInd},
		{s.lineVal, ref.lineVal},
		{s.before, ref.before},
		{s.after, ref.after},
	}
	for _, n := range nums {
		if math.Abs(n[0]-n[1]) > tol {
			return true
		}
	}
	return false
}

// classOf buckets a paragraph for signature voting. Headings deeper than 3
// and empty decorative paragraphs stay unclassified.
func classOf(p document.ParagraphInfo) formatspec.Class {
	if lv := p.HeadingLevel(); lv >= 1 && lv <= 3 {
		return formatspec.HeadingClass(lv)
	}
	if p.HeadingLevel() > 3 {
		return ""
	}
	if p.InList {
		return formatspec.ClassListItem
	}
	if strings.TrimSpace(p.Text) == "" || p.HasImage {
		return ""
	}
	return formatspec.ClassBodyText
}

var classCategory = map[formatspec.Class]CategoryKey{
	formatspec.ClassHeading1: CategoryHeading,
	formatspec.ClassHeading2: CategoryHeading,
	formatspec.ClassHeading3: CategoryHeading,
	formatspec.ClassBodyText: CategoryBody,
	formatspec.ClassListItem: CategoryList,
}

// scanSignatures elects the dominant signature per class (most frequent
// group wins, first-seen breaks ties) and reports every member whose tuple
// diverges from the reference beyond tolerance.
func scanSignatures(r *Result, paras []document.ParagraphInfo, opts Options, add func(CategoryKey, ...Issue)) {
	// positions are offsets into paras; reported indices are document indices.
	positions := map[formatspec.Class][]int{}
	for pos, p := range paras {
		class := classOf(p)
		if class == "" {
			continue
		}
		positions[class] = append(positions[class], pos)
		r.ClassMembers[class] = append(r.ClassMembers[class], p.Index)
	}

	for _, class := range formatspec.Classes {
		members := positions[class]
		if len(members) < 2 {
			continue
		}

		type group struct {
			first int // offset into members, preserves first-seen order
			count int
		}
		groups := map[string]*group{}
		sigs := make([]signature, len(members))
		for i, pos := range members {
			sigs[i] = signatureOf(paras[pos])
			k := sigs[i].key()
			if g, ok := groups[k]; ok {
				g.count++
			} else {
				groups[k] = &group{first: i, count: 1}
			}
		}
		dominant := groups[sigs[0].key()]
		for _, g := range groups {
			if g.count > dominant.count || (g.count == dominant.count && g.first < dominant.first) {
				dominant = g
			}
		}
		ref := sigs[dominant.first]

		var off []int
		var sampleText string
		for i, pos := range members {
			if sigs[i].differs(ref, opts.Tolerance) {
				off = append(off, paras[pos].Index)
				if sampleText == "" {
					sampleText = sample(paras[pos].Text, opts.SampleLen)
				}
			}
		}
		if len(off) == 0 {
			continue
		}
		r.ClassInconsistent[class] = off
		add(classCategory[class], Issue{
			Name:     fmt.Sprintf("%d of %d %s paragraphs differ from the dominant format", len(off), len(members), class),
			Severity: SeverityWarning,
			Indices:  off,
			Sample:   sampleText,
		})
	}
}
