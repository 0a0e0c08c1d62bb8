package formatspec

import "math"

// Defaults carries the sanitizer policy knobs. The heading spacing table and
// the indent clamp are inherited policy, not invariants, so embedders may
// override them.
type Defaults struct {
	// HeadingSpace is {before, after} in points for heading levels 1..3.
	HeadingSpace [3][2]float64
	// IndentClampMax caps body/list indentation in character units.
	IndentClampMax float64
	// PointThreshold is the raw line-spacing value above which a missing
	// rule is inferred as "exactly" (the value is assumed to be points).
	PointThreshold float64
}

// StandardDefaults returns the stock sanitizer policy.
func StandardDefaults() Defaults {
	return Defaults{
		HeadingSpace:   [3][2]float64{{16, 8}, {12, 6}, {6, 6}},
		IndentClampMax: 2,
		PointThreshold: 6,
	}
}

// spacingPriority is the class order used to pick the document-wide line
// spacing: body text wins over lists, which win over headings.
var spacingPriority = []Class{ClassBodyText, ClassListItem, ClassHeading1, ClassHeading2, ClassHeading3}

// Sanitize normalizes a model-derived spec in place:
//   - headings get zero indentation; body/list indentation is clamped to
//     [0, IndentClampMax] character units;
//   - line spacing and its rule are unified across every present class,
//     taken from the first priority class with a positive finite value;
//   - heading space before/after keeps a non-negative suggested value, else
//     falls back to the per-level default table; body/list space is forced
//     to 0/0 so adjacent-paragraph spacing cannot stack.
//
// A nil spec is returned unchanged.
func Sanitize(s *Spec, d Defaults) *Spec {
	if s == nil {
		return nil
	}

	for level := 1; level <= 3; level++ {
		cf := s.Class(HeadingClass(level))
		if cf == nil {
			continue
		}
		cf.Para.FirstLineIndentChars = ptr(0.0)
		cf.Para.LeftIndentChars = ptr(0.0)

		before, after := d.HeadingSpace[level-1][0], d.HeadingSpace[level-1][1]
		if cf.Para.SpaceBeforePt == nil || *cf.Para.SpaceBeforePt < 0 {
			cf.Para.SpaceBeforePt = ptr(before)
		}
		if cf.Para.SpaceAfterPt == nil || *cf.Para.SpaceAfterPt < 0 {
			cf.Para.SpaceAfterPt = ptr(after)
		}
	}

	for _, class := range []Class{ClassBodyText, ClassListItem} {
		cf := s.Class(class)
		if cf == nil {
			continue
		}
		cf.Para.FirstLineIndentChars = clampIndent(cf.Para.FirstLineIndentChars, d.IndentClampMax)
		cf.Para.LeftIndentChars = clampIndent(cf.Para.LeftIndentChars, d.IndentClampMax)
		cf.Para.SpaceBeforePt = ptr(0.0)
		cf.Para.SpaceAfterPt = ptr(0.0)
	}

	unifyLineSpacing(s, d)
	return s
}

func clampIndent(v *float64, max float64) *float64 {
	if v == nil {
		return nil
	}
	switch {
	case *v < 0 || math.IsNaN(*v):
		return ptr(0.0)
	case *v > max:
		return ptr(max)
	}
	return v
}

func unifyLineSpacing(s *Spec, d Defaults) {
	var value float64
	var rule string
	found := false
	for _, class := range spacingPriority {
		cf := s.Class(class)
		if cf == nil || cf.Para.LineSpacing == nil {
			continue
		}
		v := *cf.Para.LineSpacing
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		value = v
		rule = cf.Para.LineSpacingRule
		found = true
		break
	}
	if !found {
		return
	}
	if rule == "" {
		if value > d.PointThreshold {
			rule = "exactly"
		} else {
			rule = "multiple"
		}
	}
	for _, class := range Classes {
		cf := s.Class(class)
		if cf == nil {
			continue
		}
		cf.Para.LineSpacing = ptr(value)
		cf.Para.LineSpacingRule = rule
	}
}
