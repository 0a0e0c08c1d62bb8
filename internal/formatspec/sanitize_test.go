package formatspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize_UnifiesLineSpacingAcrossClasses(t *testing.T) {
	s := &Spec{
		Heading1: &ClassFormat{Para: ParaTarget{LineSpacing: ptr(2.0), LineSpacingRule: "multiple"}},
		BodyText: &ClassFormat{Para: ParaTarget{LineSpacing: ptr(1.5), LineSpacingRule: "multiple"}},
		ListItem: &ClassFormat{Para: ParaTarget{LineSpacing: ptr(1.15)}},
	}
	Sanitize(s, StandardDefaults())

	// bodyText is first in priority order, so every class gets its value.
	for _, c := range s.Present() {
		cf := s.Class(c)
		require.NotNil(t, cf.Para.LineSpacing, "class %s", c)
		assert.Equal(t, 1.5, *cf.Para.LineSpacing, "class %s", c)
		assert.Equal(t, "multiple", cf.Para.LineSpacingRule, "class %s", c)
	}
}

func TestSanitize_InfersRuleFromRawValue(t *testing.T) {
	// A raw value above the point threshold with no rule is a point value.
	s := &Spec{BodyText: &ClassFormat{Para: ParaTarget{LineSpacing: ptr(18.0)}}}
	Sanitize(s, StandardDefaults())
	assert.Equal(t, "exactly", s.BodyText.Para.LineSpacingRule)

	s = &Spec{BodyText: &ClassFormat{Para: ParaTarget{LineSpacing: ptr(1.5)}}}
	Sanitize(s, StandardDefaults())
	assert.Equal(t, "multiple", s.BodyText.Para.LineSpacingRule)
}

func TestSanitize_HeadingIndentZeroedAndSpacingDefaults(t *testing.T) {
	s := &Spec{
		Heading1: &ClassFormat{Para: ParaTarget{
			FirstLineIndentChars: ptr(2.0),
			LeftIndentChars:      ptr(1.0),
			SpaceBeforePt:        ptr(-3.0), // negative suggestions are rejected
		}},
		Heading2: &ClassFormat{Para: ParaTarget{SpaceBeforePt: ptr(20.0)}},
	}
	Sanitize(s, StandardDefaults())

	assert.Equal(t, 0.0, *s.Heading1.Para.FirstLineIndentChars)
	assert.Equal(t, 0.0, *s.Heading1.Para.LeftIndentChars)
	assert.Equal(t, 16.0, *s.Heading1.Para.SpaceBeforePt)
	assert.Equal(t, 8.0, *s.Heading1.Para.SpaceAfterPt)

	// A non-negative AI suggestion survives.
	assert.Equal(t, 20.0, *s.Heading2.Para.SpaceBeforePt)
	assert.Equal(t, 6.0, *s.Heading2.Para.SpaceAfterPt)
}

func TestSanitize_BodyAndListSpacingForcedToZero(t *testing.T) {
	s := &Spec{
		BodyText: &ClassFormat{Para: ParaTarget{
			FirstLineIndentChars: ptr(5.0),
			SpaceBeforePt:        ptr(12.0),
			SpaceAfterPt:         ptr(12.0),
		}},
		ListItem: &ClassFormat{Para: ParaTarget{LeftIndentChars: ptr(-1.0)}},
	}
	Sanitize(s, StandardDefaults())

	assert.Equal(t, 2.0, *s.BodyText.Para.FirstLineIndentChars) // clamped to [0,2]
	assert.Equal(t, 0.0, *s.BodyText.Para.SpaceBeforePt)
	assert.Equal(t, 0.0, *s.BodyText.Para.SpaceAfterPt)
	assert.Equal(t, 0.0, *s.ListItem.Para.LeftIndentChars)
	assert.Equal(t, 0.0, *s.ListItem.Para.SpaceBeforePt)
	assert.Equal(t, 0.0, *s.ListItem.Para.SpaceAfterPt)
}

func TestSanitize_NilSpecAndAbsentClasses(t *testing.T) {
	assert.Nil(t, Sanitize(nil, StandardDefaults()))

	s := &Spec{Heading3: &ClassFormat{}}
	Sanitize(s, StandardDefaults())
	assert.Nil(t, s.BodyText)
	assert.Equal(t, []Class{ClassHeading3}, s.Present())
}
