package execute

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var (
	cjkThenLatinRe = regexp.MustCompile(`([\p{Han}])([A-Za-z0-9])`)
	latinThenCJKRe = regexp.MustCompile(`([A-Za-z0-9])([\p{Han}])`)

	fullwidthPunctSpaceRe = regexp.MustCompile(`([，。、；：！？])\s+`)
	asciiPunctRunRe       = regexp.MustCompile(`([,.;:!?])\s{2,}`)
)

// AddCJKLatinSpaces inserts a single space at every boundary between a Han
// rune and a Latin letter or digit.
func AddCJKLatinSpaces(s string) string {
	s = cjkThenLatinRe.ReplaceAllString(s, "$1 $2")
	return latinThenCJKRe.ReplaceAllString(s, "$1 $2")
}

func isWideRune(r rune) bool {
	k := width.LookupRune(r).Kind()
	return k == width.EastAsianWide || k == width.EastAsianFullwidth
}

// fullwidthFor maps the halfwidth punctuation the widening pass rewrites.
// The full stop maps to the CJK ideographic period rather than the generic
// fullwidth form width.Widen would pick.
var fullwidthFor = map[rune]rune{',': '，', '.': '。', ';': '；'}

// FixPunctuationSpacing normalizes the punctuation irregularities the
// analyzer flags: whitespace trailing fullwidth punctuation is removed, runs
// of spaces after ASCII punctuation collapse to one, and a halfwidth comma,
// period or semicolon squeezed between two wide runes is widened to its
// fullwidth form.
func FixPunctuationSpacing(s string) string {
	s = fullwidthPunctSpaceRe.ReplaceAllString(s, "$1")
	s = asciiPunctRunRe.ReplaceAllString(s, "$1 ")

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range runes {
		if wide, ok := fullwidthFor[r]; ok &&
			i > 0 && i < len(runes)-1 &&
			isWideRune(runes[i-1]) && isWideRune(runes[i+1]) {
			b.WriteRune(wide)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
