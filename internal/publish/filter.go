package publish

import (
	"regexp"
	"strings"
)

// Rule is one include or exclude pattern. '*' matches any run of characters
// including '/', '?' matches one character.
type Rule struct {
	Include bool
	Pattern string
}

// Filter evaluates rules in order; the last matching rule decides. Keys that
// match no rule are included.
type Filter struct {
	rules []compiledRule
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// NewFilter compiles rules.
func NewFilter(rules ...Rule) *Filter {
	f := &Filter{}
	for _, r := range rules {
		f.rules = append(f.rules, compiledRule{Rule: r, re: compileWildcard(r.Pattern)})
	}
	return f
}

// DraftFilter admits exactly the subtree of one draft directory:
// exclude "*", then include "<dir>/*". Keys are relative to the drafts root.
func DraftFilter(dir string) *Filter {
	return NewFilter(
		Rule{Include: false, Pattern: "*"},
		Rule{Include: true, Pattern: dir + "/*"},
	)
}

// Allows reports whether rel passes the filter.
func (f *Filter) Allows(rel string) bool {
	allowed := true
	for _, r := range f.rules {
		if r.re.MatchString(rel) {
			allowed = r.Include
		}
	}
	return allowed
}

// Rules returns the uncompiled rules, in order.
func (f *Filter) Rules() []Rule {
	out := make([]Rule, len(f.rules))
	for i, r := range f.rules {
		out[i] = r.Rule
	}
	return out
}

func compileWildcard(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
