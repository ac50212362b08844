package settingsservice

import (
	"fmt"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"
	"github.com/gobwas/glob"
)

// InvalidGlobPatternError is returned when an exclude pattern does not
// compile.
type InvalidGlobPatternError struct {
	Pattern string
	Err     error
}

func (e *InvalidGlobPatternError) Error() string {
	return fmt.Sprintf("invalid glob pattern %q: %v", e.Pattern, e.Err)
}

func (e *InvalidGlobPatternError) Unwrap() error {
	return e.Err
}

// ExcludeSet is a deduplicated set of compiled globs matched against full
// paths. A '*' also matches path separators.
type ExcludeSet struct {
	patterns *treeset.Set
	globs    []glob.Glob
}

// NewExcludeSet unions the pattern lists and compiles every distinct pattern.
func NewExcludeSet(lists ...[]string) (*ExcludeSet, error) {
	set := treeset.NewWith(utils.StringComparator)
	for _, list := range lists {
		for _, p := range list {
			set.Add(p)
		}
	}

	es := &ExcludeSet{patterns: set}
	for _, v := range set.Values() {
		p := v.(string)
		g, err := glob.Compile(p)
		if err != nil {
			return nil, &InvalidGlobPatternError{Pattern: p, Err: err}
		}
		es.globs = append(es.globs, g)
	}

	return es, nil
}

// Patterns returns the distinct patterns in sorted order.
func (es *ExcludeSet) Patterns() []string {
	if es == nil {
		return nil
	}

	out := make([]string, 0, es.patterns.Size())
	for _, v := range es.patterns.Values() {
		out = append(out, v.(string))
	}

	return out
}

func (es *ExcludeSet) Len() int {
	if es == nil {
		return 0
	}

	return es.patterns.Size()
}

// Match reports whether path matches any pattern.
func (es *ExcludeSet) Match(path string) bool {
	if es == nil {
		return false
	}

	for _, g := range es.globs {
		if g.Match(path) {
			return true
		}
	}

	return false
}
