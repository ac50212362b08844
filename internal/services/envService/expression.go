package envservice

import (
	"strings"
)

// Expression is a path containing ${name} variable references. "$$" is a
// literal dollar sign; any other "$" is kept as-is.
type Expression string

type segment struct {
	literal string
	ref     string
}

// ParseExpression validates s and returns it as an Expression.
func ParseExpression(s string) (Expression, error) {
	if _, err := parse(s); err != nil {
		return "", err
	}

	return Expression(s), nil
}

func (x Expression) String() string {
	return string(x)
}

// References returns the variable names used by the expression, in order of
// first appearance.
func (x Expression) References() ([]string, error) {
	segs, err := parse(string(x))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var refs []string
	for _, s := range segs {
		if s.ref == "" {
			continue
		}
		if _, ok := seen[s.ref]; ok {
			continue
		}
		seen[s.ref] = struct{}{}
		refs = append(refs, s.ref)
	}

	return refs, nil
}

// Eval substitutes every reference with its value from env. It fails with an
// UndefinedVariableError on the first name env does not define.
func (x Expression) Eval(env Environment) (string, error) {
	segs, err := parse(string(x))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, s := range segs {
		if s.ref == "" {
			b.WriteString(s.literal)
			continue
		}

		v, ok := env.Lookup(s.ref)
		if !ok {
			return "", &UndefinedVariableError{Name: s.ref, Expression: string(x)}
		}
		b.WriteString(v)
	}

	return b.String(), nil
}

func parse(s string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
	)

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' || i+1 >= len(s) {
			lit.WriteByte(c)
			continue
		}

		switch s[i+1] {
		case '$':
			lit.WriteByte('$')
			i++
		case '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return nil, &MalformedExpressionError{Expression: s, Offset: i, Reason: "unterminated ${"}
			}
			name := s[i+2 : i+2+end]
			if name == "" {
				return nil, &MalformedExpressionError{Expression: s, Offset: i, Reason: "empty variable name"}
			}
			flush()
			segs = append(segs, segment{ref: name})
			i += end + 2
		default:
			lit.WriteByte(c)
		}
	}
	flush()

	return segs, nil
}
