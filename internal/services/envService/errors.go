package envservice

import "fmt"

// UndefinedVariableError is returned when an expression references a name
// that has no value in the environment.
type UndefinedVariableError struct {
	Name       string
	Expression string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable %q in %q", e.Name, e.Expression)
}

// MalformedExpressionError is returned for expressions that cannot be parsed.
type MalformedExpressionError struct {
	Expression string
	Offset     int
	Reason     string
}

func (e *MalformedExpressionError) Error() string {
	return fmt.Sprintf("malformed path expression %q at offset %d: %s", e.Expression, e.Offset, e.Reason)
}
