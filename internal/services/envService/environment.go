package envservice

import (
	"os"
	"sort"
	"strings"
)

// Environment is a read-only mapping of variable names to values used when
// evaluating path expressions.
type Environment struct {
	vars map[string]string
}

// Lookup returns the value of name and whether it is defined.
func (e Environment) Lookup(name string) (string, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Names returns the defined variable names in sorted order.
func (e Environment) Names() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Eval expands expr against the environment.
func (e Environment) Eval(expr Expression) (string, error) {
	return expr.Eval(e)
}

// Builder layers variable sources. Later layers win over earlier ones, and
// values passed to Set always win over the process environment.
type Builder struct {
	processEnv []string
	explicit   map[string]string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{explicit: make(map[string]string)}
}

// WithProcessEnv adds every variable of the current process as the base layer.
func (b *Builder) WithProcessEnv() *Builder {
	return b.WithEnviron(os.Environ())
}

// WithEnviron adds KEY=VALUE pairs as the base layer.
func (b *Builder) WithEnviron(environ []string) *Builder {
	b.processEnv = append(b.processEnv, environ...)
	return b
}

// Set adds an explicit variable.
func (b *Builder) Set(name, value string) *Builder {
	b.explicit[name] = value
	return b
}

// Build snapshots the layers into an Environment. The builder can keep being
// used afterwards without affecting the returned value.
func (b *Builder) Build() Environment {
	vars := make(map[string]string, len(b.processEnv)+len(b.explicit))

	for _, kv := range b.processEnv {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		vars[name] = value
	}

	for name, value := range b.explicit {
		vars[name] = value
	}

	return Environment{vars: vars}
}
