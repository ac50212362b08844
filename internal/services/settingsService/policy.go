package settingsservice

import (
	"github.com/redjax/syncrun/internal/config"
)

// Policy is a fully resolved set of ignore toggles for one sync entry.
type Policy struct {
	Hidden         bool
	Parents        bool
	Ignore         bool
	GitGlobal      bool
	GitIgnore      bool
	GitExclude     bool
	SameFileSystem bool
}

// DefaultPolicy is the built-in layer: every toggle enabled.
var DefaultPolicy = Policy{
	Hidden:         true,
	Parents:        true,
	Ignore:         true,
	GitGlobal:      true,
	GitIgnore:      true,
	GitExclude:     true,
	SameFileSystem: true,
}

// ResolvePolicy resolves each toggle independently: the first layer that sets
// it wins, falling back to DefaultPolicy.
func ResolvePolicy(layers ...config.IgnoreSettings) Policy {
	p := DefaultPolicy

	p.Hidden = firstSet(p.Hidden, layers, func(s config.IgnoreSettings) *bool { return s.Hidden })
	p.Parents = firstSet(p.Parents, layers, func(s config.IgnoreSettings) *bool { return s.Parents })
	p.Ignore = firstSet(p.Ignore, layers, func(s config.IgnoreSettings) *bool { return s.Ignore })
	p.GitGlobal = firstSet(p.GitGlobal, layers, func(s config.IgnoreSettings) *bool { return s.GitGlobal })
	p.GitIgnore = firstSet(p.GitIgnore, layers, func(s config.IgnoreSettings) *bool { return s.GitIgnore })
	p.GitExclude = firstSet(p.GitExclude, layers, func(s config.IgnoreSettings) *bool { return s.GitExclude })
	p.SameFileSystem = firstSet(p.SameFileSystem, layers, func(s config.IgnoreSettings) *bool { return s.SameFileSystem })

	return p
}

func firstSet(def bool, layers []config.IgnoreSettings, field func(config.IgnoreSettings) *bool) bool {
	for _, l := range layers {
		if v := field(l); v != nil {
			return *v
		}
	}

	return def
}
