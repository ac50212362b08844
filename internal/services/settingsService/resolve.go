// Package settingsservice merges the per-entry, general and built-in layers of
// ignore/exclude configuration into one effective policy per sync entry.
package settingsservice

import (
	"fmt"

	"github.com/redjax/syncrun/internal/config"
)

// Resolved is the effective file-selection settings of one sync entry.
type Resolved struct {
	Policy   Policy
	Excludes *ExcludeSet
}

// Resolve computes the effective settings of entry against general.
func Resolve(entry config.SyncSettings, general config.GeneralSettings) (Resolved, error) {
	excludes, err := NewExcludeSet(entry.Exclude, general.Exclude)
	if err != nil {
		return Resolved{}, fmt.Errorf("sync entry %q: %w", entry.Path, err)
	}

	return Resolved{
		Policy:   ResolvePolicy(entry.IgnoreSettings, general.IgnoreSettings),
		Excludes: excludes,
	}, nil
}
