package syncservice

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	walkservice "github.com/redjax/syncrun/internal/services/walkService"
)

// Summary counts what a run did.
type Summary struct {
	Entries int
	Files   int
	Dirs    int
	// Size of the files handed to rsync.
	Bytes uint64
	// Files rsync exited non-zero for.
	NonZero int
}

// Run syncs every entry in order, one file at a time. Directories are walked
// but not handed to rsync, since --archive would copy them whole and bypass
// the ignore rules. The first error stops the run.
func (p *Plan) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	if p.dispatcher == nil {
		return sum, fmt.Errorf("plan was resolved without a dispatcher")
	}

	for _, src := range p.Sources {
		entryLog := p.log.WithFields(log.Fields{"entry": src.Entry.Path, "source": src.Dir})
		entryLog.WithField("excludes", src.Settings.Excludes.Patterns()).Debugf("policy %+v", src.Settings.Policy)

		w := walkservice.New(p.fs, src.Dir, src.Settings.Policy, src.Settings.Excludes)
		for e, err := range w.Entries() {
			if err != nil {
				return sum, fmt.Errorf("sync entry %q: %w", src.Entry.Path, err)
			}
			if e.IsDir {
				sum.Dirs++
				entryLog.Tracef("descending into %s", e.Path)
				continue
			}

			res, err := p.dispatcher.Dispatch(ctx, e.Path)
			if err != nil {
				return sum, fmt.Errorf("sync %s: %w", e.Path, err)
			}
			sum.Files++
			if e.Info != nil {
				sum.Bytes += uint64(e.Info.Size())
			}
			if res.Executed && res.ExitCode != 0 {
				sum.NonZero++
				entryLog.Warnf("rsync exited with code %d for %s", res.ExitCode, e.Path)
			}
		}
		sum.Entries++
	}

	return sum, nil
}
