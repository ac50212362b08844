// Package syncservice ties config, path templating, settings resolution, the
// walker and the rsync dispatcher into a single sequential run.
package syncservice

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
	// Embed the IANA database so general.timezone works on hosts without one
	_ "time/tzdata"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"
	"github.com/lestrrat-go/strftime"
	"github.com/shirou/gopsutil/v4/host"
	log "github.com/sirupsen/logrus"

	"github.com/redjax/syncrun/internal/config"
	envservice "github.com/redjax/syncrun/internal/services/envService"
	rsyncservice "github.com/redjax/syncrun/internal/services/rsyncService"
	settingsservice "github.com/redjax/syncrun/internal/services/settingsService"
	pathutil "github.com/redjax/syncrun/internal/utils/path"
)

type Options struct {
	DryRun      bool
	RsyncDryRun bool

	// Path to rsync. Located on PATH when empty.
	Rsync string

	Stdout io.Writer
	Stderr io.Writer

	Now      func() time.Time
	Hostname func() (string, error)
	Environ  []string
}

// Source is one sync entry with its source directory and settings resolved.
type Source struct {
	Entry    config.SyncSettings
	Dir      string
	Settings settingsservice.Resolved
}

// Plan is everything a run needs, resolved up front so that configuration
// mistakes surface before the first transfer.
type Plan struct {
	Config      *config.Config
	Env         envservice.Environment
	Timestamp   string
	Destination string
	Sources     []Source

	fs         billy.Filesystem
	dispatcher *rsyncservice.Dispatcher
	log        *log.Entry
}

// Resolve evaluates templates and settings for every sync entry. It does not
// need rsync to be installed.
func Resolve(cfg *config.Config, opts Options) (*Plan, error) {
	opts = withDefaults(opts)
	g := cfg.General

	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", g.Timezone, err)
	}
	ts, err := strftime.Format(g.TimestampFmt, opts.Now().In(loc))
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp format %q: %w", g.TimestampFmt, err)
	}

	hostname, err := opts.Hostname()
	if err != nil {
		return nil, fmt.Errorf("unable to get hostname: %w", err)
	}

	env := envservice.NewBuilder().
		WithEnviron(opts.Environ).
		Set("timestamp", ts).
		Set("hostname", hostname).
		Build()

	destDir, err := cfg.Remote.Destination.Eval(env)
	if err != nil {
		return nil, fmt.Errorf("remote.destination: %w", err)
	}

	p := &Plan{
		Config:      cfg,
		Env:         env,
		Timestamp:   ts,
		Destination: rsyncservice.Destination(cfg.Remote.User, cfg.Remote.Host, destDir),
		fs:          osfs.New("/"),
		log:         log.WithField("run", uuid.NewString()),
	}

	for _, entry := range cfg.Sync {
		dir, err := p.sourceDir(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("sync entry %q: %w", entry.Path, err)
		}

		settings, err := settingsservice.Resolve(entry, g)
		if err != nil {
			return nil, err
		}

		p.Sources = append(p.Sources, Source{Entry: entry, Dir: dir, Settings: settings})
	}

	return p, nil
}

// Prepare resolves the plan and locates rsync.
func Prepare(cfg *config.Config, opts Options) (*Plan, error) {
	opts = withDefaults(opts)

	if opts.Rsync == "" {
		rsync, err := rsyncservice.Locate()
		if err != nil {
			return nil, err
		}
		opts.Rsync = rsync
	}
	log.Debugf("rsync: %s", opts.Rsync)

	p, err := Resolve(cfg, opts)
	if err != nil {
		return nil, err
	}

	p.dispatcher = rsyncservice.NewDispatcher(opts.Rsync, p.Destination, rsyncservice.Options{
		DryRun:      opts.DryRun,
		RsyncDryRun: opts.RsyncDryRun,
		Stdout:      opts.Stdout,
		Stderr:      opts.Stderr,
	})

	return p, nil
}

// sourceDir resolves a sync path: "~" is expanded, relative paths are joined
// to general.relative_to, and the result is canonicalized.
func (p *Plan) sourceDir(path string) (string, error) {
	source, err := pathutil.ExpandPath(path)
	if err != nil {
		return "", err
	}

	if !filepath.IsAbs(source) {
		base, err := p.Config.General.RelativeTo.Eval(p.Env)
		if err != nil {
			return "", fmt.Errorf("general.relative_to: %w", err)
		}
		absolute := filepath.Join(base, source)
		log.Debugf("Relative dir %s -> %s", source, absolute)
		source = absolute
	}

	return pathutil.Canonicalize(source)
}

func withDefaults(opts Options) Options {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Hostname == nil {
		opts.Hostname = hostname
	}
	if opts.Environ == nil {
		opts.Environ = os.Environ()
	}

	return opts
}

var hostInfo = host.Info

// hostname reads the name from gopsutil's host info. That call also probes
// platform, boot time and virtualization, so a failure in any of those falls
// back to the kernel hostname.
func hostname() (string, error) {
	info, err := hostInfo()
	if err == nil && info != nil && info.Hostname != "" {
		return info.Hostname, nil
	}
	if err != nil {
		log.Warnf("host info unavailable, using the kernel hostname: %v", err)
	}

	return os.Hostname()
}
