// The root command for the CLI.
// Running syncrun with no subcommand performs the sync described by the config file.
package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCommand "github.com/redjax/syncrun/internal/commands/configCommand"
	versioncommand "github.com/redjax/syncrun/internal/commands/versionCommand"
	"github.com/redjax/syncrun/internal/config"
	"github.com/redjax/syncrun/internal/logging"
	syncservice "github.com/redjax/syncrun/internal/services/syncService"
	"github.com/redjax/syncrun/internal/utils/convert"
	pathutil "github.com/redjax/syncrun/internal/utils/path"
)

type rootOptions struct {
	// A path to a file to load configuration from
	cfgFile string
	// Overrides general.log_level
	logLevel string

	dryRun      bool
	rsyncDryRun bool

	cfg *config.Config
}

// NewRootCommand builds the syncrun command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "syncrun",
		Short: "Sync local directories to a remote host with rsync.",
		Long: `Sync local directories to a remote host with rsync.

syncrun reads its config file, walks every configured source directory while honoring
hidden-file, .ignore and .gitignore rules plus exclude globs, and runs rsync once per file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}

			plan, err := syncservice.Prepare(cfg, syncservice.Options{
				DryRun:      opts.dryRun,
				RsyncDryRun: opts.rsyncDryRun,
				Stdout:      cmd.OutOrStdout(),
				Stderr:      cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}

			sum, err := plan.Run(cmd.Context())
			if err != nil {
				return err
			}

			log.Infof("Synced %d file(s) (%s) from %d sync entr(ies), %d non-zero rsync exit(s)",
				sum.Files, convert.HumanBytes(sum.Bytes), sum.Entries, sum.NonZero)
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", fmt.Sprintf("config file (default %s)", config.DefaultPath()))
	rootCmd.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "", "Log level (TRACE, DEBUG, INFO, WARN, ERROR)")

	rootCmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "d", false, "Do not execute rsync, only print what would be executed")
	rootCmd.Flags().BoolVar(&opts.rsyncDryRun, "rsync-dry-run", false, "Pass --dry-run to rsync. Unlike --dry-run, this does execute rsync")
	rootCmd.MarkFlagsMutuallyExclusive("dry-run", "rsync-dry-run")

	rootCmd.AddCommand(configCommand.NewConfigCommand(opts.load))
	rootCmd.AddCommand(versioncommand.NewVersionCommand())

	return rootCmd
}

// load reads the config once and initializes logging from it.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}

	path := o.cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	path, err := pathutil.ExpandPath(path)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.General.LogLevel)
	if err != nil {
		return nil, err
	}
	logging.InitWithOutput(level, cmd.ErrOrStderr())

	log.Debugf("config: %+v", *cfg)
	o.cfg = cfg

	return cfg, nil
}

// Execute the root Cobra command
func Execute() {
	cobra.CheckErr(NewRootCommand().ExecuteContext(context.Background()))
}
