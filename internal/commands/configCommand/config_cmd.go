package configCommand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/redjax/syncrun/internal/config"
	syncservice "github.com/redjax/syncrun/internal/services/syncService"
)

// Loader loads the run's config for a command.
type Loader func(cmd *cobra.Command) (*config.Config, error)

func NewConfigCommand(load Loader) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the syncrun configuration.",
		Long: `Inspect the syncrun configuration.

Print where the config file is read from, or show how every sync entry resolves
against the general settings and built-in defaults.`,
	}

	configCmd.AddCommand(newPathCmd())
	configCmd.AddCommand(newShowCmd(load))

	return configCmd
}

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the default config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.DefaultPath())
		},
	}
}

func newShowCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved settings of every sync entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}

			plan, err := syncservice.Resolve(cfg, syncservice.Options{})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config:      %s\n", cfg.Source)
			fmt.Fprintf(out, "Destination: %s\n", plan.Destination)
			fmt.Fprintf(out, "Timestamp:   %s\n", plan.Timestamp)

			RenderSources(cmd, plan.Sources)

			return nil
		},
	}
}

// RenderSources prints one table row per sync entry.
func RenderSources(cmd *cobra.Command, sources []syncservice.Source) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Path", "Source", "Hidden", "Parents", "Ignore", "Git Global", "Git Ignore", "Git Exclude", "Same FS", "Exclude"})

	for _, s := range sources {
		p := s.Settings.Policy
		t.AppendRow(table.Row{
			s.Entry.Path,
			s.Dir,
			strconv.FormatBool(p.Hidden),
			strconv.FormatBool(p.Parents),
			strconv.FormatBool(p.Ignore),
			strconv.FormatBool(p.GitGlobal),
			strconv.FormatBool(p.GitIgnore),
			strconv.FormatBool(p.GitExclude),
			strconv.FormatBool(p.SameFileSystem),
			strings.Join(s.Settings.Excludes.Patterns(), ", "),
		})
	}

	t.SetStyle(table.StyleLight)
	t.Render()
}
