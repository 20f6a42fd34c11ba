package app

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/ctcl-atlas/atlas/cmd/ctclatlas/cmd/compare"
	"github.com/ctcl-atlas/atlas/cmd/ctclatlas/cmd/dataset"
	"github.com/ctcl-atlas/atlas/cmd/ctclatlas/cmd/genes"
	"github.com/ctcl-atlas/atlas/cmd/ctclatlas/cmd/insight"
	"github.com/ctcl-atlas/atlas/cmd/ctclatlas/cmd/serve"
	"github.com/ctcl-atlas/atlas/cmd/ctclatlas/cmd/summary"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Query commands
	rootCmd.AddCommand(insight.NewCommand(a))
	rootCmd.AddCommand(compare.NewCommand(a))
	rootCmd.AddCommand(summary.NewCommand(a))
	rootCmd.AddCommand(genes.NewCommand(a))
	rootCmd.AddCommand(dataset.NewCommand(a))

	// Server commands
	rootCmd.AddCommand(serve.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.newVersionCommand())
	rootCmd.AddCommand(a.newManCommand())
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "ctclatlas %s\n", a.version)
			if a.config.Verbose {
				fmt.Fprintf(w, "  commit:   %s\n", a.commit)
				fmt.Fprintf(w, "  built:    %s\n", a.date)
				fmt.Fprintf(w, "  built by: %s\n", a.builtBy)
				fmt.Fprintf(w, "  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			}
		},
	}
}

// newManCommand creates the man command.
func (a *App) newManCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "man",
		Short:  "Generate man page",
		Hidden: true, // mainly for packaging
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			header := &doc.GenManHeader{
				Title:   "CTCLATLAS",
				Section: "1",
				Source:  "ctclatlas " + a.version,
				Manual:  "ctclatlas Manual",
			}
			return doc.GenMan(cmd.Root(), header, cmd.OutOrStdout())
		},
	}
}
