package main

import (
	"context"
	"fmt"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/openspec/internal/server"
	"github.com/HendryAvila/openspec/internal/updater"
)

var serveNoUpdateCheck bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	Long: `Start the OpenSpec MCP server on stdin/stdout. Add it to your AI tool's MCP config:

  {
    "mcpServers": {
      "openspec": {
        "command": "openspec",
        "args": ["serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		s := server.NewFromDeps(a.deps)

		// Notices go to stderr; stdout belongs to the stdio transport.
		if !serveNoUpdateCheck {
			go checkForUpdates(cmd.Context())
		}
		return mcpserver.ServeStdio(s)
	}),
}

// checkForUpdates is best-effort: failures are logged at debug level only.
func checkForUpdates(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	result, err := updater.NewChecker().Check(ctx, server.Version)
	if err != nil {
		return
	}
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  Update available: v%s → v%s\n     Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the openspec version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("openspec %s\n", server.Version)
		if !versionCheck {
			return nil
		}
		result, err := updater.NewChecker().Check(cmd.Context(), server.Version)
		if err != nil {
			return fmt.Errorf("checking for updates: %w", err)
		}
		if result.UpdateAvailable {
			fmt.Printf("%s v%s is available: %s\n", yellow("!"), result.LatestVersion, result.ReleaseURL)
		} else {
			fmt.Printf("%s up to date\n", green("✓"))
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoUpdateCheck, "no-update-check", false, "Skip the background release check")
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "Check GitHub for a newer release")
	rootCmd.AddCommand(serveCmd, versionCmd)
}
