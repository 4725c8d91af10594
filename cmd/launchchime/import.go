package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/launchchime/internal/adapter/input"
)

var appImportOpts struct {
	source string
}

var appImportCmd = &cobra.Command{
	Use:   "import [file|desktop-id...]",
	Short: "Add applications from a JSON export or desktop entries",
	Long: `Add several applications in one step. Either every app is added or,
if any bundle identifier is already configured or a sound is unknown, none is.

With --from json (default) the arguments are files in the format written by
'launchchime app list -f json'; no argument or "-" reads stdin.

With --from desktop the arguments are desktop ids or desktop file paths.
Apps are added without a sound; pick one with 'launchchime app update'.

Examples:
  launchchime app list -f json > apps.json
  launchchime app import apps.json
  launchchime app import --from desktop org.gnome.Nautilus firefox`,
	RunE: runAppImport,
}

func init() {
	appCmd.AddCommand(appImportCmd)
	appImportCmd.Flags().StringVar(&appImportOpts.source, "from", "json",
		"Input source (json, desktop)")
}

func runAppImport(cmd *cobra.Command, args []string) error {
	svc, err := getServices()
	if err != nil {
		return err
	}

	src, err := input.NewAdapter(appImportOpts.source, args, os.Stdin)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	imported, err := svc.ImportApps(ctx, src)
	if err != nil {
		return err
	}
	return formatter("").Apps(os.Stdout, imported)
}
