package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/launchchime/internal/adapter/output"
	"github.com/jmylchreest/launchchime/internal/dbus"
)

const daemonCallTimeout = 5 * time.Second

// daemonCmd talks to a running launchchimed over the session bus.
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Control the running launchchimed",
	Long: `Query and control a running launchchimed over the session bus.

Examples:
  launchchime daemon status
  launchchime daemon disable                  # mute until re-enabled
  launchchime daemon simulate com.cursor.Cursor
  launchchime daemon reload                   # re-read config, apps and sounds`,
	RunE: daemonStatusRun,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon state",
	RunE:  daemonStatusRun,
}

var daemonEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Resume playing launch sounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(ctx context.Context, c *dbus.ControlClient) error {
			return c.SetEnabled(ctx, true)
		})
	},
}

var daemonDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop playing launch sounds until re-enabled",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(ctx context.Context, c *dbus.ControlClient) error {
			return c.SetEnabled(ctx, false)
		})
	},
}

var daemonReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Re-read configuration, apps and sounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(ctx context.Context, c *dbus.ControlClient) error {
			return c.Reload(ctx)
		})
	},
}

var daemonSimulateCmd = &cobra.Command{
	Use:   "simulate <bundle-id>",
	Short: "Make the daemon handle a launch of bundle-id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(ctx context.Context, c *dbus.ControlClient) error {
			return c.Simulate(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStatusCmd, daemonEnableCmd, daemonDisableCmd, daemonReloadCmd, daemonSimulateCmd)
}

func withDaemon(fn func(ctx context.Context, c *dbus.ControlClient) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), daemonCallTimeout)
	defer cancel()

	client, err := dbus.Connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	return fn(ctx, client)
}

func daemonStatusRun(cmd *cobra.Command, args []string) error {
	return withDaemon(func(ctx context.Context, c *dbus.ControlClient) error {
		status, err := c.Status(ctx)
		if err != nil {
			return err
		}

		if output.FormatType(globalOpts.format) == output.FormatJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		}

		playing := "enabled"
		if !status.Enabled {
			playing = "disabled"
		}
		fmt.Printf("launchchimed %s: %s, sounds %s, %d apps, %s feed\n",
			status.Version, status.State, playing, status.Apps, status.Feed)
		return nil
	})
}
