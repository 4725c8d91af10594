package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/launchchime/internal/audio"
	"github.com/jmylchreest/launchchime/internal/daemon"
	"github.com/jmylchreest/launchchime/internal/launch"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <bundle-id>",
	Short: "Play what the daemon would play for a launch",
	Long: `Run a single launch event through the same dispatch path the daemon uses
and wait for the sound to finish.

Examples:
  launchchime simulate com.cursor.Cursor
  launchchime simulate org.mozilla.firefox -v   # shows why nothing played`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

// previewPlayer blocks in Play until the sound ends, so stopping the
// dispatcher waits for playback.
type previewPlayer struct {
	ctx    context.Context
	engine *audio.Engine
}

func (p previewPlayer) Play(name string, volume float64) error {
	return p.engine.Preview(p.ctx, name, volume)
}

// Close is a no-op: the engine belongs to the services.
func (p previewPlayer) Close() {}

func runSimulate(cmd *cobra.Command, args []string) error {
	svc, err := getServices()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, ok := svc.Store.Lookup(args[0]); !ok {
		fmt.Printf("%s is not configured; nothing will play\n", args[0])
	}

	d := daemon.NewDispatcher(svc.Store, previewPlayer{ctx: ctx, engine: svc.Engine}, logger)
	d.SetEnabled(cfg.Audio.Enabled)

	feed := launch.NewManualFeed()
	if err := d.Start(ctx, feed); err != nil {
		return err
	}
	feed.Emit(launch.Event{BundleID: args[0], Name: args[0]})
	return d.Stop()
}
