package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/launchchime/internal/audio"
	"github.com/jmylchreest/launchchime/internal/library"
	"github.com/jmylchreest/launchchime/internal/model"
)

var soundPlayOpts struct {
	volume float64
}

// soundCmd represents the sound command group.
var soundCmd = &cobra.Command{
	Use:   "sound",
	Short: "Manage the sound library",
	Long: `Manage the sounds available to applications.

Built-in sounds are referenced by bare name (depth, wooly, sparse) and cannot
be deleted. Imported sounds are referenced by file name including the
extension and live in the sounds directory.`,
}

var soundListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available sounds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getServices()
		if err != nil {
			return err
		}
		return formatter("").Sounds(os.Stdout, svc.Library.Assets())
	},
}

var soundImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Copy audio files into the sound library",
	Long: fmt.Sprintf(`Copy audio files into the sound library.

Supported formats: %v. Sounds longer than %s are rejected, as are
names already in the library.`, audio.SupportedExtensions(), library.MaxDuration),
	Args: cobra.MinimumNArgs(1),
	RunE: runSoundImport,
}

var soundDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an imported sound",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getServices()
		if err != nil {
			return err
		}
		return svc.DeleteSound(args[0])
	},
}

var soundPlayCmd = &cobra.Command{
	Use:   "play <name>",
	Short: "Preview a sound",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getServices()
		if err != nil {
			return err
		}
		if !model.IsPlayableSound(args[0]) {
			return fmt.Errorf("%q is not a playable sound", args[0])
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		err = svc.PlayPreview(ctx, args[0], soundPlayOpts.volume)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(soundCmd)
	soundCmd.AddCommand(soundListCmd, soundImportCmd, soundDeleteCmd, soundPlayCmd)

	soundPlayCmd.Flags().Float64Var(&soundPlayOpts.volume, "volume", model.DefaultVolume,
		"Volume from 0.0 to 1.0")
}

func runSoundImport(cmd *cobra.Command, args []string) error {
	svc, err := getServices()
	if err != nil {
		return err
	}

	// Imports run concurrently; results are reported in argument order.
	results := make([]<-chan library.ImportResult, len(args))
	for i, src := range args {
		results[i] = svc.Library.ImportAsync(src)
	}

	var failed int
	for i, ch := range results {
		res, ok := <-ch
		if !ok {
			fmt.Fprintf(os.Stderr, "%s: import abandoned\n", args[i])
			failed++
			continue
		}
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", args[i], res.Err)
			failed++
			continue
		}

		detail := humanize.Bytes(uint64(res.Asset.Size))
		if d, err := audio.ProbeDuration(res.Asset.Path); err == nil {
			detail += ", " + d.Round(10*time.Millisecond).String()
		}
		fmt.Printf("Imported %s (%s)\n", res.Asset.Name, detail)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(args))
	}
	return nil
}
