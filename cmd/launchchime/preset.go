package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/launchchime/internal/store"
)

// presetCmd represents the preset command group.
var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Save and restore whole configuration sets",
	Long: `A preset is a named snapshot of every application configuration.

The "Default" preset always exists, cannot be overwritten or deleted, and
loading it restores the built-in defaults.`,
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getServices()
		if err != nil {
			return err
		}
		names, err := svc.Store.ListPresets()
		if err != nil {
			return err
		}
		return formatter("").Presets(os.Stdout, names)
	},
}

var presetSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the current configuration as a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getServices()
		if err != nil {
			return err
		}
		if err := svc.Store.SavePreset(args[0]); err != nil {
			return err
		}
		fmt.Printf("Saved preset %q (%d apps)\n", args[0], svc.Store.Count())
		return nil
	},
}

var presetLoadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Replace the current configuration with a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getServices()
		if err != nil {
			return err
		}
		if err := svc.Store.LoadPreset(args[0]); err != nil {
			return err
		}
		fmt.Printf("Loaded preset %q (%d apps)\n", args[0], svc.Store.Count())
		return nil
	},
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getServices()
		if err != nil {
			return err
		}
		return svc.Store.DeletePreset(args[0])
	},
}

// resetCmd restores the built-in defaults.
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the built-in default configuration",
	Long: fmt.Sprintf(`Replace every application configuration with the built-in defaults.

Equivalent to 'launchchime preset load %s'.`, store.DefaultPresetName),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getServices()
		if err != nil {
			return err
		}
		if err := svc.Store.ResetToDefaults(); err != nil {
			return err
		}
		fmt.Printf("Restored %d default apps\n", svc.Store.Count())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(presetCmd, resetCmd)
	presetCmd.AddCommand(presetListCmd, presetSaveCmd, presetLoadCmd, presetDeleteCmd)
}
