package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/launchchime/internal/adapter/output"
	"github.com/jmylchreest/launchchime/internal/core"
	"github.com/jmylchreest/launchchime/internal/model"
)

var appListOpts struct {
	active    bool
	inactive  bool
	sound     string
	search    string
	limit     int
	sortBy    string
	sortOrder string
	template  string
}

var appEditOpts struct {
	name     string
	bundleID string
	path     string
	sound    string
	volume   float64
	active   bool
}

var appRemoveOpts struct {
	indices []int
}

// appCmd represents the app command group.
var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Manage per-application sound configuration",
	Long: `Manage which applications play a sound when they launch.

Applications are matched by bundle identifier: the Flatpak application id,
the desktop file id, or the executable name.

An app can be referenced by ID, bundle identifier, or its index in
'launchchime app list'.`,
}

var appListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured applications",
	Long: `List configured applications.

Examples:
  # Everything, in stored order (indices match 'app remove --index')
  launchchime app list

  # Only apps that currently play a sound, sorted by name
  launchchime app list --active --sort name

  # Pick one with fuzzel
  launchchime app list -f dmenu | fuzzel -d`,
	Args: cobra.NoArgs,
	RunE: runAppList,
}

var appGetCmd = &cobra.Command{
	Use:   "get <id|bundle-id|index>",
	Short: "Show one application configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppGet,
}

var appAddCmd = &cobra.Command{
	Use:   "add --bundle <bundle-id> --sound <name>",
	Short: "Add an application",
	Long: `Add an application configuration. The app starts activated.

Examples:
  launchchime app add --name Firefox --bundle org.mozilla.firefox --sound depth
  launchchime app add --bundle code --sound chime.ogg --volume 0.4`,
	Args: cobra.NoArgs,
	RunE: runAppAdd,
}

var appUpdateCmd = &cobra.Command{
	Use:   "update <id|bundle-id|index>",
	Short: "Change fields of an application",
	Long: `Change fields of an application. Only the flags given are changed.

Examples:
  launchchime app update com.cursor.Cursor --sound wooly
  launchchime app update 2 --active=false
  launchchime app update com.microsoft.VSCode --volume 0.3`,
	Args: cobra.ExactArgs(1),
	RunE: runAppUpdate,
}

var appRemoveCmd = &cobra.Command{
	Use:   "remove [id|bundle-id...]",
	Short: "Remove applications",
	Long: `Remove applications by reference or by list index.

Examples:
  launchchime app remove com.example.Windsurf
  launchchime app remove --index 0,2
  launchchime app list --inactive -f ids | xargs launchchime app remove`,
	RunE: runAppRemove,
}

func init() {
	rootCmd.AddCommand(appCmd)
	appCmd.AddCommand(appListCmd, appGetCmd, appAddCmd, appUpdateCmd, appRemoveCmd)

	appListCmd.Flags().BoolVar(&appListOpts.active, "active", false,
		"Only activated apps")
	appListCmd.Flags().BoolVar(&appListOpts.inactive, "inactive", false,
		"Only deactivated apps")
	appListCmd.Flags().StringVar(&appListOpts.sound, "sound", "",
		"Only apps using this sound")
	appListCmd.Flags().StringVarP(&appListOpts.search, "search", "s", "",
		"Search in app name and bundle identifier")
	appListCmd.Flags().IntVarP(&appListOpts.limit, "limit", "n", 0,
		"Maximum number of apps to show (0=unlimited)")
	appListCmd.Flags().StringVar(&appListOpts.sortBy, "sort", "",
		"Sort by field (name, bundle, sound, volume; default: stored order)")
	appListCmd.Flags().StringVar(&appListOpts.sortOrder, "order", "asc",
		"Sort order (asc, desc)")
	appListCmd.Flags().StringVar(&appListOpts.template, "template", "",
		"Custom Go template for dmenu output")
	appListCmd.MarkFlagsMutuallyExclusive("active", "inactive")

	for _, c := range []*cobra.Command{appAddCmd, appUpdateCmd} {
		c.Flags().StringVar(&appEditOpts.name, "name", "", "Display name")
		c.Flags().StringVar(&appEditOpts.bundleID, "bundle", "", "Bundle identifier")
		c.Flags().StringVar(&appEditOpts.path, "path", "", "Application path (icon lookup only)")
		c.Flags().StringVar(&appEditOpts.sound, "sound", "", "Sound name (see 'launchchime sound list')")
		c.Flags().Float64Var(&appEditOpts.volume, "volume", model.DefaultVolume, "Volume from 0.0 to 1.0")
	}
	appUpdateCmd.Flags().BoolVar(&appEditOpts.active, "active", true, "Play the sound on launch")
	_ = appAddCmd.MarkFlagRequired("bundle")
	_ = appAddCmd.MarkFlagRequired("sound")

	appRemoveCmd.Flags().IntSliceVar(&appRemoveOpts.indices, "index", nil,
		"Remove by list index (comma separated)")
}

func runAppList(cmd *cobra.Command, args []string) error {
	svc, err := getServices()
	if err != nil {
		return err
	}

	field, err := core.ParseSortField(appListOpts.sortBy)
	if err != nil {
		return err
	}

	opts := core.FilterOptions{
		Sound:  appListOpts.sound,
		Search: appListOpts.search,
		Limit:  appListOpts.limit,
	}
	switch {
	case appListOpts.active:
		opts.Active = &appListOpts.active
	case appListOpts.inactive:
		active := false
		opts.Active = &active
	}

	configs := core.Filter(svc.Store.List(), opts)
	core.Sort(configs, core.SortOptions{Field: field, Order: core.SortOrder(appListOpts.sortOrder)})

	return formatter(appListOpts.template).Apps(os.Stdout, configs)
}

func runAppGet(cmd *cobra.Command, args []string) error {
	svc, err := getServices()
	if err != nil {
		return err
	}

	c := core.Resolve(svc.Store.List(), args[0])
	if c == nil {
		return fmt.Errorf("no app matches %q", args[0])
	}

	if output.FormatType(globalOpts.format) == output.FormatJSON {
		return output.NewJSONFormatter(output.DefaultFormatterOptions()).FormatSingle(os.Stdout, c)
	}
	return formatter("").Apps(os.Stdout, []model.AppConfig{*c})
}

func runAppAdd(cmd *cobra.Command, args []string) error {
	svc, err := getServices()
	if err != nil {
		return err
	}

	name := appEditOpts.name
	if name == "" {
		name = appEditOpts.bundleID
	}

	c, err := svc.AddApp(name, appEditOpts.bundleID, appEditOpts.path, appEditOpts.sound, appEditOpts.volume)
	if err != nil {
		return err
	}
	return formatter("").Apps(os.Stdout, []model.AppConfig{c})
}

func runAppUpdate(cmd *cobra.Command, args []string) error {
	svc, err := getServices()
	if err != nil {
		return err
	}

	ref := core.Resolve(svc.Store.List(), args[0])
	if ref == nil {
		return fmt.Errorf("no app matches %q", args[0])
	}
	c := *ref

	flags := cmd.Flags()
	if flags.Changed("name") {
		c.AppName = appEditOpts.name
	}
	if flags.Changed("bundle") {
		c.BundleIdentifier = appEditOpts.bundleID
	}
	if flags.Changed("path") {
		c.AppPath = appEditOpts.path
	}
	if flags.Changed("sound") {
		c.SoundFileName = appEditOpts.sound
	}
	if flags.Changed("volume") {
		c.SetVolume(appEditOpts.volume)
	}
	if flags.Changed("active") {
		c.IsActivated = appEditOpts.active
	}

	if err := svc.UpdateApp(c); err != nil {
		return err
	}

	updated, err := svc.Store.Get(c.ID)
	if err != nil {
		return err
	}
	return formatter("").Apps(os.Stdout, []model.AppConfig{updated})
}

func runAppRemove(cmd *cobra.Command, args []string) error {
	svc, err := getServices()
	if err != nil {
		return err
	}

	if len(args) == 0 && len(appRemoveOpts.indices) == 0 {
		return errors.New("nothing to remove: give app references or --index")
	}

	// Resolve everything to indices so one persisted write covers all.
	configs := svc.Store.List()
	indices := append([]int(nil), appRemoveOpts.indices...)
	for _, arg := range args {
		c := core.Resolve(configs, arg)
		if c == nil {
			return fmt.Errorf("no app matches %q", arg)
		}
		indices = append(indices, core.IndexOf(configs, c.ID))
	}

	before := svc.Store.Count()
	if err := svc.Store.DeleteIndices(indices); err != nil {
		return err
	}
	logger.Debug("removed apps", "count", before-svc.Store.Count())
	return nil
}
