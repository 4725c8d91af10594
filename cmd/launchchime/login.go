package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// loginCmd represents the login command group.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Start the daemon when you log in",
	Long: `Manage the XDG autostart entry that starts launchchimed at login.

Use 'launchchime login status' to check the current state.
Use 'launchchime login enable' to install the autostart entry.
Use 'launchchime login disable' to remove it.`,
	RunE: loginStatusRun,
}

var loginStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether launchchimed starts at login",
	RunE:  loginStatusRun,
}

var loginEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Start launchchimed at login",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setLogin(true)
	},
}

var loginDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Do not start launchchimed at login",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setLogin(false)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.AddCommand(loginStatusCmd, loginEnableCmd, loginDisableCmd)
}

func loginStatusRun(cmd *cobra.Command, args []string) error {
	svc, err := getServices()
	if err != nil {
		return err
	}

	enabled, err := svc.Login.Enabled()
	if err != nil {
		return fmt.Errorf("failed to read autostart entry: %w", err)
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Launch at login: %s (%s)\n", state, svc.Login.Path())
	return nil
}

func setLogin(enabled bool) error {
	svc, err := getServices()
	if err != nil {
		return err
	}
	if err := svc.Login.SetEnabled(enabled); err != nil {
		return err
	}
	return loginStatusRun(nil, nil)
}
