// Package dbus holds the daemon's session bus integrations.
//
// UnitMonitor watches the systemd user manager and reports application
// launches as launch events. Units are matched against the
// app-<launcher>-<ApplicationID> naming convention desktop environments use
// for launched applications.
//
// ControlServer exports the daemon's control interface so the CLI can query
// status, toggle playback, simulate launches and trigger a reload;
// ControlClient is the CLI side.
package dbus
