// Package daemon provides the main orchestration for launchchimed.
// It connects a launch feed to the audio engine through the Dispatcher
// and hot-reloads the configuration file.
package daemon
