// Package audio provides launch chime playback.
// It uses the beep library to decode WAV, OGG, and MP3 files, caches decoded
// sounds by catalog name, and restarts a sound from zero when it is played
// again while still audible.
package audio
