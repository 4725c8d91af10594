package library

import (
	"embed"
	"io"
	"io/fs"
	"slices"
)

// builtinSounds contains the shipped chimes, addressed by bare name.
//
//go:embed sounds/*.wav
var builtinSounds embed.FS

// BuiltinExt is the format of every built-in sound.
const BuiltinExt = ".wav"

// BundledSounds lists the built-in sound names.
var BundledSounds = []string{"depth", "wooly", "sparse"}

// IsBuiltin reports whether name is a built-in sound.
func IsBuiltin(name string) bool {
	return slices.Contains(BundledSounds, name)
}

func builtinPath(name string) string {
	return "sounds/" + name + BuiltinExt
}

// openBuiltin opens the embedded asset for name.
func openBuiltin(name string) (io.ReadCloser, error) {
	return builtinSounds.Open(builtinPath(name))
}

// builtinSize returns the embedded asset size, or 0 if unknown.
func builtinSize(name string) int64 {
	info, err := fs.Stat(builtinSounds, builtinPath(name))
	if err != nil {
		return 0
	}
	return info.Size()
}
