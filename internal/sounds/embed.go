// Package sounds holds the clips served at /sounds/ when no sounds_dir is
// configured.
package sounds

import (
	"embed"
	"io/fs"
)

//go:embed sounds/*.wav
var soundFiles embed.FS

// FS returns the bundled clips rooted at the directory, so "intro.wav" is a
// valid name.
func FS() fs.FS {
	sub, err := fs.Sub(soundFiles, "sounds")
	if err != nil {
		panic(err)
	}
	return sub
}
