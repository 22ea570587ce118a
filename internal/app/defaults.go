package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables that relocate eivu's files.
const (
	EnvConfigPath = "EIVU_CONFIG_PATH"
	EnvHome       = "EIVU_HOME"
)

// Paths are the locations eivu uses before a config file has been read.
type Paths struct {
	ConfigFile string // ~/.config/eivu.toml
	Home       string // ~/.local/share/eivu; config init derives every data directory from it
}

// ResolvePaths looks up EIVU_CONFIG_PATH and EIVU_HOME through getenv and
// fills whatever is unset from the user's home directory.
func ResolvePaths(getenv func(string) string) (Paths, error) {
	p := Paths{
		ConfigFile: getenv(EnvConfigPath),
		Home:       getenv(EnvHome),
	}
	if p.ConfigFile != "" && p.Home != "" {
		return p, nil
	}

	userHome, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("cannot determine home directory: %w", err)
	}
	if p.ConfigFile == "" {
		p.ConfigFile = filepath.Join(userHome, ".config", "eivu.toml")
	}
	if p.Home == "" {
		p.Home = filepath.Join(userHome, ".local", "share", "eivu")
	}
	return p, nil
}
