package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".agendai"

// Paths holds resolved filesystem paths for agendai data.
type Paths struct {
	Base        string // ~/.agendai
	Config      string // ~/.agendai/config.yaml
	Credentials string // ~/.agendai/credentials
	Data        string // ~/.agendai/data
	Logs        string // ~/.agendai/logs
}

// ResolvePaths computes all standard paths from the home directory.
// If AGENDAI_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("AGENDAI_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:        base,
		Config:      filepath.Join(base, "config.yaml"),
		Credentials: filepath.Join(base, "credentials"),
		Data:        filepath.Join(base, "data"),
		Logs:        filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Credentials, p.Data, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
