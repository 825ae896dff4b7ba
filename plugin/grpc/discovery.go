package grpc

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// extensionFile is the optional per-extension config file an extension
// directory may carry alongside the binary, e.g. plugins/big-requests.toml.
type extensionFile struct {
	Args []string          `toml:"args"`
	Env  map[string]string `toml:"env"`
}

// LoadExtensionFile reads "<dir>/<name>.toml", if present, and returns the
// args and environment it describes. A missing file is not an error; it
// simply means the extension runs with no extra configuration.
func LoadExtensionFile(dir, name string) ([]string, map[string]string, error) {
	path := filepath.Join(dir, name+".toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var f extensionFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, nil, err
	}
	return f.Args, f.Env, nil
}
