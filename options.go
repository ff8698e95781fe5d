package scriptcore

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/cvet/scriptcore/hstrings"
	"github.com/cvet/scriptcore/utils"
)

type Options struct {
	// Containers of ref types stored by value need value assignment.
	DisallowValueAssignForRefType bool `toml:"disallow_value_assign_for_ref_type"`

	LogLevel string `toml:"log_level"`

	// Empty keeps hashed strings in memory only.
	HashStorePath string `toml:"hash_store_path"`
	HashCacheSize int    `toml:"hash_cache_size"`

	Logger utils.Logger `toml:"-"`
}

func (o *Options) SetDefaults() {
	if o.LogLevel == "" {
		o.LogLevel = "info"
	}
	if o.HashCacheSize <= 0 {
		o.HashCacheSize = hstrings.DefaultCacheSize
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(utils.ParseLevel(o.LogLevel))
	}
}

func LoadOptions(path string) (opts Options, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, errors.Wrapf(err, "config load failed (%s)", path)
	}
	if err = toml.Unmarshal(data, &opts); err != nil {
		return Options{}, errors.Wrapf(err, "config parse failed (%s)", path)
	}
	return opts, nil
}
