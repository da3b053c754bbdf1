package typedef

import (
	"strings"

	"github.com/BurntSushi/toml"

	typerrors "github.com/wippyai/typerep/errors"
)

// Options are the CLI defaults carried by a catalog's [options] table.
type Options struct {
	// Count is the number of instances transfers operate on.
	Count int64
	// Chunk is the byte budget of one pack or unpack step.
	Chunk int64
	// MaxIOV is the number of descriptors requested per iov step.
	MaxIOV int
	// LogLevel is a zap level name.
	LogLevel string
}

type optionsFile struct {
	Count    int64  `toml:"count"`
	Chunk    int64  `toml:"chunk"`
	MaxIOV   int    `toml:"max_iov"`
	LogLevel string `toml:"log_level"`
}

// DefaultOptions returns the options used when a catalog sets none.
func DefaultOptions() Options {
	return Options{
		Count:    1,
		Chunk:    4096,
		MaxIOV:   16,
		LogLevel: "info",
	}
}

func loadOptions(raw optionsFile, meta toml.MetaData) (Options, error) {
	opts := DefaultOptions()

	if meta.IsDefined("options", "count") {
		if raw.Count < 0 {
			return Options{}, typerrors.NegativeArgument(typerrors.PhaseConfig, []string{"options", "count"}, raw.Count)
		}
		opts.Count = raw.Count
	}

	if meta.IsDefined("options", "chunk") {
		if raw.Chunk <= 0 {
			return Options{}, typerrors.InvalidArgument(typerrors.PhaseConfig, []string{"options", "chunk"}, "chunk must be positive")
		}
		opts.Chunk = raw.Chunk
	}

	if meta.IsDefined("options", "max_iov") {
		if raw.MaxIOV <= 0 {
			return Options{}, typerrors.InvalidArgument(typerrors.PhaseConfig, []string{"options", "max_iov"}, "max_iov must be positive")
		}
		opts.MaxIOV = raw.MaxIOV
	}

	if meta.IsDefined("options", "log_level") {
		opts.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}

	return opts, nil
}
