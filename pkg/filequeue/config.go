package filequeue

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Config is the on-disk, JSONC-with-comments form of the knobs [Option]
// exposes programmatically. It lets an operator pin queue geometry limits
// in a checked-in file instead of a call site.
type Config struct {
	// MinFileSize is the file size a freshly created queue is pre-sized to.
	// Zero means use the package default.
	MinFileSize uint32 `json:"min_file_size,omitempty"`

	// MaxFileSize caps how large the queue file may grow. Zero means no cap.
	MaxFileSize uint32 `json:"max_file_size,omitempty"`

	// Writeback disables the fsync that otherwise follows every committing
	// header write when true.
	Writeback bool `json:"writeback,omitempty"`
}

// LoadConfig reads and parses a JSONC config file at path. Comments and
// trailing commas are accepted, per [hujson]. A missing file is not an
// error: it returns the zero Config, which maps to Open's defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}

		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC in %s: %w", path, err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config JSON in %s: %w", path, err)
	}

	if cfg.MaxFileSize != 0 && cfg.MinFileSize != 0 && cfg.MaxFileSize < cfg.MinFileSize {
		return Config{}, fmt.Errorf("max_file_size %d below min_file_size %d: %w", cfg.MaxFileSize, cfg.MinFileSize, ErrInvalidArgument)
	}

	return cfg, nil
}

// Options translates cfg into [Option] values suitable for [Open].
func (cfg Config) Options() []Option {
	var opts []Option

	if cfg.MinFileSize != 0 {
		opts = append(opts, WithMinFileSize(cfg.MinFileSize))
	}

	if cfg.MaxFileSize != 0 {
		opts = append(opts, WithMaxFileSize(cfg.MaxFileSize))
	}

	if cfg.Writeback {
		opts = append(opts, WithoutSync())
	}

	return opts
}
