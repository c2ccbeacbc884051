/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads and validates the settings of a histogram run.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/carverauto/crchist/pkg/checksum"
	"github.com/carverauto/crchist/pkg/logger"
)

var (
	errInvalidConfigSource = errors.New("invalid CONFIG_SOURCE value")

	// ErrMissingArgument is returned when a required setting is empty.
	ErrMissingArgument = errors.New("missing argument")
	// ErrNonPositiveSize is returned for an explicit size that is zero or negative.
	ErrNonPositiveSize = errors.New("non-positive file size")
	// ErrInvalidSize is returned for an explicit size that is not a number.
	ErrInvalidSize = errors.New("invalid file size")
	// ErrInvalidWorkers is returned for a negative worker count.
	ErrInvalidWorkers = errors.New("worker count must be positive")
)

const (
	configSourceFile = "file"
	configSourceEnv  = "env"

	// DefaultEnvPrefix prefixes every environment variable read by EnvConfigLoader.
	DefaultEnvPrefix = "CRCHIST_"

	kibibyte = 1024
)

// Config is the complete configuration surface of one run.
type Config struct {
	// Workers is the number of concurrent workers. Zero selects the number
	// of logical CPUs.
	Workers int `json:"workers"`
	// Input is the file or block device to checksum.
	Input string `json:"input"`
	// Output receives the counting table.
	Output string `json:"output"`
	// Size optionally overrides the input size: "N" bytes or "+N" KiB.
	Size string `json:"size,omitempty"`
	// Algorithm names the 16-bit checksum; empty selects the default.
	Algorithm string `json:"algorithm,omitempty"`

	Logging *logger.Config `json:"logging,omitempty"`
}

// Validator is implemented by configurations that can check themselves.
type Validator interface {
	Validate() error
}

// Validate checks the settings without touching the filesystem.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("%w: input", ErrMissingArgument)
	}

	if c.Output == "" {
		return fmt.Errorf("%w: output", ErrMissingArgument)
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}

	if c.Size != "" {
		if _, err := ParseSize(c.Size); err != nil {
			return err
		}
	}

	if _, err := checksum.Lookup(c.Algorithm); err != nil {
		return err
	}

	return nil
}

// InputSize returns the explicit input size in bytes, or 0 when the size
// should come from the filesystem.
func (c *Config) InputSize() (int64, error) {
	if c.Size == "" {
		return 0, nil
	}

	return ParseSize(c.Size)
}

// ParseSize parses a byte count. A leading '+' counts 1024-byte units, which
// is how /proc/partitions reports block device sizes.
func ParseSize(s string) (int64, error) {
	str := strings.TrimSpace(s)

	unit := int64(1)
	if strings.HasPrefix(str, "+") {
		unit = kibibyte
		str = str[1:]
	}

	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidSize, s, err)
	}

	if n <= 0 {
		return 0, fmt.Errorf("%w %d %q", ErrNonPositiveSize, n, s)
	}

	if n > (1<<63-1)/unit {
		return 0, fmt.Errorf("%w %q: overflows int64", ErrInvalidSize, s)
	}

	return n * unit, nil
}

//nolint:gochecknoglobals // swapped in tests
var logicalCPUs = func(ctx context.Context) (int, error) {
	return cpu.CountsWithContext(ctx, true)
}

// ResolveWorkers returns c.Workers, or the logical CPU count when it is zero.
func (c *Config) ResolveWorkers(ctx context.Context) (int, error) {
	if c.Workers > 0 {
		return c.Workers, nil
	}

	if c.Workers < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}

	n, err := logicalCPUs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to determine logical cpu count: %w", err)
	}

	if n <= 0 {
		return 1, nil
	}

	return n, nil
}

// ConfigLoader fills dst from some source.
type ConfigLoader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// Loader selects a ConfigLoader from CONFIG_SOURCE ("file" or "env").
type Loader struct {
	logger logger.Logger
	prefix string
}

// NewLoader creates a Loader. A nil logger discards output.
func NewLoader(log logger.Logger) *Loader {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Loader{logger: log, prefix: DefaultEnvPrefix}
}

// LoadAndValidate loads cfg from the configured source and validates it if
// it implements Validator. An empty path with the file source loads nothing.
func (l *Loader) LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	if err := l.load(ctx, path, cfg); err != nil {
		return err
	}

	if v, ok := cfg.(Validator); ok {
		return v.Validate()
	}

	return nil
}

// Load fills cfg from the configured source without validating it.
func (l *Loader) Load(ctx context.Context, path string, cfg interface{}) error {
	return l.load(ctx, path, cfg)
}

func (l *Loader) load(ctx context.Context, path string, cfg interface{}) error {
	source := strings.ToLower(os.Getenv("CONFIG_SOURCE"))

	var loader ConfigLoader

	switch source {
	case configSourceEnv:
		prefix := os.Getenv("CONFIG_ENV_PREFIX")
		if prefix == "" {
			prefix = l.prefix
		}

		loader = NewEnvConfigLoader(l.logger, prefix)
	case configSourceFile, "":
		if path == "" {
			return nil
		}

		loader = &FileConfigLoader{}
	default:
		return fmt.Errorf("%w: %s (expected '%s' or '%s')",
			errInvalidConfigSource, source, configSourceFile, configSourceEnv)
	}

	return loader.Load(ctx, path, cfg)
}
