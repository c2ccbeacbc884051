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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/carverauto/crchist/pkg/checksum"
	"github.com/carverauto/crchist/pkg/config"
	"github.com/carverauto/crchist/pkg/lifecycle"
	"github.com/carverauto/crchist/pkg/logger"
	"github.com/carverauto/crchist/pkg/pipeline"
	"github.com/carverauto/crchist/pkg/version"
)

const component = "crchist"

var errUsage = errors.New("usage: crchist [flags] NPROC INPUT OUTPUT [SIZE]")

type cliOptions struct {
	configPath  string
	algorithm   string
	showVersion bool
	debug       bool
	positional  []string
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}

		log.Fatalf("Fatal error: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseArgs(args, os.Stderr)
	if err != nil {
		return err
	}

	if opts.showVersion {
		_, err := fmt.Fprintf(stdout, "crchist %s\n", version.GetFullVersion())

		return err
	}

	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runLogger, err := lifecycle.CreateComponentLogger(ctx, component, cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		if shutdownErr := lifecycle.ShutdownLogger(); shutdownErr != nil {
			log.Printf("Failed to shutdown logger: %v", shutdownErr)
		}
	}()

	ctx, endSpan, err := lifecycle.CreateTelemetry(ctx, component, cfg.Logging, runLogger)
	if err != nil {
		runLogger.Warn().Err(err).Msg("Telemetry disabled")
	}
	defer endSpan()

	result, err := pipeline.Run(ctx, cfg, runLogger)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(stdout, result.String())

	return err
}

func parseArgs(args []string, stderr io.Writer) (*cliOptions, error) {
	opts := &cliOptions{}

	fs := flag.NewFlagSet(component, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to a JSON config file")
	fs.StringVar(&opts.algorithm, "algorithm", "",
		"Checksum algorithm ("+strings.Join(checksum.Names(), ", ")+"; default "+checksum.DefaultAlgorithm+")")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintln(stderr, errUsage.Error())
		fmt.Fprintln(stderr, "  NPROC is the number of workers; 0 uses one worker per logical CPU")
		fmt.Fprintln(stderr, "  SIZE is a byte count, or +N for N 1024-byte blocks")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.positional = fs.Args()

	switch len(opts.positional) {
	case 0, 3, 4:
	default:
		fs.Usage()

		return nil, fmt.Errorf("%w: got %d arguments", errUsage, len(opts.positional))
	}

	return opts, nil
}

// loadConfig reads the config source, then applies positional arguments and
// flags on top of it.
func loadConfig(ctx context.Context, opts *cliOptions) (*config.Config, error) {
	cfg := &config.Config{}

	if err := config.NewLoader(nil).Load(ctx, opts.configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if len(opts.positional) > 0 {
		workers, err := strconv.Atoi(opts.positional[0])
		if err != nil {
			return nil, fmt.Errorf("%w: bad NPROC %q", errUsage, opts.positional[0])
		}

		cfg.Workers = workers
		cfg.Input = opts.positional[1]
		cfg.Output = opts.positional[2]

		if len(opts.positional) == 4 {
			cfg.Size = opts.positional[3]
		}
	}

	if opts.algorithm != "" {
		cfg.Algorithm = opts.algorithm
	}

	if cfg.Logging == nil {
		cfg.Logging = logger.DefaultConfig()
	}

	if opts.debug {
		cfg.Logging.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingArgument) {
			return nil, fmt.Errorf("%w: %w", errUsage, err)
		}

		return nil, err
	}

	return cfg, nil
}
