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

package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/crchist/pkg/logger"
)

// InitializeLogger initializes the global logger with the provided configuration.
// If config is nil, it uses the default configuration.
func InitializeLogger(ctx context.Context, config *logger.Config) error {
	if err := logger.Init(ctx, config); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// CreateComponentLogger initializes the process logger from config and
// returns an injectable logger tagged with the component name.
func CreateComponentLogger(ctx context.Context, component string, config *logger.Config) (logger.Logger, error) {
	if err := InitializeLogger(ctx, config); err != nil {
		return nil, err
	}

	return logger.New(logger.WithComponent(component)), nil
}

// CreateTelemetry starts tracing and, when exporting is enabled, metrics.
// The returned function ends the root span; ShutdownLogger flushes exporters.
func CreateTelemetry(ctx context.Context, component string, config *logger.Config, log logger.Logger) (context.Context, func(), error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	ctx, span, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName: component,
		Logger:      log,
		OTel:        &config.OTel,
	})
	if err != nil {
		return ctx, func() {}, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	_, err = logger.InitializeMetrics(ctx, logger.MetricsConfig{ServiceName: component, OTel: &config.OTel})
	if err != nil && !errors.Is(err, logger.ErrOTelMetricsDisabled) {
		log.Warn().Err(err).Msg("metrics export unavailable")
	}

	return ctx, func() { span.End() }, nil
}

// ShutdownLogger shuts down the logger, flushing any pending logs.
func ShutdownLogger() error {
	return logger.Shutdown()
}
