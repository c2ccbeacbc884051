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

package supervisor

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/crchist/pkg/logger"
)

const instrumentationName = "github.com/carverauto/crchist/pkg/supervisor"

type telemetry struct {
	tracer         trace.Tracer
	workerFailures metric.Int64Counter
	spawnFailures  metric.Int64Counter
}

// newTelemetry binds to the global providers; they are no-ops unless the
// process initialized OTel exporting.
func newTelemetry(log logger.Logger) *telemetry {
	meter := otel.Meter(instrumentationName)
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	t := &telemetry{tracer: otel.Tracer(instrumentationName)}

	var err error

	t.workerFailures, err = meter.Int64Counter("crchist.worker.failures",
		metric.WithDescription("Workers that terminated abnormally"))
	if err != nil {
		log.Debug().Err(err).Msg("worker failure counter unavailable")

		t.workerFailures, _ = fallback.Int64Counter("crchist.worker.failures")
	}

	t.spawnFailures, err = meter.Int64Counter("crchist.worker.spawn_failures",
		metric.WithDescription("Workers that could not be started"))
	if err != nil {
		log.Debug().Err(err).Msg("spawn failure counter unavailable")

		t.spawnFailures, _ = fallback.Int64Counter("crchist.worker.spawn_failures")
	}

	return t
}
