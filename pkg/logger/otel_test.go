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

package logger

import (
	"context"
	"testing"
	"time"
)

func TestOTelConfigDefaults(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc, tenant = t1")

	config := DefaultOTelConfig()

	if config.ServiceName != defaultServiceName {
		t.Errorf("Expected service name %q, got %q", defaultServiceName, config.ServiceName)
	}

	if config.BatchTimeout != Duration(5*time.Second) {
		t.Errorf("Expected default BatchTimeout to be 5s, got %v", config.BatchTimeout)
	}

	if config.Headers["x-api-key"] != "abc" || config.Headers["tenant"] != "t1" {
		t.Errorf("unexpected headers: %v", config.Headers)
	}
}

func TestOTelWriter_Disabled(t *testing.T) {
	writer, err := NewOTelWriter(context.Background(), OTelConfig{Enabled: false})
	if err != ErrOTelLoggingDisabled {
		t.Errorf("Expected ErrOTelLoggingDisabled, got %v", err)
	}

	if writer != nil {
		t.Error("Writer should be nil when OTel is disabled")
	}
}

func TestOTelWriter_NoEndpoint(t *testing.T) {
	writer, err := NewOTelWriter(context.Background(), OTelConfig{Enabled: true})
	if err != ErrOTelEndpointRequired {
		t.Errorf("Expected ErrOTelEndpointRequired, got %v", err)
	}

	if writer != nil {
		t.Error("Writer should be nil when endpoint is empty")
	}
}

func TestInitializeMetricsDisabled(t *testing.T) {
	if _, err := InitializeMetrics(context.Background(), MetricsConfig{}); err != ErrOTelMetricsDisabled {
		t.Errorf("Expected ErrOTelMetricsDisabled, got %v", err)
	}
}

func TestInitializeTracingWithoutExporter(t *testing.T) {
	ctx, span, err := InitializeTracing(context.Background(), TracingConfig{ServiceName: "crchist-test"})
	if err != nil {
		t.Fatalf("InitializeTracing failed: %v", err)
	}

	if !span.SpanContext().IsValid() {
		t.Error("root span should carry a valid span context")
	}

	span.End()

	if ctx == nil {
		t.Fatal("expected a context")
	}

	if err := ShutdownOTel(); err != nil {
		t.Errorf("ShutdownOTel failed: %v", err)
	}
}

func TestMapZerologLevelToOTel(t *testing.T) {
	tests := []struct {
		zerologLevel string
		expected     string
	}{
		{"trace", "TRACE"},
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"fatal", "FATAL"},
		{"panic", "FATAL"},
		{"unknown", "INFO"},
	}

	for _, test := range tests {
		result := mapZerologLevelToOTel(test.zerologLevel)
		if result.String() != test.expected {
			t.Errorf("mapZerologLevelToOTel(%s) = %s, expected %s",
				test.zerologLevel, result.String(), test.expected)
		}
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("unexpected truncation: %q", got)
	}

	if got := truncateString("abcdefghij", 6); got != "abc..." {
		t.Errorf("expected abc..., got %q", got)
	}
}
