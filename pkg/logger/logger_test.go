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
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit(t *testing.T) {
	config := &Config{
		Level:  "debug",
		Debug:  true,
		Output: "stdout",
	}

	if err := Init(context.Background(), config); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	if GetLogger().GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %v", GetLogger().GetLevel())
	}
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	if err := Init(context.Background(), &Config{Level: "loud"}); err == nil {
		t.Fatal("Expected an error for an unknown level")
	}
}

func TestSetDebug(t *testing.T) {
	SetDebug(true)

	if GetLogger().GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level after SetDebug(true), got %v", GetLogger().GetLevel())
	}

	SetDebug(false)

	if GetLogger().GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level after SetDebug(false), got %v", GetLogger().GetLevel())
	}
}

func TestWithComponent(t *testing.T) {
	componentLogger := WithComponent("test-component")

	if componentLogger.GetLevel() == zerolog.Disabled {
		t.Error("Component logger should not be disabled")
	}
}

func TestWriterLoggerEmitsJSON(t *testing.T) {
	var buf bytes.Buffer

	log := NewWriterLogger(&buf, zerolog.InfoLevel)
	log.Debug().Msg("hidden")
	log.Warn().Str("worker", "3").Msg("worker failed")

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}

	if entry["level"] != "warn" || entry["message"] != "worker failed" || entry["worker"] != "3" {
		t.Errorf("unexpected entry: %v", entry)
	}

	log.SetDebug(true)
	buf.Reset()
	log.Debug().Msg("visible")

	if buf.Len() == 0 {
		t.Error("debug output expected after SetDebug(true)")
	}
}

func TestTestLoggerDiscards(t *testing.T) {
	log := NewTestLogger()
	log.Error().Msg("nothing")

	if log.WithComponent("x").GetLevel() != zerolog.Disabled {
		t.Error("test logger should stay disabled")
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DEBUG", "yes")

	config := DefaultConfig()

	if config.Level != "warn" {
		t.Errorf("Expected level warn from env, got %q", config.Level)
	}

	if !config.Debug {
		t.Error("Expected DEBUG=yes to enable debug")
	}

	if config.Output == "" {
		t.Error("Default config should have an output set")
	}
}
