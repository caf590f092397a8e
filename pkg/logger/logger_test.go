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
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer

	l, err := New(&Config{Level: "info"}, &buf)
	require.NoError(t, err)

	l.Info().Str("box_code", "box-1").Msg("hello")
	l.Debug().Msg("hidden")

	assert.Contains(t, buf.String(), `"box_code":"box-1"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestDebugOverridesLevel(t *testing.T) {
	l, err := New(&Config{Level: "error", Debug: true}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.True(t, l.Debug().Enabled())
}

func TestSetDebug(t *testing.T) {
	l, err := New(&Config{Level: "info"}, &bytes.Buffer{})
	require.NoError(t, err)

	l.SetDebug(true)
	assert.True(t, l.Debug().Enabled())

	l.SetDebug(false)
	assert.False(t, l.Debug().Enabled())
}

func TestWithComponentTagsOutput(t *testing.T) {
	var buf bytes.Buffer

	l, err := New(nil, &buf)
	require.NoError(t, err)

	c := l.WithComponent("edge")
	c.Info().Msg("up")

	assert.Contains(t, buf.String(), `"component":"edge"`)
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DEBUG", "yes")
	t.Setenv("LOG_OUTPUT", "stderr")

	cfg := DefaultConfig()

	assert.Equal(t, "warn", cfg.Level)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "stderr", cfg.Output)
}

func TestNewTestLoggerIsSilent(t *testing.T) {
	l := NewTestLogger()

	assert.False(t, l.Info().Enabled())
	assert.Equal(t, zerolog.Disabled, l.WithComponent("x").GetLevel())
}
