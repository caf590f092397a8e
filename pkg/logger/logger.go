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

// Package logger provides JSON structured logging on zerolog. Loggers are
// values passed to each service; there is no process-wide logger.
package logger

import (
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var timeFormatOnce sync.Once

type zlog struct {
	mu     sync.RWMutex
	logger zerolog.Logger
}

var _ Logger = (*zlog)(nil)

// New builds a Logger from cfg writing to w. A nil w selects stdout or
// stderr from cfg.Output.
func New(cfg *Config, w io.Writer) (Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := cfg.level()
	if err != nil {
		return nil, err
	}

	if w == nil {
		w = cfg.writer()
	}

	// zerolog keeps the timestamp layout globally; the first logger decides.
	timeFormatOnce.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339
		if cfg.TimeFormat != "" {
			zerolog.TimeFieldFormat = cfg.TimeFormat
		}
	})

	return &zlog{logger: zerolog.New(w).Level(level).With().Timestamp().Logger()}, nil
}

// Wrap adapts an existing zerolog.Logger, typically one returned by
// WithComponent.
func Wrap(l zerolog.Logger) Logger {
	return &zlog{logger: l}
}

// NewTestLogger returns a Logger that discards everything.
func NewTestLogger() Logger {
	return Wrap(zerolog.Nop())
}

func (l *zlog) get() *zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lg := l.logger

	return &lg
}

func (l *zlog) Trace() *zerolog.Event { return l.get().Trace() }
func (l *zlog) Debug() *zerolog.Event { return l.get().Debug() }
func (l *zlog) Info() *zerolog.Event  { return l.get().Info() }
func (l *zlog) Warn() *zerolog.Event  { return l.get().Warn() }
func (l *zlog) Error() *zerolog.Event { return l.get().Error() }
func (l *zlog) Fatal() *zerolog.Event { return l.get().Fatal() }
func (l *zlog) Panic() *zerolog.Event { return l.get().Panic() }
func (l *zlog) With() zerolog.Context { return l.get().With() }

func (l *zlog) WithComponent(component string) zerolog.Logger {
	return l.get().With().Str("component", component).Logger()
}

func (l *zlog) WithFields(fields map[string]interface{}) zerolog.Logger {
	return l.get().With().Fields(fields).Logger()
}

func (l *zlog) SetLevel(level zerolog.Level) {
	l.mu.Lock()
	l.logger = l.logger.Level(level)
	l.mu.Unlock()
}

func (l *zlog) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
		return
	}

	l.SetLevel(zerolog.InfoLevel)
}
