// Package applog builds the zap logger used throughout ionhash's CLI:
// split console cores by level, color-aware, plus an optional file core.
package applog

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig configures one logging destination (console or file).
type LoggerConfig struct {
	Level       string `yaml:"level"`
	Destination string `yaml:"destination,omitempty"`
	Mode        string `yaml:"mode,omitempty"`
}

func (c LoggerConfig) Validate() error {
	switch c.Level {
	case "", "none", "debug", "normal":
	default:
		return fmt.Errorf("applog: invalid level %q", c.Level)
	}
	switch c.Mode {
	case "", "append", "overwrite":
	default:
		return fmt.Errorf("applog: invalid mode %q", c.Mode)
	}
	if c.Level == "debug" || c.Level == "normal" {
		if c.Destination == "" && c.Mode != "" {
			// mode only matters when a destination is actually set; not an error,
			// just dead configuration.
			return nil
		}
	}
	return nil
}

// Config is the logging section of internal/appconfig.Config.
type Config struct {
	File    LoggerConfig `yaml:"file"`
	Console LoggerConfig `yaml:"console"`
}

func (c Config) Validate() error {
	if err := c.File.Validate(); err != nil {
		return err
	}
	return c.Console.Validate()
}

// Prepare builds the program's zap logger from Config.
func Prepare(cfg Config) (*zap.Logger, error) {
	consoleEncoderLP := newConsoleEncoder(os.Stdout)
	consoleEncoderHP := filteredErrorEncoder{newConsoleEncoder(os.Stderr)}

	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})

	var consoleCoreHP, consoleCoreLP zapcore.Core
	switch cfg.Console.Level {
	case "normal":
		consoleCoreLP = zapcore.NewCore(consoleEncoderLP, zapcore.Lock(os.Stdout),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return zapcore.InfoLevel <= lvl && lvl < zapcore.ErrorLevel
			}))
		consoleCoreHP = zapcore.NewCore(consoleEncoderHP, zapcore.Lock(os.Stderr), highPriority)
	case "debug":
		consoleCoreLP = zapcore.NewCore(consoleEncoderLP, zapcore.Lock(os.Stdout),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return zapcore.DebugLevel <= lvl && lvl < zapcore.ErrorLevel
			}))
		consoleCoreHP = zapcore.NewCore(consoleEncoderHP, zapcore.Lock(os.Stderr), highPriority)
	default:
		consoleCoreLP = zapcore.NewNopCore()
		consoleCoreHP = zapcore.NewNopCore()
	}

	var fileCore zapcore.Core
	switch cfg.File.Level {
	case "debug", "normal":
		level := zap.InfoLevel
		if cfg.File.Level == "debug" {
			level = zap.DebugLevel
		}
		flags := os.O_CREATE | os.O_WRONLY
		if cfg.File.Mode == "append" {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(cfg.File.Destination, flags, 0644)
		if err != nil {
			return nil, fmt.Errorf("applog: unable to open log file destination (%s): %w", cfg.File.Destination, err)
		}
		fileCore = zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(f), zap.NewAtomicLevelAt(level))
	default:
		fileCore = zapcore.NewNopCore()
	}

	logger := zap.New(zapcore.NewTee(consoleCoreHP, consoleCoreLP, fileCore), zap.AddCaller())
	return logger.Named("ionhash"), nil
}

func newConsoleEncoder(stream *os.File) zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if enableColorOutput(stream) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}

// filteredErrorEncoder strips error verbosity before it reaches the
// high-priority (stderr) console core.
type filteredErrorEncoder struct {
	zapcore.Encoder
}

func (c filteredErrorEncoder) Clone() zapcore.Encoder {
	return filteredErrorEncoder{c.Encoder.Clone()}
}

func (c filteredErrorEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	flattened := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		if f.Type == zapcore.ErrorType {
			f.Interface = errors.New(f.Interface.(error).Error())
		}
		flattened[i] = f
	}
	return c.Encoder.EncodeEntry(ent, flattened)
}
