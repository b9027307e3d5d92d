// Package appstate carries ionhash's per-run environment through a
// context.Context.
package appstate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ionhash/internal/appconfig"
)

type envKey struct{}

// Env keeps everything a command invocation needs in one place.
type Env struct {
	Cfg *appconfig.Config
	Log *zap.Logger

	start         time.Time
	restoreStdLog func()
}

// EnvFromContext retrieves the Env stored by ContextWithEnv. It panics if
// called outside a context built by ContextWithEnv: this should never
// happen in a correctly wired CLI.
func EnvFromContext(ctx context.Context) *Env {
	if env, ok := ctx.Value(envKey{}).(*Env); ok {
		return env
	}
	panic("appstate: env not found in context")
}

// ContextWithEnv attaches a fresh Env to ctx.
func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &Env{start: time.Now()})
}

func (e *Env) Uptime() time.Duration { return time.Since(e.start) }

// RedirectStdLog routes the standard library's log package through e.Log,
// so any third-party code using log.Print ends up in the same core.
func (e *Env) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

// RestoreStdLog syncs the logger and restores the standard library's log
// package to its previous destination, returning any sync failure so the
// caller can aggregate it with other cleanup errors.
func (e *Env) RestoreStdLog() error {
	var err error
	if e.Log != nil {
		err = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
	return err
}
