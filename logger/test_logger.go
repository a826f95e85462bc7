package logger

import (
	"context"
	"fmt"
)

// TestLogBackend is the subset of testing.TB a TestLogger writes to.
type TestLogBackend interface {
	Logf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	Helper()
}

// TestLogger sends everything to the running test's log, so output only shows
// up for failing or verbose tests.
type TestLogger struct {
	log TestLogBackend
}

var _ Logger = (*TestLogger)(nil)

func NewTestLogger(log TestLogBackend) *TestLogger {
	return &TestLogger{log: log}
}

func (t *TestLogger) logf(ctx context.Context, level, fmts string, arg ...interface{}) {
	t.log.Helper()
	t.log.Logf("[%s] %s", level, fmt.Sprintf(prepareString(ctx, fmts), arg...))
}

func (t *TestLogger) Debug(fmts string, arg ...interface{}) {
	t.logf(context.Background(), "DEBU", fmts, arg...)
}
func (t *TestLogger) CDebugf(ctx context.Context, fmts string, arg ...interface{}) {
	t.logf(ctx, "DEBU", fmts, arg...)
}
func (t *TestLogger) Info(fmts string, arg ...interface{}) {
	t.logf(context.Background(), "INFO", fmts, arg...)
}
func (t *TestLogger) CInfof(ctx context.Context, fmts string, arg ...interface{}) {
	t.logf(ctx, "INFO", fmts, arg...)
}
func (t *TestLogger) Notice(fmts string, arg ...interface{}) {
	t.logf(context.Background(), "NOTI", fmts, arg...)
}
func (t *TestLogger) CNoticef(ctx context.Context, fmts string, arg ...interface{}) {
	t.logf(ctx, "NOTI", fmts, arg...)
}
func (t *TestLogger) Warning(fmts string, arg ...interface{}) {
	t.logf(context.Background(), "WARN", fmts, arg...)
}
func (t *TestLogger) CWarningf(ctx context.Context, fmts string, arg ...interface{}) {
	t.logf(ctx, "WARN", fmts, arg...)
}
func (t *TestLogger) Error(fmts string, arg ...interface{}) {
	t.logf(context.Background(), "ERRO", fmts, arg...)
}
func (t *TestLogger) Errorf(fmts string, arg ...interface{}) {
	t.logf(context.Background(), "ERRO", fmts, arg...)
}
func (t *TestLogger) CErrorf(ctx context.Context, fmts string, arg ...interface{}) {
	t.logf(ctx, "ERRO", fmts, arg...)
}
func (t *TestLogger) Critical(fmts string, arg ...interface{}) {
	t.logf(context.Background(), "CRIT", fmts, arg...)
}
func (t *TestLogger) CCriticalf(ctx context.Context, fmts string, arg ...interface{}) {
	t.logf(ctx, "CRIT", fmts, arg...)
}

func (t *TestLogger) Fatalf(fmts string, arg ...interface{}) {
	t.log.Helper()
	t.log.Fatalf(fmts, arg...)
}

func (t *TestLogger) CFatalf(ctx context.Context, fmts string, arg ...interface{}) {
	t.log.Helper()
	t.log.Fatalf(prepareString(ctx, fmts), arg...)
}

func (t *TestLogger) Profile(fmts string, arg ...interface{}) {
	t.logf(context.Background(), "PROF", fmts, arg...)
}

// Depth does not matter here; Helper already hides this package's frames.
func (t *TestLogger) CloneWithAddedDepth(depth int) Logger { return t }

func (t *TestLogger) Configure(style string, debug bool, filename string) {}
