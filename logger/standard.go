package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	logging "github.com/keybase/go-logging"
)

const (
	fancyFormat = "%{color}%{time:15:04:05.000000} ▶ [%{level:.4s} %{module} %{shortfile}] %{id:03x}%{color:reset} %{message}"
	plainFormat = "[%{level:.4s}] %{id:03x} %{message}"
	fileFormat  = "%{time:2006-01-02T15:04:05.000000Z07:00} ▶ [%{level:.4s} %{module} %{shortfile}] %{id:03x} %{message}"
	defaultFmt  = "%{color}%{time:15:04:05} ▶ %{level:.4s}%{color:reset} %{message}"
)

// Standard writes through github.com/keybase/go-logging.
type Standard struct {
	internal *logging.Logger
	module   string

	configureMutex sync.Mutex
	// file is the log file opened by the last Configure, if any
	file *os.File
}

var _ Logger = (*Standard)(nil)

// New creates a logger for module, writing info and above to stderr until
// Configure is called.
func New(module string) *Standard {
	log := logging.MustGetLogger(module)
	log.ExtraCalldepth = 1
	ret := &Standard{internal: log, module: module}
	ret.setBackend(os.Stderr, defaultFmt, logging.INFO)
	return ret
}

func (log *Standard) setBackend(w io.Writer, format string, level logging.Level) {
	backend := logging.NewLogBackend(w, "", 0)
	formatted := logging.NewBackendFormatter(backend, logging.MustStringFormatter(format))
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(level, log.module)
	log.internal.SetBackend(leveled)
}

// Configure picks one of the "fancy", "plain", "file" or "default" styles.
// When filename is set output is appended to it instead of stderr.
func (log *Standard) Configure(style string, debug bool, filename string) {
	log.configureMutex.Lock()
	defer log.configureMutex.Unlock()

	var format string
	switch style {
	case "fancy":
		format = fancyFormat
	case "plain":
		format = plainFormat
	case "file":
		format = fileFormat
	default:
		format = defaultFmt
	}

	var w io.Writer = os.Stderr
	var file *os.File
	if filename != "" {
		f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			log.internal.Warningf("cannot open log file %s, staying on stderr: %v", filename, err)
		} else {
			w, file = f, f
			if style == "" {
				format = fileFormat
			}
		}
	}

	level := logging.INFO
	if debug {
		level = logging.DEBUG
	}
	log.setBackend(w, format, level)
	log.closeFile()
	log.file = file
}

// Close releases the log file opened by Configure. Later output goes to
// stderr.
func (log *Standard) Close() error {
	log.configureMutex.Lock()
	defer log.configureMutex.Unlock()
	log.setBackend(os.Stderr, defaultFmt, logging.INFO)
	return log.closeFile()
}

func (log *Standard) closeFile() error {
	if log.file == nil {
		return nil
	}
	err := log.file.Close()
	log.file = nil
	return err
}

func (log *Standard) Debug(fmt string, arg ...interface{}) {
	log.internal.Debugf(fmt, arg...)
}

func (log *Standard) CDebugf(ctx context.Context, fmt string, arg ...interface{}) {
	log.internal.Debugf(prepareString(ctx, fmt), arg...)
}

func (log *Standard) Info(fmt string, arg ...interface{}) {
	log.internal.Infof(fmt, arg...)
}

func (log *Standard) CInfof(ctx context.Context, fmt string, arg ...interface{}) {
	log.internal.Infof(prepareString(ctx, fmt), arg...)
}

func (log *Standard) Notice(fmt string, arg ...interface{}) {
	log.internal.Noticef(fmt, arg...)
}

func (log *Standard) CNoticef(ctx context.Context, fmt string, arg ...interface{}) {
	log.internal.Noticef(prepareString(ctx, fmt), arg...)
}

func (log *Standard) Warning(fmt string, arg ...interface{}) {
	log.internal.Warningf(fmt, arg...)
}

func (log *Standard) CWarningf(ctx context.Context, fmt string, arg ...interface{}) {
	log.internal.Warningf(prepareString(ctx, fmt), arg...)
}

func (log *Standard) Error(fmt string, arg ...interface{}) {
	log.internal.Errorf(fmt, arg...)
}

func (log *Standard) Errorf(fmt string, arg ...interface{}) {
	log.internal.Errorf(fmt, arg...)
}

func (log *Standard) CErrorf(ctx context.Context, fmt string, arg ...interface{}) {
	log.internal.Errorf(prepareString(ctx, fmt), arg...)
}

func (log *Standard) Critical(fmt string, arg ...interface{}) {
	log.internal.Criticalf(fmt, arg...)
}

func (log *Standard) CCriticalf(ctx context.Context, fmt string, arg ...interface{}) {
	log.internal.Criticalf(prepareString(ctx, fmt), arg...)
}

func (log *Standard) Fatalf(fmt string, arg ...interface{}) {
	log.internal.Fatalf(fmt, arg...)
}

func (log *Standard) CFatalf(ctx context.Context, fmt string, arg ...interface{}) {
	log.internal.Fatalf(prepareString(ctx, fmt), arg...)
}

func (log *Standard) Profile(fmts string, arg ...interface{}) {
	log.internal.Debugf("PROFILE "+fmts, arg...)
}

func (log *Standard) CloneWithAddedDepth(depth int) Logger {
	clone := *log.internal
	clone.ExtraCalldepth = log.internal.ExtraCalldepth + depth
	return &Standard{internal: &clone, module: log.module}
}

func (log *Standard) String() string {
	return fmt.Sprintf("Standard{module=%s}", log.module)
}
