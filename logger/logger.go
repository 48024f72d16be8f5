// Package logger provides the process-wide logger used by everything
// outside the protocol core (the core takes an injected log function
// instead). It fans lines out to multiple writers so the interactive
// TUI can capture logs into its buffer while headless runs go to
// stdout. Init must be called before AddOutput or SetEnabled.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Logger writes formatted lines to a set of outputs.
type Logger struct {
	mu      sync.Mutex
	outputs []io.Writer
	prefix  string
	enabled bool
}

var (
	globalLogger *Logger
	once         sync.Once
	globalBuffer *LogBuffer
	bufferOnce   sync.Once
)

// GetGlobalLogBuffer returns the shared ring buffer the TUI reads.
func GetGlobalLogBuffer() *LogBuffer {
	bufferOnce.Do(func() {
		globalBuffer = NewLogBuffer(1000) // keep the last 1000 entries
	})
	return globalBuffer
}

// Init initializes the global logger. Subsequent calls are no-ops.
func Init(prefix string, writeToStdout bool) {
	once.Do(func() {
		outputs := []io.Writer{}
		if writeToStdout {
			outputs = append(outputs, os.Stdout)
		}
		globalLogger = &Logger{
			outputs: outputs,
			prefix:  prefix,
			enabled: true,
		}
	})
}

// AddOutput adds an additional output writer (e.g., the TUI log
// buffer). Returns an error if called before Init.
func AddOutput(w io.Writer) error {
	if globalLogger == nil {
		return errors.New("logger not initialized: call logger.Init() first")
	}
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.outputs = append(globalLogger.outputs, w)
	return nil
}

// SetEnabled enables or disables logging. Returns an error if called
// before Init.
func SetEnabled(enabled bool) error {
	if globalLogger == nil {
		return errors.New("logger not initialized: call logger.Init() first")
	}
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.enabled = enabled
	return nil
}

// Printf logs a formatted message.
func Printf(format string, v ...interface{}) {
	if globalLogger == nil {
		// Fallback to standard log if not initialized
		log.Printf(format, v...)
		return
	}

	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	if !globalLogger.enabled {
		return
	}

	msg := fmt.Sprintf(format, v...)
	msg = strings.TrimSuffix(msg, "\n")

	if globalLogger.prefix != "" {
		msg = fmt.Sprintf("[%s] %s", globalLogger.prefix, msg)
	}

	if len(globalLogger.outputs) > 0 {
		msgWithNewline := msg + "\n"
		for _, output := range globalLogger.outputs {
			output.Write([]byte(msgWithNewline))
		}
	}
}

// Infof logs an info-level formatted message.
func Infof(format string, v ...interface{}) {
	Printf("[INFO] "+format, v...)
}

// Info logs an info-level message.
func Info(v ...interface{}) {
	Printf("[INFO] %s", fmt.Sprint(v...))
}

// Warnf logs a warning-level formatted message.
func Warnf(format string, v ...interface{}) {
	Printf("[WARN] "+format, v...)
}

// Errorf logs an error-level formatted message.
func Errorf(format string, v ...interface{}) {
	Printf("[ERROR] "+format, v...)
}
