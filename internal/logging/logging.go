// Package logging configures the shared logrus instance used across the
// client: a compact console format with caller locations, and optional
// rotating file output.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var setupOnce sync.Once

// fieldOrder defines the display order for common log fields.
var fieldOrder = []string{"session", "stage", "handle", "error"}

// Formatter renders entries as
// [2026-08-29 10:04:05] [debug] [manager.go:118] message key=value
type Formatter struct{}

// Format renders a single log entry.
func (f *Formatter) Format(entry *log.Entry) ([]byte, error) {
	var buffer *bytes.Buffer
	if entry.Buffer != nil {
		buffer = entry.Buffer
	} else {
		buffer = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	message := strings.TrimRight(entry.Message, "\r\n")

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}

	var fieldsStr string
	if len(entry.Data) > 0 {
		var fields []string
		for _, k := range fieldOrder {
			if v, ok := entry.Data[k]; ok {
				fields = append(fields, fmt.Sprintf("%s=%v", k, v))
			}
		}
		if len(fields) > 0 {
			fieldsStr = " " + strings.Join(fields, " ")
		}
	}

	if entry.Caller != nil {
		fmt.Fprintf(buffer, "[%s] [%-5s] [%s:%d] %s%s\n", timestamp, level, filepath.Base(entry.Caller.File), entry.Caller.Line, message, fieldsStr)
	} else {
		fmt.Fprintf(buffer, "[%s] [%-5s] %s%s\n", timestamp, level, message, fieldsStr)
	}
	return buffer.Bytes(), nil
}

// Setup configures the shared logrus instance. Safe to call multiple times;
// initialization happens only once.
func Setup(debug bool) {
	setupOnce.Do(func() {
		log.SetOutput(os.Stderr)
		log.SetReportCaller(true)
		log.SetFormatter(&Formatter{})
	})
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// EnableFileOutput mirrors log output into a rotating file in addition to
// stderr.
func EnableFileOutput(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("logging: create log dir failed: %w", err)
	}
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, writer))
	return nil
}
