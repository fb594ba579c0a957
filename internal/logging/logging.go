package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Logger is a simple leveled logger that writes to the console.
type Logger struct {
	*log.Logger
}

// NewLogger creates a new Logger.
func NewLogger() *Logger {
	return &Logger{
		Logger: log.New(os.Stdout, "", log.LstdFlags),
	}
}

// Info logs an informational message with optional key/value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.Printf("INFO: %s%s", msg, formatArgs(args))
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	l.Printf("WARN: %s%s", msg, formatArgs(args))
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	l.Printf("ERROR: %s%s", msg, formatArgs(args))
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	l.Printf("DEBUG: %s%s", msg, formatArgs(args))
}

// formatArgs renders alternating key/value pairs as " key=value".
func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprintf("%v", args[i])
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %s=%v", key, args[i+1])
		} else {
			b.WriteString(" " + key)
		}
	}
	return b.String()
}
