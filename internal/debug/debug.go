// Package debug is the tracing tap for the analysis internals: the
// scanner, index and resolvers report what they skipped or inferred
// through it. Tracing is off unless enabled at build time or through
// the DEBUG environment variable, and is always suppressed while
// stdio carries the MCP protocol.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug is the build-time switch:
// go build -ldflags "-X github.com/pathlight/urlchain/internal/debug.EnableDebug=true"
var EnableDebug = "false"

var sink struct {
	mu      sync.Mutex
	w       io.Writer
	file    *os.File
	mcpMode bool
}

// SetMCPMode suppresses all tracing while stdio belongs to the MCP
// transport.
func SetMCPMode(enabled bool) {
	sink.mu.Lock()
	sink.mcpMode = enabled
	sink.mu.Unlock()
}

// SetDebugOutput routes tracing to w; nil turns it off.
func SetDebugOutput(w io.Writer) {
	sink.mu.Lock()
	sink.w = w
	sink.mu.Unlock()
}

// InitDebugLogFile routes tracing to a timestamped file under the
// system temp directory and returns its path. Pair with CloseDebugLog.
func InitDebugLogFile() (string, error) {
	dir := filepath.Join(os.TempDir(), "urlchain-debug-logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create debug log directory: %w", err)
	}

	path := filepath.Join(dir, "debug-"+time.Now().Format("2006-01-02T150405")+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("create debug log file: %w", err)
	}

	sink.mu.Lock()
	sink.file = file
	sink.w = file
	sink.mu.Unlock()
	return path, nil
}

// CloseDebugLog closes the log file opened by InitDebugLogFile, if any.
func CloseDebugLog() error {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.file == nil {
		return nil
	}
	err := sink.file.Close()
	sink.file = nil
	sink.w = nil
	return err
}

func enabled() bool {
	if EnableDebug == "true" {
		return true
	}
	switch os.Getenv("DEBUG") {
	case "1", "true":
		return true
	}
	return false
}

// Log writes one component-tagged trace line
func Log(component, format string, args ...any) {
	if !enabled() {
		return
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.w == nil || sink.mcpMode {
		return
	}
	fmt.Fprintf(sink.w, "[DEBUG:%s] "+format, append([]any{component}, args...)...)
}

// Component taps, one per analysis stage.

func LogScan(format string, args ...any)    { Log("SCAN", format, args...) }
func LogIndex(format string, args ...any)   { Log("INDEX", format, args...) }
func LogResolve(format string, args ...any) { Log("RESOLVE", format, args...) }
func LogCross(format string, args ...any)   { Log("CROSS", format, args...) }
