// Package logging provides categorized file-based logging for instapoem.
// Logs are written to <data_dir>/logs/ with one file per category and day.
// Nothing is written unless debug mode is enabled in the logging settings.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, config resolution
	CategoryAPI        Category = "api"        // Model API calls
	CategoryGeneration Category = "generation" // Prompt building, output parsing
	CategoryHistory    Category = "history"    // History store, backends, eviction
	CategoryStudio     Category = "studio"     // Workflow actions (create, edit, quote)
	CategorySchedule   Category = "schedule"   // Simulated post scheduling
	CategoryServer     Category = "server"     // HTTP API
)

// AllCategories lists every category known to the logger.
var AllCategories = []Category{
	CategoryBoot,
	CategoryAPI,
	CategoryGeneration,
	CategoryHistory,
	CategoryStudio,
	CategorySchedule,
	CategoryServer,
}

// Settings mirrors config.LoggingConfig to avoid an import cycle.
type Settings struct {
	DebugMode  bool
	Level      string
	JSONFormat bool
	Categories map[string]bool
}

// StructuredLogEntry is one JSON log line.
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`
	Category  string                 `json:"cat"`
	Level     string                 `json:"lvl"`
	Message   string                 `json:"msg"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger wraps a standard logger with category and file output
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	settings  Settings
	configMu  sync.RWMutex
	logLevel  int // 0=debug, 1=info, 2=warn, 3=error
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory.
// Should be called once at startup. With debug mode off it is a silent no-op.
func Initialize(dir string, s Settings) error {
	if dir == "" {
		return fmt.Errorf("logs directory required")
	}

	configMu.Lock()
	settings = s
	logLevel = parseLevel(s.Level)
	logsDir = dir
	configMu.Unlock()

	if !s.DebugMode {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	if err := InitAudit(); err != nil {
		return err
	}

	boot := Get(CategoryBoot)
	boot.Info("=== instapoem logging initialized ===")
	boot.Info("Logs directory: %s", dir)
	boot.Info("Log level: %s", s.Level)
	if len(s.Categories) > 0 {
		enabled := 0
		for _, on := range s.Categories {
			if on {
				enabled++
			}
		}
		boot.Info("Enabled categories: %d/%d", enabled, len(s.Categories))
	}

	return nil
}

func parseLevel(level string) int {
	switch level {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return settings.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !settings.DebugMode {
		return false
	}
	if settings.Categories == nil {
		return true
	}
	enabled, exists := settings.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	configMu.RLock()
	dir := logsDir
	configMu.RUnlock()
	if dir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) write(level int, tag string, format string, args ...interface{}) {
	if l.logger == nil || logLevel > level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if IsJSONFormat() {
		l.logJSON(tag, msg, nil)
		return
	}
	l.logger.Printf("[%s] %s", levelTags[tag], msg)
}

var levelTags = map[string]string{
	"debug": "DEBUG",
	"info":  "INFO",
	"warn":  "WARN",
	"error": "ERROR",
}

func (l *Logger) logJSON(level, msg string, fields map[string]interface{}) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
		Fields:    fields,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	l.logger.Printf("%s", data)
}

// Debug logs a debug message (only if level <= debug)
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(LevelDebug, "debug", format, args...)
}

// Info logs an informational message (only if level <= info)
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, "info", format, args...)
}

// Warn logs a warning message (only if level <= warn)
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(LevelWarn, "warn", format, args...)
}

// Error logs an error message (always logged if logger exists)
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(LevelError, "error", format, args...)
}

// StructuredLog writes a log entry with custom fields
func (l *Logger) StructuredLog(level string, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	if IsJSONFormat() {
		l.logJSON(level, msg, fields)
		return
	}
	l.logger.Printf("[%s] %s | fields=%v", level, msg, fields)
}

// IsJSONFormat returns whether JSON logging is enabled
func IsJSONFormat() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return settings.JSONFormat
}

// CloseAll closes all open log files, the audit log included (call at shutdown)
func CloseAll() {
	CloseAudit()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// API logs to the api category
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

// APIError logs an error to the api category
func APIError(format string, args ...interface{}) {
	Get(CategoryAPI).Error(format, args...)
}

// Generation logs to the generation category
func Generation(format string, args ...interface{}) {
	Get(CategoryGeneration).Info(format, args...)
}

// GenerationDebug logs debug to the generation category
func GenerationDebug(format string, args ...interface{}) {
	Get(CategoryGeneration).Debug(format, args...)
}

// GenerationWarn logs a warning to the generation category
func GenerationWarn(format string, args ...interface{}) {
	Get(CategoryGeneration).Warn(format, args...)
}

// History logs to the history category
func History(format string, args ...interface{}) {
	Get(CategoryHistory).Info(format, args...)
}

// HistoryDebug logs debug to the history category
func HistoryDebug(format string, args ...interface{}) {
	Get(CategoryHistory).Debug(format, args...)
}

// HistoryWarn logs a warning to the history category
func HistoryWarn(format string, args ...interface{}) {
	Get(CategoryHistory).Warn(format, args...)
}

// HistoryError logs an error to the history category
func HistoryError(format string, args ...interface{}) {
	Get(CategoryHistory).Error(format, args...)
}

// Studio logs to the studio category
func Studio(format string, args ...interface{}) {
	Get(CategoryStudio).Info(format, args...)
}

// StudioDebug logs debug to the studio category
func StudioDebug(format string, args ...interface{}) {
	Get(CategoryStudio).Debug(format, args...)
}

// StudioWarn logs a warning to the studio category
func StudioWarn(format string, args ...interface{}) {
	Get(CategoryStudio).Warn(format, args...)
}

// Schedule logs to the schedule category
func Schedule(format string, args ...interface{}) {
	Get(CategorySchedule).Info(format, args...)
}

// Server logs to the server category
func Server(format string, args ...interface{}) {
	Get(CategoryServer).Info(format, args...)
}

// ServerWarn logs a warning to the server category
func ServerWarn(format string, args ...interface{}) {
	Get(CategoryServer).Warn(format, args...)
}

// ServerError logs an error to the server category
func ServerError(format string, args ...interface{}) {
	Get(CategoryServer).Error(format, args...)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
