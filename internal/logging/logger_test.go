package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func resetState() {
	CloseAll()
	configMu.Lock()
	logsDir = ""
	settings = Settings{}
	logLevel = LevelInfo
	configMu.Unlock()
}

// TestAllCategoriesLog tests that all categories create log files when debug mode is on
func TestAllCategoriesLog(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(dir, Settings{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("expected debug mode to be enabled")
	}

	for _, cat := range AllCategories {
		l := Get(cat)
		l.Debug("debug for %s", cat)
		l.Info("info for %s", cat)
		l.Warn("warn for %s", cat)
		l.Error("error for %s", cat)
	}
	CloseAll()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read logs dir: %v", err)
	}
	for _, cat := range AllCategories {
		found := false
		for _, entry := range entries {
			if !strings.HasSuffix(entry.Name(), "_"+string(cat)+".log") {
				continue
			}
			found = true
			content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				t.Fatalf("read %s: %v", entry.Name(), err)
			}
			if !strings.Contains(string(content), "[ERROR] error for "+string(cat)) {
				t.Errorf("log for %s missing error line: %s", cat, content)
			}
		}
		if !found {
			t.Errorf("no log file for category %s", cat)
		}
	}
}

// TestDebugModeDisabled tests that no logs are created when debug mode is off
func TestDebugModeDisabled(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(dir, Settings{DebugMode: false}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	History("should not be written")
	Get(CategoryAPI).Error("nor this")
	CloseAll()

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected no logs directory, stat err = %v", err)
	}
}

func TestCategoryFilter(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	dir := filepath.Join(t.TempDir(), "logs")
	err := Initialize(dir, Settings{
		DebugMode:  true,
		Categories: map[string]bool{"api": false, "history": true},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if IsCategoryEnabled(CategoryAPI) {
		t.Error("api category should be disabled")
	}
	if !IsCategoryEnabled(CategoryHistory) {
		t.Error("history category should be enabled")
	}
	if !IsCategoryEnabled(CategoryServer) {
		t.Error("unlisted categories default to enabled")
	}
}

func TestLevelFiltering(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(dir, Settings{DebugMode: true, Level: "warn"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	l := Get(CategoryStudio)
	l.Info("hidden info")
	l.Warn("visible warn")
	CloseAll()

	data := readCategoryLog(t, dir, CategoryStudio)
	if strings.Contains(data, "hidden info") {
		t.Errorf("info line written at warn level: %s", data)
	}
	if !strings.Contains(data, "visible warn") {
		t.Errorf("warn line missing: %s", data)
	}
}

func TestJSONFormat(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(dir, Settings{DebugMode: true, Level: "info", JSONFormat: true}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	Get(CategoryHistory).StructuredLog("info", "evicted images", map[string]interface{}{"count": 2})
	CloseAll()

	data := readCategoryLog(t, dir, CategoryHistory)
	var last StructuredLogEntry
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		idx := strings.Index(line, "{")
		if idx < 0 {
			continue
		}
		if err := json.Unmarshal([]byte(line[idx:]), &last); err != nil {
			t.Fatalf("line is not JSON: %q: %v", line, err)
		}
	}
	if last.Message != "evicted images" || last.Category != "history" {
		t.Fatalf("unexpected entry: %+v", last)
	}
}

func readCategoryLog(t *testing.T, dir string, cat Category) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), "_"+string(cat)+".log") {
			data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				t.Fatalf("read log: %v", err)
			}
			return string(data)
		}
	}
	t.Fatalf("no log file for %s", cat)
	return ""
}

func TestConvenienceFunctionsRouteToCategory(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(dir, Settings{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	Boot("starting %s", "serve")
	BootDebug("backend=%s", "file")
	Generation("client ready")
	StudioWarn("image gone for %s", "rec-1")
	CloseAll()

	boot := readCategoryLog(t, dir, CategoryBoot)
	if !strings.Contains(boot, "[INFO] starting serve") || !strings.Contains(boot, "[DEBUG] backend=file") {
		t.Errorf("unexpected boot log: %s", boot)
	}
	if gen := readCategoryLog(t, dir, CategoryGeneration); !strings.Contains(gen, "[INFO] client ready") {
		t.Errorf("unexpected generation log: %s", gen)
	}
	if st := readCategoryLog(t, dir, CategoryStudio); !strings.Contains(st, "[WARN] image gone for rec-1") {
		t.Errorf("unexpected studio log: %s", st)
	}
}

func TestTimerStopWithThreshold(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(dir, Settings{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	StartTimer(CategoryHistory, "fast").StopWithThreshold(time.Hour)
	slow := StartTimer(CategoryHistory, "slow")
	time.Sleep(5 * time.Millisecond)
	if elapsed := slow.StopWithThreshold(time.Nanosecond); elapsed <= 0 {
		t.Errorf("elapsed = %v", elapsed)
	}
	CloseAll()

	log := readCategoryLog(t, dir, CategoryHistory)
	if !strings.Contains(log, "[DEBUG] fast completed in") {
		t.Errorf("fast op should log at debug: %s", log)
	}
	if !strings.Contains(log, "[WARN] slow took") {
		t.Errorf("slow op should warn: %s", log)
	}
}
