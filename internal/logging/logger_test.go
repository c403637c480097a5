package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()
	CloseAll()
	t.Cleanup(func() {
		CloseAll()
		_ = Initialize(tempDir, Config{})
	})

	if err := Initialize(tempDir, Config{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategorySession,
		CategoryTransport,
		CategoryPoll,
		CategoryStream,
		CategoryReconcile,
		CategoryRender,
		CategoryAPI,
		CategoryStore,
		CategoryUI,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	CloseAll()

	logsPath := filepath.Join(tempDir, ".agentconsole", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	for _, cat := range categories {
		found := false
		for _, entry := range entries {
			if !strings.HasSuffix(entry.Name(), "_"+string(cat)+".log") {
				continue
			}
			found = true
			content, err := os.ReadFile(filepath.Join(logsPath, entry.Name()))
			if err != nil {
				t.Errorf("Failed to read log file for %s: %v", cat, err)
				break
			}
			if !strings.Contains(string(content), "Test info message for "+string(cat)) {
				t.Errorf("Log file for %s missing info line", cat)
			}
			break
		}
		if !found {
			t.Errorf("No log file found for category: %s", cat)
		}
	}
}

// TestDebugModeDisabled tests that no logs are created when debug_mode is false
func TestDebugModeDisabled(t *testing.T) {
	tempDir := t.TempDir()
	CloseAll()

	if err := Initialize(tempDir, Config{DebugMode: false}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if IsDebugMode() {
		t.Fatal("Expected debug mode to be disabled")
	}

	Session("should not be written")
	Get(CategoryTransport).Error("nor this")

	if _, err := os.Stat(filepath.Join(tempDir, ".agentconsole", "logs")); !os.IsNotExist(err) {
		t.Errorf("Expected no logs directory in production mode, stat err=%v", err)
	}
}

func TestCategoryFilter(t *testing.T) {
	tempDir := t.TempDir()
	CloseAll()
	t.Cleanup(func() {
		CloseAll()
		_ = Initialize(tempDir, Config{})
	})

	cfg := Config{
		DebugMode:  true,
		Categories: map[string]bool{"poll": false, "stream": true},
	}
	if err := Initialize(tempDir, cfg); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if IsCategoryEnabled(CategoryPoll) {
		t.Error("poll should be disabled")
	}
	if !IsCategoryEnabled(CategoryStream) {
		t.Error("stream should be enabled")
	}
	if !IsCategoryEnabled(CategoryRender) {
		t.Error("unlisted categories default to enabled")
	}
}

func TestInitializeRequiresWorkspace(t *testing.T) {
	if err := Initialize("", Config{}); err == nil {
		t.Fatal("expected error for empty workspace")
	}
}

func TestTimerStopWithThreshold(t *testing.T) {
	timer := StartTimer(CategoryAPI, "noop")
	time.Sleep(2 * time.Millisecond)
	if elapsed := timer.StopWithThreshold(time.Hour); elapsed <= 0 {
		t.Errorf("expected positive elapsed, got %v", elapsed)
	}
}

func TestConvenienceHelpersWriteToCategoryFiles(t *testing.T) {
	tempDir := t.TempDir()
	CloseAll()
	t.Cleanup(func() {
		CloseAll()
		_ = Initialize(tempDir, Config{})
	})

	if err := Initialize(tempDir, Config{DebugMode: true, Level: "info"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	Boot("starting %s", "status")
	BootError("command failed: %s", "boom")
	API("uploaded %d files", 2)
	CloseAll()

	read := func(cat Category) string {
		t.Helper()
		matches, err := filepath.Glob(filepath.Join(tempDir, ".agentconsole", "logs", "*_"+string(cat)+".log"))
		if err != nil || len(matches) != 1 {
			t.Fatalf("expected one %s log file, got %v (%v)", cat, matches, err)
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("Failed to read %s log: %v", cat, err)
		}
		return string(data)
	}

	boot := read(CategoryBoot)
	for _, want := range []string{"starting status", "command failed: boom"} {
		if !strings.Contains(boot, want) {
			t.Errorf("boot log missing %q:\n%s", want, boot)
		}
	}
	if api := read(CategoryAPI); !strings.Contains(api, "uploaded 2 files") {
		t.Errorf("api log missing upload line:\n%s", api)
	}
}
