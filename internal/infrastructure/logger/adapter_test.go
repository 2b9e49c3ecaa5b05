package logger

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"MyBot":         "MyBot",
		"my bot (prod)": "my_bot__prod_",
		"":              "bot",
		"bot-name_01":   "bot-name_01",
	}
	for in, want := range cases {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestSanitize_Truncates(t *testing.T) {
	long := strings.Repeat("a", 100)
	if got := sanitize(long); len(got) != 60 {
		t.Errorf("Expected 60 chars, got %d", len(got))
	}
}

func TestZapAdapter_WritesJSONToFile(t *testing.T) {
	dir := t.TempDir()

	log, err := NewZapAdapter("TestBot", dir)
	if err != nil {
		t.Fatalf("NewZapAdapter failed: %v", err)
	}

	log.Info("Bot execution started", "attempt", 0)
	log.WithField("component", "test").Error("something failed", "error", "boom")

	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !strings.HasSuffix(log.Filename(), "_TestBot.log") {
		t.Errorf("Expected filename suffix _TestBot.log, got %s", log.Filename())
	}

	data, err := os.ReadFile(log.Path())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first line is not JSON: %v", err)
	}
	if first["msg"] != "Bot execution started" {
		t.Errorf("Expected msg field, got %v", first["msg"])
	}
	if first["bot"] != "TestBot" {
		t.Errorf("Expected bot field on every entry, got %v", first["bot"])
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("second line is not JSON: %v", err)
	}
	if second["component"] != "test" {
		t.Errorf("Expected WithField value, got %v", second["component"])
	}
}
