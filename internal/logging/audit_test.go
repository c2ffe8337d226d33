package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAuditWritesJSONLines(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(dir, Settings{DebugMode: true, Level: "info"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	path := AuditPath()
	if path == "" {
		t.Fatal("expected an audit log in debug mode")
	}

	AuditOK(AuditQuoteCreated, "rec-1", "q-1")
	AuditFailure(AuditGenerationFailed, "rec-1", errors.New("blocked: SAFETY"))
	Audit(AuditEvent{EventType: AuditPostScheduled, RecordID: "rec-1", Success: true, Fields: map[string]interface{}{"hashtags": 2}})
	CloseAll()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer f.Close()

	var events []AuditEvent
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEvent
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad audit line %q: %v", sc.Text(), err)
		}
		events = append(events, e)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].EventType != AuditQuoteCreated || events[0].QuoteID != "q-1" || !events[0].Success {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Success || events[1].Error != "blocked: SAFETY" {
		t.Errorf("unexpected failure event: %+v", events[1])
	}
	if events[2].Timestamp == 0 {
		t.Error("timestamp not filled in")
	}
}

func TestAuditDisabledOutsideDebugMode(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(dir, Settings{DebugMode: false}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if AuditPath() != "" {
		t.Fatal("audit log opened outside debug mode")
	}
	AuditOK(AuditPoemCreated, "rec-1", "")
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("logs dir should not exist, stat err = %v", err)
	}
}
