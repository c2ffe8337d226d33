package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType names one kind of audited studio action.
type AuditEventType string

const (
	// Poem lifecycle
	AuditPoemCreated     AuditEventType = "poem_created"
	AuditPoemRegenerated AuditEventType = "poem_regenerated"
	AuditPoemEdited      AuditEventType = "poem_edited"
	AuditPoemTranslated  AuditEventType = "poem_translated"
	AuditRecordDeleted   AuditEventType = "record_deleted"

	// Quotes
	AuditQuoteCreated    AuditEventType = "quote_created"
	AuditQuoteEdited     AuditEventType = "quote_edited"
	AuditQuoteTranslated AuditEventType = "quote_translated"
	AuditQuoteDeleted    AuditEventType = "quote_deleted"

	// Simulated posting
	AuditPostScheduled   AuditEventType = "post_scheduled"
	AuditPostUnscheduled AuditEventType = "post_unscheduled"

	// Failures
	AuditGenerationFailed AuditEventType = "generation_failed"
	AuditHistoryDegraded  AuditEventType = "history_degraded"
)

// AuditEvent is one line of the audit log.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"` // Unix milliseconds
	EventType  AuditEventType         `json:"event"`
	RecordID   string                 `json:"record,omitempty"`
	QuoteID    string                 `json:"quote,omitempty"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Message    string                 `json:"msg,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile *os.File
	auditPath string
	auditMu   sync.Mutex
)

// InitAudit opens <logs>/<date>_audit.log. It is a no-op outside debug mode.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	configMu.RLock()
	dir := logsDir
	configMu.RUnlock()

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_audit.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	auditPath = path
	return nil
}

// AuditPath returns the open audit log, or "" when auditing is off.
func AuditPath() string {
	auditMu.Lock()
	defer auditMu.Unlock()
	return auditPath
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
		auditPath = ""
	}
}

// Audit writes event as a JSON line. Missing timestamps are filled in.
func Audit(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	auditFile.Write(append(data, '\n'))
}

// AuditOK records a successful action on a record.
func AuditOK(eventType AuditEventType, recordID, quoteID string) {
	Audit(AuditEvent{EventType: eventType, RecordID: recordID, QuoteID: quoteID, Success: true})
}

// AuditFailure records a failed action with its error.
func AuditFailure(eventType AuditEventType, recordID string, err error) {
	e := AuditEvent{EventType: eventType, RecordID: recordID}
	if err != nil {
		e.Error = err.Error()
	}
	Audit(e)
}
