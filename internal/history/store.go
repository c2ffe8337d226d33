// Package history keeps the creative history: an in-memory working set that is
// always complete, and a persisted copy that drops old image payloads to stay
// within the backend's capacity.
package history

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"instapoem/internal/logging"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// DefaultKeepImages is how many of the most recently touched records keep
// their image in the persisted copy.
const DefaultKeepImages = 3

// Store is the history store. It is safe for concurrent use.
// Persistence is best-effort: no method returns a storage error.
type Store struct {
	mu          sync.RWMutex
	backend     Backend
	records     []Record // most recently touched first
	keepImages  int
	lastWritten []byte
}

// Option configures a Store.
type Option func(*Store)

// WithKeepImages overrides DefaultKeepImages. Negative values are treated as zero.
func WithKeepImages(n int) Option {
	return func(s *Store) {
		if n < 0 {
			n = 0
		}
		s.keepImages = n
	}
}

// New creates an empty store over backend. Call Load to read persisted state.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		records:    []Record{},
		keepImages: DefaultKeepImages,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the working set with the persisted collection.
// Absent or unreadable data yields an empty collection.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, raw := s.readPersisted(ctx)
	s.records = records
	s.lastWritten = raw

	logging.History("Loaded %d records", len(records))
}

// Reload re-reads the persisted collection, e.g. after another process wrote it.
// Images that were evicted from storage but are still held in memory are kept.
// A slot holding exactly what this store last wrote is ignored.
func (s *Store) Reload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, raw := s.readPersisted(ctx)
	if bytes.Equal(raw, s.lastWritten) {
		logging.HistoryDebug("Reload: slot unchanged since last write, skipping")
		return
	}

	images := make(map[string]string, len(s.records))
	for _, r := range s.records {
		if r.Image != "" {
			images[r.ID] = r.Image
		}
	}
	for i := range records {
		if records[i].Image == "" {
			records[i].Image = images[records[i].ID]
		}
	}
	s.records = records
	s.lastWritten = raw
	logging.HistoryDebug("Reloaded %d records", len(records))
}

// readPersisted returns the decoded collection and the raw slot contents.
// Callers hold s.mu.
func (s *Store) readPersisted(ctx context.Context) ([]Record, []byte) {
	raw, err := s.backend.Read(ctx)
	if errors.Is(err, ErrSlotEmpty) {
		return []Record{}, nil
	}
	if err != nil {
		logging.HistoryError("Failed to read history: %v", err)
		return []Record{}, nil
	}

	records, err := Migrate(raw)
	if err != nil {
		logging.HistoryError("Failed to parse history, starting empty: %v", err)
		return []Record{}, raw
	}
	return records, raw
}

// Save upserts r by id and moves it to the front.
// It reports whether the in-memory state changed; saving a record identical
// to the stored one does nothing.
func (s *Store) Save(ctx context.Context, r Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, r)
}

// saveLocked is Save without locking. Callers hold s.mu.
func (s *Store) saveLocked(ctx context.Context, r Record) bool {
	idx := s.indexOf(r.ID)
	if idx >= 0 && sameRecord(s.records[idx], r) {
		logging.HistoryDebug("Save %s: unchanged, skipping write", r.ID)
		return false
	}

	next := make([]Record, 0, len(s.records)+1)
	next = append(next, r.Clone())
	for _, existing := range s.records {
		if existing.ID != r.ID {
			next = append(next, existing)
		}
	}
	s.records = next

	s.persist(ctx, r.ID)
	return true
}

// Update applies fn to the current copy of record id and saves the result,
// all under the store lock. It returns the updated record.
func (s *Store) Update(ctx context.Context, id string, fn func(*Record)) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return Record{}, false
	}
	r := s.records[idx].Clone()
	fn(&r)
	r.ID = id
	s.saveLocked(ctx, r)
	return r.Clone(), true
}

// UpdateQuote applies fn to the current copy of one quote and saves its record.
func (s *Store) UpdateQuote(ctx context.Context, poemID, quoteID string, fn func(*Quote)) (Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(poemID)
	if idx < 0 {
		return Quote{}, false
	}
	q, ok := s.records[idx].Quote(quoteID)
	if !ok {
		return Quote{}, false
	}
	fn(&q)
	q.ID = quoteID
	s.saveLocked(ctx, s.records[idx].UpsertQuote(q))
	return q, true
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return Record{}, false
	}
	return s.records[idx].Clone(), true
}

// Delete removes the record and rewrites the persisted copy.
// It reports whether a record was removed.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	next := make([]Record, 0, len(s.records)-1)
	next = append(next, s.records[:idx]...)
	next = append(next, s.records[idx+1:]...)
	s.records = next

	s.persist(ctx, "")
	return true
}

// SaveQuote upserts q into the quotes of record poemID and saves the record.
// A missing parent record is silently ignored.
func (s *Store) SaveQuote(ctx context.Context, poemID string, q Quote) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(poemID)
	if idx < 0 {
		logging.HistoryDebug("SaveQuote: record %s not found", poemID)
		return false
	}
	return s.saveLocked(ctx, s.records[idx].UpsertQuote(q))
}

// DeleteQuote removes one quote from a record and saves the record.
func (s *Store) DeleteQuote(ctx context.Context, poemID, quoteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(poemID)
	if idx < 0 {
		return false
	}
	r := s.records[idx].Clone()
	kept := make([]Quote, 0, len(r.Quotes))
	for _, q := range r.Quotes {
		if q.ID != quoteID {
			kept = append(kept, q)
		}
	}
	if len(kept) == len(r.Quotes) {
		return false
	}
	r.Quotes = kept
	return s.saveLocked(ctx, r)
}

// List returns copies of all records, most recently touched first.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Scheduled returns records that have a post time, earliest first.
func (s *Store) Scheduled() []Record {
	s.mu.RLock()
	var out []Record
	for _, r := range s.records {
		if r.IsScheduled() {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(*out[j].ScheduledAt)
	})
	return out
}

func (s *Store) indexOf(id string) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// persist writes the lossy view of s.records. Records past the first
// keepImages lose their image, except keepID. On a quota failure every
// image is dropped and the write retried once. Callers hold s.mu.
func (s *Store) persist(ctx context.Context, keepID string) {
	timer := logging.StartTimer(logging.CategoryHistory, "persist")
	defer timer.StopWithThreshold(250 * time.Millisecond)

	view := make([]Record, len(s.records))
	evicted := 0
	for i, r := range s.records {
		if i < s.keepImages || (keepID != "" && r.ID == keepID) {
			view[i] = r
			continue
		}
		if r.HasImage() {
			evicted++
		}
		view[i] = r.WithoutImage()
	}

	err := s.write(ctx, view)
	if err == nil {
		logging.HistoryDebug("Persisted %d records (%d images evicted)", len(view), evicted)
		return
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		logging.HistoryError("Failed to persist history: %v", err)
		return
	}

	logging.HistoryWarn("Storage quota exceeded, persisting history without images")
	for i := range view {
		view[i] = view[i].WithoutImage()
	}
	if err := s.write(ctx, view); err != nil {
		logging.HistoryError("Failed to persist history even without images: %v", err)
		logging.AuditFailure(logging.AuditHistoryDegraded, keepID, err)
		return
	}
	logging.Audit(logging.AuditEvent{
		EventType: logging.AuditHistoryDegraded,
		RecordID:  keepID,
		Success:   true,
		Message:   "persisted without images",
	})
}

func (s *Store) write(ctx context.Context, view []Record) error {
	data, err := Encode(view)
	if err != nil {
		return err
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return err
	}
	s.lastWritten = data
	return nil
}

var recordCompare = []cmp.Option{cmpopts.EquateEmpty()}

func sameRecord(a, b Record) bool {
	return cmp.Equal(a, b, recordCompare...)
}
