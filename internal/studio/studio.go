// Package studio implements the user-facing workflow over the generation
// wrapper and the history store: create a record from a photo, edit and
// translate its poem, derive quotes, and schedule a simulated post.
package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"instapoem/internal/generation"
	"instapoem/internal/history"
	"instapoem/internal/logging"
	"instapoem/internal/media"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNotFound is returned when a record or quote id is unknown.
var ErrNotFound = errors.New("not found")

// DefaultScheduleDelay is the artificial latency of the simulated post.
const DefaultScheduleDelay = time.Second

// Wrapper is the model-backed surface the studio needs.
type Wrapper interface {
	GeneratePoem(ctx context.Context, req generation.PoemRequest) (generation.PoemResult, error)
	GenerateQuote(ctx context.Context, req generation.QuoteRequest) (generation.QuoteResult, error)
	TranslateText(ctx context.Context, req generation.TranslateRequest) (generation.TranslateResult, error)
}

// Studio coordinates generation and history.
type Studio struct {
	wrapper          Wrapper
	store            *history.Store
	now              func() time.Time
	newID            func() string
	scheduleDelay    time.Duration
	quoteConcurrency int
}

// Option configures a Studio.
type Option func(*Studio)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Studio) { s.now = now }
}

// WithIDGenerator overrides UUID generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Studio) { s.newID = newID }
}

// WithScheduleDelay sets the simulated posting delay. Zero disables it.
func WithScheduleDelay(d time.Duration) Option {
	return func(s *Studio) { s.scheduleDelay = d }
}

// WithQuoteConcurrency bounds parallel quote generation.
func WithQuoteConcurrency(n int) Option {
	return func(s *Studio) {
		if n > 0 {
			s.quoteConcurrency = n
		}
	}
}

// New creates a Studio.
func New(wrapper Wrapper, store *history.Store, opts ...Option) *Studio {
	s := &Studio{
		wrapper:          wrapper,
		store:            store,
		now:              time.Now,
		newID:            uuid.NewString,
		scheduleDelay:    DefaultScheduleDelay,
		quoteConcurrency: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying history store.
func (s *Studio) Store() *history.Store {
	return s.store
}

// CreateFromImage validates an uploaded image, writes a poem for it and
// records the result.
func (s *Studio) CreateFromImage(ctx context.Context, dataURI, fileName string) (history.Record, error) {
	img, err := media.ParseDataURI(dataURI)
	if err != nil {
		return history.Record{}, err
	}
	if err := media.ValidateUpload(img); err != nil {
		return history.Record{}, err
	}

	res, err := s.wrapper.GeneratePoem(ctx, generation.PoemRequest{ImageDataURI: dataURI})
	if err != nil {
		logging.AuditFailure(logging.AuditGenerationFailed, "", err)
		return history.Record{}, err
	}

	if fileName == "" {
		fileName = "uploaded-photo"
	}
	rec := history.Record{
		ID:            s.newID(),
		Image:         dataURI,
		ImageFileName: fileName,
		PoemText:      res.Poem,
		Caption:       res.Poem,
		Hashtags:      []string{},
		CreatedAt:     s.now(),
		Quotes:        []history.Quote{},
	}
	s.store.Save(ctx, rec)
	logging.Studio("Created record %s from %s", rec.ID, fileName)
	logging.AuditOK(logging.AuditPoemCreated, rec.ID, "")
	return rec, nil
}

// RegeneratePoem writes a fresh poem for an existing record's image.
func (s *Studio) RegeneratePoem(ctx context.Context, id string) (history.Record, error) {
	rec, err := s.get(id)
	if err != nil {
		return history.Record{}, err
	}
	if !rec.HasImage() {
		logging.StudioWarn("Cannot regenerate %s: image no longer held", id)
		return history.Record{}, media.Invalid("image", "the image for this record is no longer available")
	}

	res, err := s.wrapper.GeneratePoem(ctx, generation.PoemRequest{ImageDataURI: rec.Image})
	if err != nil {
		logging.AuditFailure(logging.AuditGenerationFailed, id, err)
		return history.Record{}, err
	}
	rec, ok := s.store.Update(ctx, id, func(r *history.Record) { setPoem(r, res.Poem) })
	if !ok {
		return history.Record{}, notFound("record", id)
	}
	logging.StudioDebug("Regenerated poem for %s", id)
	logging.AuditOK(logging.AuditPoemRegenerated, id, "")
	return rec, nil
}

// EditPoem replaces the poem text. The caption follows the poem while it
// still equals the previous poem text.
func (s *Studio) EditPoem(ctx context.Context, id, text string) (history.Record, error) {
	if strings.TrimSpace(text) == "" {
		return history.Record{}, media.Invalid("poemText", "poem cannot be empty")
	}
	changed := false
	rec, ok := s.store.Update(ctx, id, func(r *history.Record) {
		changed = r.PoemText != text
		setPoem(r, text)
	})
	if !ok {
		return history.Record{}, notFound("record", id)
	}
	if changed {
		logging.AuditOK(logging.AuditPoemEdited, id, "")
	}
	return rec, nil
}

// ApplyTranslation makes a translated poem the record's poem.
func (s *Studio) ApplyTranslation(ctx context.Context, id, translated string) (history.Record, error) {
	return s.EditPoem(ctx, id, translated)
}

// SetCaption replaces the caption.
func (s *Studio) SetCaption(ctx context.Context, id, caption string) (history.Record, error) {
	rec, ok := s.store.Update(ctx, id, func(r *history.Record) { r.Caption = caption })
	if !ok {
		return history.Record{}, notFound("record", id)
	}
	return rec, nil
}

// TranslatePoem returns a translation of the poem without storing it.
func (s *Studio) TranslatePoem(ctx context.Context, id, language string) (string, error) {
	rec, err := s.get(id)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(rec.PoemText) == "" || strings.TrimSpace(language) == "" {
		return "", media.Invalid("targetLanguage", "please ensure your poem is not empty and select a target language")
	}
	res, err := s.wrapper.TranslateText(ctx, generation.TranslateRequest{Text: rec.PoemText, TargetLanguage: language})
	if err != nil {
		logging.AuditFailure(logging.AuditGenerationFailed, id, err)
		return "", err
	}
	logging.Audit(logging.AuditEvent{
		EventType: logging.AuditPoemTranslated,
		RecordID:  id,
		Success:   true,
		Fields:    map[string]interface{}{"language": language},
	})
	return res.TranslatedText, nil
}

// GenerateQuote derives one quote for emotion and stores it on the record.
func (s *Studio) GenerateQuote(ctx context.Context, id, emotion string) (history.Quote, error) {
	if strings.TrimSpace(emotion) == "" {
		return history.Quote{}, media.Invalid("emotion", "please select an emotion first")
	}
	rec, err := s.get(id)
	if err != nil {
		return history.Quote{}, err
	}

	q, err := s.newQuote(ctx, rec.PoemText, emotion)
	if err != nil {
		logging.AuditFailure(logging.AuditGenerationFailed, id, err)
		return history.Quote{}, err
	}
	s.store.SaveQuote(ctx, id, q)
	logging.Studio("Generated %s quote %s for %s", emotion, q.ID, id)
	logging.AuditOK(logging.AuditQuoteCreated, id, q.ID)
	return q, nil
}

// GenerateQuotes derives one quote per emotion concurrently. Quotes are
// stored in request order once all succeed; the first failure cancels
// the rest and nothing is stored.
func (s *Studio) GenerateQuotes(ctx context.Context, id string, emotions []string) ([]history.Quote, error) {
	if len(emotions) == 0 {
		return nil, media.Invalid("emotion", "please select an emotion first")
	}
	for _, e := range emotions {
		if strings.TrimSpace(e) == "" {
			return nil, media.Invalid("emotion", "emotion cannot be empty")
		}
	}
	rec, err := s.get(id)
	if err != nil {
		return nil, err
	}

	quotes := make([]history.Quote, len(emotions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.quoteConcurrency)
	for i, emotion := range emotions {
		g.Go(func() error {
			q, err := s.newQuote(gctx, rec.PoemText, emotion)
			if err != nil {
				return err
			}
			quotes[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logging.AuditFailure(logging.AuditGenerationFailed, id, err)
		return nil, err
	}

	for _, q := range quotes {
		s.store.SaveQuote(ctx, id, q)
		logging.AuditOK(logging.AuditQuoteCreated, id, q.ID)
	}
	logging.Studio("Generated %d quotes for %s", len(quotes), id)
	return quotes, nil
}

func (s *Studio) newQuote(ctx context.Context, poem, emotion string) (history.Quote, error) {
	res, err := s.wrapper.GenerateQuote(ctx, generation.QuoteRequest{PoemText: poem, Emotion: emotion})
	if err != nil {
		return history.Quote{}, err
	}
	return history.Quote{
		ID:            s.newID(),
		SourceEmotion: emotion,
		Text:          res.Quote,
		CreatedAt:     s.now(),
	}, nil
}

// EditQuote replaces a quote's text. A stale translation is cleared.
func (s *Studio) EditQuote(ctx context.Context, id, quoteID, text string) (history.Quote, error) {
	if strings.TrimSpace(text) == "" {
		return history.Quote{}, media.Invalid("text", "quote cannot be empty")
	}
	q, err := s.updateQuote(ctx, id, quoteID, func(cur *history.Quote) {
		if cur.Text != text {
			cur.Text = text
			cur.TranslatedText = ""
			cur.TranslatedLanguage = ""
		}
	})
	if err != nil {
		return history.Quote{}, err
	}
	logging.AuditOK(logging.AuditQuoteEdited, id, quoteID)
	return q, nil
}

// TranslateQuote translates a quote and keeps the result in its translation slot.
func (s *Studio) TranslateQuote(ctx context.Context, id, quoteID, language string) (history.Quote, error) {
	if strings.TrimSpace(language) == "" {
		return history.Quote{}, media.Invalid("targetLanguage", "please select a target language")
	}
	q, err := s.getQuote(id, quoteID)
	if err != nil {
		return history.Quote{}, err
	}

	res, err := s.wrapper.TranslateText(ctx, generation.TranslateRequest{Text: q.Text, TargetLanguage: language})
	if err != nil {
		logging.AuditFailure(logging.AuditGenerationFailed, id, err)
		return history.Quote{}, err
	}
	q, err = s.updateQuote(ctx, id, quoteID, func(cur *history.Quote) {
		cur.TranslatedText = res.TranslatedText
		cur.TranslatedLanguage = language
	})
	if err != nil {
		return history.Quote{}, err
	}
	logging.AuditOK(logging.AuditQuoteTranslated, id, quoteID)
	return q, nil
}

// DeleteQuote removes a quote from its record.
func (s *Studio) DeleteQuote(ctx context.Context, id, quoteID string) error {
	if _, err := s.getQuote(id, quoteID); err != nil {
		return err
	}
	s.store.DeleteQuote(ctx, id, quoteID)
	logging.AuditOK(logging.AuditQuoteDeleted, id, quoteID)
	return nil
}

// Delete removes a record.
func (s *Studio) Delete(ctx context.Context, id string) error {
	if !s.store.Delete(ctx, id) {
		return notFound("record", id)
	}
	logging.Studio("Deleted record %s", id)
	logging.AuditOK(logging.AuditRecordDeleted, id, "")
	return nil
}

// Get returns a record.
func (s *Studio) Get(id string) (history.Record, error) {
	return s.get(id)
}

func (s *Studio) get(id string) (history.Record, error) {
	rec, ok := s.store.Get(id)
	if !ok {
		return history.Record{}, notFound("record", id)
	}
	return rec, nil
}

func (s *Studio) getQuote(id, quoteID string) (history.Quote, error) {
	rec, err := s.get(id)
	if err != nil {
		return history.Quote{}, err
	}
	q, ok := rec.Quote(quoteID)
	if !ok {
		return history.Quote{}, notFound("quote", quoteID)
	}
	return q, nil
}

// updateQuote mutates a quote in place under the store lock.
func (s *Studio) updateQuote(ctx context.Context, id, quoteID string, fn func(*history.Quote)) (history.Quote, error) {
	q, ok := s.store.UpdateQuote(ctx, id, quoteID, fn)
	if ok {
		return q, nil
	}
	if _, err := s.get(id); err != nil {
		return history.Quote{}, err
	}
	return history.Quote{}, notFound("quote", quoteID)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

func setPoem(rec *history.Record, poem string) {
	if rec.Caption == "" || rec.Caption == rec.PoemText {
		rec.Caption = poem
	}
	rec.PoemText = poem
}
