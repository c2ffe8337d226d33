package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// CurrentVersion is the envelope version written by this package.
//
//	1: bare JSON array, legacy field names (photoDataUri, poem, emotion)
//	2: {"version": 2, "records": [...]}
const CurrentVersion = 2

type envelope struct {
	Version int             `json:"version"`
	Records json.RawMessage `json:"records"`
}

type legacyQuote struct {
	ID                 string `json:"id"`
	Emotion            string `json:"emotion"`
	Text               string `json:"text"`
	TranslatedText     string `json:"translatedText"`
	TranslatedLanguage string `json:"translatedLanguage"`
}

type legacyRecord struct {
	ID            string        `json:"id"`
	PhotoDataURI  string        `json:"photoDataUri"`
	PhotoFileName string        `json:"photoFileName"`
	Poem          string        `json:"poem"`
	Caption       string        `json:"caption"`
	Hashtags      []string      `json:"hashtags"`
	CreatedAt     string        `json:"createdAt"`
	ScheduledAt   string        `json:"scheduledAt"`
	Quotes        []legacyQuote `json:"quotes"`
}

// Encode serializes records into the current envelope.
func Encode(records []Record) ([]byte, error) {
	body, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: CurrentVersion, Records: body})
}

// Migrate decodes any known persisted layout into normalized records.
// Records without an id are dropped.
func Migrate(raw []byte) ([]Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []Record{}, nil
	}

	var records []Record
	switch raw[0] {
	case '[':
		legacy, err := decodeLegacy(raw)
		if err != nil {
			return nil, err
		}
		records = legacy
	case '{':
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		switch {
		case env.Version > CurrentVersion:
			return nil, fmt.Errorf("unsupported history version %d (newest known %d)", env.Version, CurrentVersion)
		case env.Version == 1:
			legacy, err := decodeLegacy(env.Records)
			if err != nil {
				return nil, err
			}
			records = legacy
		case env.Version == CurrentVersion:
			if len(env.Records) > 0 {
				if err := json.Unmarshal(env.Records, &records); err != nil {
					return nil, fmt.Errorf("decode records: %w", err)
				}
			}
		default:
			return nil, fmt.Errorf("invalid history version %d", env.Version)
		}
	default:
		return nil, fmt.Errorf("unrecognized history layout")
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		r.normalize()
		out = append(out, r)
	}
	return out, nil
}

func decodeLegacy(raw []byte) ([]Record, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var items []legacyRecord
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode legacy history: %w", err)
	}

	out := make([]Record, 0, len(items))
	for _, it := range items {
		r := Record{
			ID:            it.ID,
			Image:         it.PhotoDataURI,
			ImageFileName: it.PhotoFileName,
			PoemText:      it.Poem,
			Caption:       it.Caption,
			Hashtags:      it.Hashtags,
			CreatedAt:     parseTimestamp(it.CreatedAt),
		}
		if it.ScheduledAt != "" {
			if at := parseTimestamp(it.ScheduledAt); !at.IsZero() {
				r.ScheduledAt = &at
			}
		}
		for _, q := range it.Quotes {
			r.Quotes = append(r.Quotes, Quote{
				ID:                 q.ID,
				SourceEmotion:      q.Emotion,
				Text:               q.Text,
				TranslatedText:     q.TranslatedText,
				TranslatedLanguage: q.TranslatedLanguage,
			})
		}
		out = append(out, r)
	}
	return out, nil
}

// parseTimestamp accepts ISO-8601 strings; anything unparseable becomes the zero time.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
