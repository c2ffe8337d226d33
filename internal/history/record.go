package history

import "time"

// Record is one photo + poem + derived quotes + scheduling unit.
type Record struct {
	ID            string     `json:"id"`
	Image         string     `json:"image,omitempty"` // data URI; empty once evicted from storage
	ImageFileName string     `json:"imageFileName,omitempty"`
	PoemText      string     `json:"poemText"`
	Caption       string     `json:"caption"`
	Hashtags      []string   `json:"hashtags"`
	CreatedAt     time.Time  `json:"createdAt"`
	ScheduledAt   *time.Time `json:"scheduledAt,omitempty"`
	Quotes        []Quote    `json:"quotes"`
}

// Quote is a short excerpt derived from a record's poem.
type Quote struct {
	ID                 string    `json:"id"`
	SourceEmotion      string    `json:"sourceEmotion"`
	Text               string    `json:"text"`
	TranslatedText     string    `json:"translatedText,omitempty"`
	TranslatedLanguage string    `json:"translatedLanguage,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// IsScheduled reports whether a post time has been chosen.
// A time in the past still counts; scheduling never expires.
func (r Record) IsScheduled() bool {
	return r.ScheduledAt != nil
}

// HasImage reports whether the image payload is present.
func (r Record) HasImage() bool {
	return r.Image != ""
}

// Quote returns the quote with the given id.
func (r Record) Quote(id string) (Quote, bool) {
	for _, q := range r.Quotes {
		if q.ID == id {
			return q, true
		}
	}
	return Quote{}, false
}

// Clone returns a deep copy so callers never alias store state.
func (r Record) Clone() Record {
	out := r
	if r.Hashtags != nil {
		out.Hashtags = make([]string, len(r.Hashtags))
		copy(out.Hashtags, r.Hashtags)
	}
	if r.Quotes != nil {
		out.Quotes = make([]Quote, len(r.Quotes))
		copy(out.Quotes, r.Quotes)
	}
	if r.ScheduledAt != nil {
		at := *r.ScheduledAt
		out.ScheduledAt = &at
	}
	return out
}

// WithoutImage returns a copy with the binary payload stripped.
func (r Record) WithoutImage() Record {
	out := r.Clone()
	out.Image = ""
	return out
}

// UpsertQuote replaces the quote with the same id in place, or prepends it.
func (r Record) UpsertQuote(q Quote) Record {
	out := r.Clone()
	for i := range out.Quotes {
		if out.Quotes[i].ID == q.ID {
			out.Quotes[i] = q
			return out
		}
	}
	out.Quotes = append([]Quote{q}, out.Quotes...)
	return out
}

// normalize fills defaults for fields that older records may lack.
func (r *Record) normalize() {
	if r.Caption == "" {
		r.Caption = r.PoemText
	}
	if r.Hashtags == nil {
		r.Hashtags = []string{}
	}
	if r.Quotes == nil {
		r.Quotes = []Quote{}
	}
}
