package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"instapoem/internal/card"
	"instapoem/internal/generation"
	"instapoem/internal/history"
	"instapoem/internal/logging"
	"instapoem/internal/media"
	"instapoem/internal/studio"

	"github.com/go-chi/chi/v5"
)

// Error codes in JSON error bodies.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeGeneration = "GENERATION_FAILED"
	CodeCanceled   = "REQUEST_CANCELED"
	CodeInternal   = "INTERNAL_ERROR"
)

// a 10MiB image grows by a third in base64
const maxBodyBytes = 16 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeFailure maps workflow errors onto HTTP statuses.
// Validation is checked first: invalid generation input wraps a validation error.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrValidation):
		writeError(w, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, studio.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, generation.ErrGeneration):
		writeError(w, http.StatusBadGateway, CodeGeneration, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, CodeCanceled, err.Error())
	default:
		logging.ServerError("Unhandled error: %v", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"records": s.studio.Store().Len(),
	})
}

type emotionInfo struct {
	Name    string     `json:"name"`
	Style   string     `json:"style"`
	Length  string     `json:"length"`
	Example string     `json:"example"`
	Theme   card.Theme `json:"theme"`
}

func (s *Server) listEmotions(w http.ResponseWriter, _ *http.Request) {
	out := make([]emotionInfo, 0, len(generation.Emotions))
	for _, name := range generation.Emotions {
		style, _ := generation.ResolveEmotion(name)
		out = append(out, emotionInfo{
			Name:    name,
			Style:   style.Style,
			Length:  style.Length,
			Example: style.Example,
			Theme:   card.EmotionTheme(name),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, generation.Languages)
}

// listRecords omits image payloads unless ?images=true.
func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	withImages := r.URL.Query().Get("images") == "true"
	records := s.studio.Store().List()
	if !withImages {
		for i := range records {
			records[i].Image = ""
		}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) listScheduled(w http.ResponseWriter, _ *http.Request) {
	records := s.studio.Scheduled()
	if records == nil {
		records = []history.Record{}
	}
	for i := range records {
		records[i].Image = ""
	}
	writeJSON(w, http.StatusOK, records)
}

type createRecordRequest struct {
	Image    string `json:"image"`
	FileName string `json:"fileName"`
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := s.studio.CreateFromImage(r.Context(), req.Image, req.FileName)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.studio.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) regeneratePoem(w http.ResponseWriter, r *http.Request) {
	rec, err := s.studio.RegeneratePoem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type poemRequest struct {
	PoemText string `json:"poemText"`
}

func (s *Server) editPoem(w http.ResponseWriter, r *http.Request) {
	var req poemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := s.studio.EditPoem(r.Context(), chi.URLParam(r, "id"), req.PoemText)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type captionRequest struct {
	Caption string `json:"caption"`
}

func (s *Server) setCaption(w http.ResponseWriter, r *http.Request) {
	var req captionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := s.studio.SetCaption(r.Context(), chi.URLParam(r, "id"), req.Caption)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type translateRequest struct {
	Language string `json:"language"`
	// Apply replaces the poem with the translation.
	Apply bool `json:"apply,omitempty"`
}

type translateResponse struct {
	TranslatedText string          `json:"translatedText"`
	Record         *history.Record `json:"record,omitempty"`
}

func (s *Server) translatePoem(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	text, err := s.studio.TranslatePoem(r.Context(), id, req.Language)
	if err != nil {
		writeFailure(w, err)
		return
	}
	resp := translateResponse{TranslatedText: text}
	if req.Apply {
		rec, err := s.studio.ApplyTranslation(r.Context(), id, text)
		if err != nil {
			writeFailure(w, err)
			return
		}
		resp.Record = &rec
	}
	writeJSON(w, http.StatusOK, resp)
}

type quotesRequest struct {
	Emotion  string   `json:"emotion,omitempty"`
	Emotions []string `json:"emotions,omitempty"`
}

func (s *Server) generateQuotes(w http.ResponseWriter, r *http.Request) {
	var req quotesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	emotions := req.Emotions
	if req.Emotion != "" {
		emotions = append([]string{req.Emotion}, emotions...)
	}

	id := chi.URLParam(r, "id")
	var (
		quotes []history.Quote
		err    error
	)
	if len(emotions) == 1 {
		var q history.Quote
		q, err = s.studio.GenerateQuote(r.Context(), id, emotions[0])
		quotes = []history.Quote{q}
	} else {
		quotes, err = s.studio.GenerateQuotes(r.Context(), id, emotions)
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"quotes": quotes})
}

type quoteTextRequest struct {
	Text string `json:"text"`
}

func (s *Server) editQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteTextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	q, err := s.studio.EditQuote(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "quoteID"), req.Text)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) deleteQuote(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.DeleteQuote(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "quoteID")); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) translateQuote(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	q, err := s.studio.TranslateQuote(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "quoteID"), req.Language)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type scheduleRequest struct {
	ScheduledAt string `json:"scheduledAt"` // RFC 3339
	Hashtags    string `json:"hashtags"`    // comma-separated
	Caption     string `json:"caption,omitempty"`
}

func (s *Server) schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	at, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "scheduledAt must be an RFC 3339 timestamp")
		return
	}
	rec, err := s.studio.Schedule(r.Context(), chi.URLParam(r, "id"), studio.ScheduleRequest{
		At:       at,
		Hashtags: req.Hashtags,
		Caption:  req.Caption,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) unschedule(w http.ResponseWriter, r *http.Request) {
	rec, err := s.studio.Unschedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
