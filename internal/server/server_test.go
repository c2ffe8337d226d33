package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"instapoem/internal/generation"
	"instapoem/internal/history"
	"instapoem/internal/media"
	"instapoem/internal/studio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	now    = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	pngURI = media.EncodeDataURI("image/png", []byte("\x89PNG\r\n\x1a\nbytes"))
)

type stubWrapper struct {
	fail error
}

func (w *stubWrapper) GeneratePoem(ctx context.Context, req generation.PoemRequest) (generation.PoemResult, error) {
	if w.fail != nil {
		return generation.PoemResult{}, w.fail
	}
	return generation.PoemResult{Poem: "salt wind\nover stone"}, nil
}

func (w *stubWrapper) GenerateQuote(ctx context.Context, req generation.QuoteRequest) (generation.QuoteResult, error) {
	if w.fail != nil {
		return generation.QuoteResult{}, w.fail
	}
	return generation.QuoteResult{Quote: req.Emotion + ": over stone"}, nil
}

func (w *stubWrapper) TranslateText(ctx context.Context, req generation.TranslateRequest) (generation.TranslateResult, error) {
	if w.fail != nil {
		return generation.TranslateResult{}, w.fail
	}
	return generation.TranslateResult{TranslatedText: req.TargetLanguage + "(" + req.Text + ")"}, nil
}

func newTestServer(t *testing.T, w studio.Wrapper) *httptest.Server {
	t.Helper()
	store := history.New(history.NewMemoryBackend(0))
	st := studio.New(w, store,
		studio.WithClock(func() time.Time { return now }),
		studio.WithScheduleDelay(0),
	)
	ts := httptest.NewServer(New(st, Options{}).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func createRecord(t *testing.T, ts *httptest.Server) history.Record {
	t.Helper()
	resp, body := do(t, http.MethodPost, ts.URL+"/api/records", map[string]string{"image": pngURI, "fileName": "cliff.png"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var rec history.Record
	require.NoError(t, json.Unmarshal(body, &rec))
	return rec
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var eb errorBody
	require.NoError(t, json.Unmarshal(body, &eb))
	return eb.Error.Code
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &stubWrapper{})
	resp, body := do(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestRecordLifecycle(t *testing.T) {
	ts := newTestServer(t, &stubWrapper{})
	rec := createRecord(t, ts)
	assert.Equal(t, "salt wind\nover stone", rec.PoemText)
	assert.Equal(t, pngURI, rec.Image)

	resp, body := do(t, http.MethodGet, ts.URL+"/api/records", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []history.Record
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Image, "listing omits images by default")

	resp, body = do(t, http.MethodPut, ts.URL+"/api/records/"+rec.ID+"/poem", map[string]string{"poemText": "new words"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = do(t, http.MethodPut, ts.URL+"/api/records/"+rec.ID+"/caption", map[string]string{"caption": "cliffside"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = do(t, http.MethodGet, ts.URL+"/api/records/"+rec.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got history.Record
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "new words", got.PoemText)
	assert.Equal(t, "cliffside", got.Caption)
	assert.Equal(t, pngURI, got.Image)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/api/records/"+rec.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, http.MethodGet, ts.URL+"/api/records/"+rec.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, CodeNotFound, errorCode(t, body))
}

func TestCreateRecord_Invalid(t *testing.T) {
	ts := newTestServer(t, &stubWrapper{})

	resp, body := do(t, http.MethodPost, ts.URL+"/api/records", map[string]string{"image": "data:text/plain;base64,aGk="})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeValidation, errorCode(t, body))

	resp, body = do(t, http.MethodPost, ts.URL+"/api/records", map[string]string{"unknown": "field"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeValidation, errorCode(t, body))
}

func TestGenerationFailureIs502(t *testing.T) {
	fail := &generation.GenerationError{Op: generation.OpPoem, Kind: generation.KindModel, Err: errors.New("quota exhausted")}
	ts := newTestServer(t, &stubWrapper{fail: fail})

	resp, body := do(t, http.MethodPost, ts.URL+"/api/records", map[string]string{"image": pngURI})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, CodeGeneration, errorCode(t, body))
	assert.Contains(t, string(body), "quota exhausted")
}

func TestTranslate(t *testing.T) {
	ts := newTestServer(t, &stubWrapper{})
	rec := createRecord(t, ts)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/records/"+rec.ID+"/translate", map[string]any{"language": "French"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var tr translateResponse
	require.NoError(t, json.Unmarshal(body, &tr))
	assert.Equal(t, "French(salt wind\nover stone)", tr.TranslatedText)
	assert.Nil(t, tr.Record)

	resp, body = do(t, http.MethodPost, ts.URL+"/api/records/"+rec.ID+"/translate", map[string]any{"language": "French", "apply": true})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &tr))
	require.NotNil(t, tr.Record)
	assert.Equal(t, tr.TranslatedText, tr.Record.PoemText)
}

func TestQuotes(t *testing.T) {
	ts := newTestServer(t, &stubWrapper{})
	rec := createRecord(t, ts)
	base := ts.URL + "/api/records/" + rec.ID + "/quotes"

	resp, body := do(t, http.MethodPost, base, map[string]any{"emotion": "Hope"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = do(t, http.MethodPost, base, map[string]any{"emotions": []string{"Love", "Anger"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out struct {
		Quotes []history.Quote `json:"quotes"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Quotes, 2)

	qid := out.Quotes[0].ID
	resp, body = do(t, http.MethodPut, base+"/"+qid, map[string]string{"text": "edited"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = do(t, http.MethodPost, base+"/"+qid+"/translate", map[string]string{"language": "Hindi"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var q history.Quote
	require.NoError(t, json.Unmarshal(body, &q))
	assert.Equal(t, "Hindi(edited)", q.TranslatedText)

	resp, _ = do(t, http.MethodDelete, base+"/"+qid, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, http.MethodPost, base, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeValidation, errorCode(t, body))

	_, body = do(t, http.MethodGet, ts.URL+"/api/records/"+rec.ID, nil)
	var got history.Record
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Len(t, got.Quotes, 2)
}

func TestSchedule(t *testing.T) {
	ts := newTestServer(t, &stubWrapper{})
	rec := createRecord(t, ts)
	url := ts.URL + "/api/records/" + rec.ID + "/schedule"

	resp, body := do(t, http.MethodPost, url, map[string]string{"scheduledAt": now.Add(-time.Hour).Format(time.RFC3339)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeValidation, errorCode(t, body))

	resp, _ = do(t, http.MethodPost, url, map[string]string{"scheduledAt": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	at := now.Add(2 * time.Hour)
	resp, body = do(t, http.MethodPost, url, map[string]string{"scheduledAt": at.Format(time.RFC3339), "hashtags": "sea, stone"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var got history.Record
	require.NoError(t, json.Unmarshal(body, &got))
	require.NotNil(t, got.ScheduledAt)
	assert.True(t, at.Equal(*got.ScheduledAt))
	assert.Equal(t, []string{"sea", "stone"}, got.Hashtags)

	resp, body = do(t, http.MethodGet, ts.URL+"/api/schedule", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []history.Record
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)

	resp, _ = do(t, http.MethodDelete, url, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, body = do(t, http.MethodGet, ts.URL+"/api/schedule", nil)
	assert.JSONEq(t, "[]", string(body))
}

func TestCatalogs(t *testing.T) {
	ts := newTestServer(t, &stubWrapper{})

	_, body := do(t, http.MethodGet, ts.URL+"/api/emotions", nil)
	var emotions []emotionInfo
	require.NoError(t, json.Unmarshal(body, &emotions))
	require.Len(t, emotions, len(generation.Emotions))
	assert.Equal(t, "Love", emotions[0].Name)
	assert.NotEmpty(t, emotions[0].Theme.Color)

	_, body = do(t, http.MethodGet, ts.URL+"/api/languages", nil)
	var langs []string
	require.NoError(t, json.Unmarshal(body, &langs))
	assert.Contains(t, langs, "Japanese")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubWrapper{})
	do(t, http.MethodGet, ts.URL+"/api/records/missing", nil)

	resp, body := do(t, http.MethodGet, ts.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.Contains(t, text, "instapoem_http_requests_total")
	assert.Contains(t, text, `status="404"`)
	assert.False(t, strings.Contains(text, "/api/records/missing"), "ids must not become labels")
}

// leakIgnores lists goroutines that outlive any single test. The opencensus
// view worker is started by an init in the model client's dependency tree.
var leakIgnores = []goleak.Option{
	goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
}

func TestServe_GracefulShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, leakIgnores...)

	store := history.New(history.NewMemoryBackend(0))
	srv := New(studio.New(&stubWrapper{}, store), Options{ShutdownTimeout: time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
