package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kovanov/redline/internal/check"
	"github.com/kovanov/redline/internal/match"
	"github.com/kovanov/redline/internal/storage"
)

// --- mocks ---

type fakeSession struct {
	language  string
	matches   []match.Match
	checkErr  error
	corrected string
	langs     []check.Language
	langsErr  error
}

func (f *fakeSession) Check(_ context.Context, text string) ([]match.Match, error) {
	return f.matches, f.checkErr
}

func (f *fakeSession) Correct(_ context.Context, text string) (string, error) {
	if f.checkErr != nil {
		return "", f.checkErr
	}
	return f.corrected, nil
}

func (f *fakeSession) Languages(_ context.Context) ([]check.Language, error) {
	return f.langs, f.langsErr
}

func (f *fakeSession) Language() string { return f.language }

func (f *fakeSession) SetLanguage(_ context.Context, tag string) error {
	f.language = tag
	return nil
}

// --- helpers ---

func newTestHandler(t *testing.T, sess Checker) (http.Handler, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewHandler(Deps{Session: sess, Store: store, Version: "test"}), store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func createDocument(t *testing.T, h http.Handler, title, content string) storage.Document {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/documents", documentRequest{Title: title, Content: content})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create document: status %d: %s", rec.Code, rec.Body.String())
	}
	var doc storage.Document
	decodeInto(t, rec, &doc)
	return doc
}

// --- tests ---

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, &fakeSession{language: "en-US"})
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body map[string]string
	decodeInto(t, rec, &body)
	if body["status"] != "ok" || body["language"] != "en-US" {
		t.Errorf("body = %v", body)
	}
}

func TestCheckEndpoint(t *testing.T) {
	sess := &fakeSession{
		language: "en-US",
		matches: []match.Match{{
			RuleID: "MORFOLOGIK_RULE_EN_US", Message: "Possible typo",
			Offset: 6, ErrorLength: 3, Replacements: []string{"the"},
			Category: "TYPOS",
		}},
	}
	h, _ := newTestHandler(t, sess)

	rec := doJSON(t, h, http.MethodPost, "/check", checkRequest{Text: "I saw teh cat."})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp checkResponse
	decodeInto(t, rec, &resp)
	if resp.Count != 1 || len(resp.Matches) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Matches[0].RuleID != "MORFOLOGIK_RULE_EN_US" || resp.Matches[0].Offset != 6 {
		t.Errorf("match = %+v", resp.Matches[0])
	}
}

func TestCheckRejectsEmptyText(t *testing.T) {
	h, _ := newTestHandler(t, &fakeSession{})
	rec := doJSON(t, h, http.MethodPost, "/check", checkRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
}

func TestCheckRateLimitPassthrough(t *testing.T) {
	sess := &fakeSession{checkErr: &check.RateLimitError{Message: "slow down"}}
	h, _ := newTestHandler(t, sess)
	rec := doJSON(t, h, http.MethodPost, "/check", checkRequest{Text: "text"})
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status %d, want 429", rec.Code)
	}
}

func TestCheckEngineErrorIsBadGateway(t *testing.T) {
	sess := &fakeSession{checkErr: &check.LanguageToolError{StatusCode: 400, Message: "text too long"}}
	h, _ := newTestHandler(t, sess)
	rec := doJSON(t, h, http.MethodPost, "/check", checkRequest{Text: "text"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "text too long") {
		t.Errorf("engine message lost: %s", rec.Body.String())
	}
}

func TestCorrectEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, &fakeSession{corrected: "I saw the cat."})
	rec := doJSON(t, h, http.MethodPost, "/correct", checkRequest{Text: "I saw teh cat."})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body map[string]string
	decodeInto(t, rec, &body)
	if body["corrected"] != "I saw the cat." {
		t.Errorf("corrected = %q", body["corrected"])
	}
}

func TestLanguagesEndpoint(t *testing.T) {
	sess := &fakeSession{langs: []check.Language{{Name: "English (US)", Code: "en", LongCode: "en-US"}}}
	h, _ := newTestHandler(t, sess)
	rec := doJSON(t, h, http.MethodGet, "/languages", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var langs []check.Language
	decodeInto(t, rec, &langs)
	if len(langs) != 1 || langs[0].LongCode != "en-US" {
		t.Errorf("langs = %+v", langs)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	h, _ := newTestHandler(t, &fakeSession{language: "en-US"})

	doc := createDocument(t, h, "Draft", "Soem text.")
	if doc.ID == "" || doc.Title != "Draft" {
		t.Fatalf("created doc = %+v", doc)
	}

	rec := doJSON(t, h, http.MethodGet, "/documents/"+doc.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPut, "/documents/"+doc.ID,
		documentRequest{Title: "Final", Content: "Some text."})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d: %s", rec.Code, rec.Body.String())
	}
	var updated storage.Document
	decodeInto(t, rec, &updated)
	if updated.Title != "Final" || updated.Content != "Some text." {
		t.Errorf("updated = %+v", updated)
	}

	rec = doJSON(t, h, http.MethodGet, "/documents", nil)
	var docs []storage.Document
	decodeInto(t, rec, &docs)
	if len(docs) != 1 {
		t.Errorf("list = %+v", docs)
	}

	rec = doJSON(t, h, http.MethodDelete, "/documents/"+doc.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/documents/"+doc.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status %d", rec.Code)
	}
}

func TestDocumentNotFound(t *testing.T) {
	h, _ := newTestHandler(t, &fakeSession{})
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/documents/missing"},
		{http.MethodDelete, "/documents/missing"},
		{http.MethodPost, "/documents/missing/check"},
		{http.MethodGet, "/documents/missing/checks"},
	} {
		var body any
		if tc.method == http.MethodPost {
			body = map[string]string{}
		}
		rec := doJSON(t, h, tc.method, tc.path, body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status %d, want 404", tc.method, tc.path, rec.Code)
		}
	}
}

func TestCheckDocumentPersistsHistory(t *testing.T) {
	sess := &fakeSession{
		language: "en-US",
		matches:  []match.Match{{RuleID: "X", Offset: 0, ErrorLength: 4}},
	}
	h, store := newTestHandler(t, sess)
	doc := createDocument(t, h, "Tracked", "Soem text.")

	rec := doJSON(t, h, http.MethodPost, "/documents/"+doc.ID+"/check", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("check: status %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		MatchCount int           `json:"matchCount"`
		Matches    []match.Match `json:"matches"`
	}
	decodeInto(t, rec, &result)
	if result.MatchCount != 1 || len(result.Matches) != 1 {
		t.Errorf("result = %+v", result)
	}

	checks, err := store.ListChecks(doc.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(checks) != 1 || checks[0].MatchCount != 1 || checks[0].Language != "en-US" {
		t.Errorf("stored checks = %+v", checks)
	}

	rec = doJSON(t, h, http.MethodGet, "/documents/"+doc.ID+"/checks", nil)
	var history []storage.CheckRecord
	decodeInto(t, rec, &history)
	if len(history) != 1 {
		t.Errorf("history = %+v", history)
	}
}

func TestBearerAuth(t *testing.T) {
	h := NewHandler(Deps{Session: &fakeSession{}, Token: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid token: status %d, want 200", rec.Code)
	}
}

func TestWordLookupEndpoint(t *testing.T) {
	words := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("rel_syn") != "" {
			fmt.Fprint(w, `[{"word":"error"},{"word":"fault"}]`)
			return
		}
		fmt.Fprint(w, `[{"word":"mistake","defs":["n\ta wrong action"]}]`)
	}))
	defer words.Close()

	h := NewHandler(Deps{
		Session: &fakeSession{},
		Words:   NewWordsClient(words.URL),
	})
	rec := doJSON(t, h, http.MethodGet, "/words/mistake", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var info WordInfo
	decodeInto(t, rec, &info)
	if len(info.Synonyms) != 2 || info.Synonyms[0] != "error" {
		t.Errorf("synonyms = %v", info.Synonyms)
	}
	if len(info.Definitions) != 1 || info.Definitions[0] != "a wrong action" {
		t.Errorf("definitions = %v", info.Definitions)
	}
}
