package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testDocument(title string) Document {
	now := time.Now().UTC().Truncate(time.Second)
	return Document{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   "Some text worth checking.",
		Language:  "en-US",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOpenRunsMigrations(t *testing.T) {
	s := openTestStore(t)
	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) == 0 || versions[0] != 1 {
		t.Errorf("versions = %v, want [1 ...]", versions)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	s := openTestStore(t)
	doc := testDocument("First draft")
	if err := s.SaveDocument(doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	got, err := s.GetDocument(doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Title != doc.Title || got.Content != doc.Content || got.Language != doc.Language {
		t.Errorf("got %+v, want %+v", got, doc)
	}
	if !got.CreatedAt.Equal(doc.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, doc.CreatedAt)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetDocument("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateDocument(t *testing.T) {
	s := openTestStore(t)
	doc := testDocument("Draft")
	if err := s.SaveDocument(doc); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateDocument(doc.ID, "Final", "Corrected text.", "en-GB"); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	got, err := s.GetDocument(doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Final" || got.Content != "Corrected text." || got.Language != "en-GB" {
		t.Errorf("got %+v", got)
	}
	if !got.UpdatedAt.After(got.CreatedAt) && !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Errorf("UpdatedAt %v precedes CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}

	if err := s.UpdateDocument("missing", "t", "c", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("update of missing doc = %v, want ErrNotFound", err)
	}
}

func TestListDocumentsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	older := testDocument("Older")
	older.UpdatedAt = older.UpdatedAt.Add(-time.Hour)
	newer := testDocument("Newer")
	for _, d := range []Document{older, newer} {
		if err := s.SaveDocument(d); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := s.ListDocuments(10)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 || docs[0].Title != "Newer" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestDeleteDocumentCascadesChecks(t *testing.T) {
	s := openTestStore(t)
	doc := testDocument("Doomed")
	if err := s.SaveDocument(doc); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCheck(CheckRecord{
		ID: uuid.NewString(), DocumentID: doc.ID,
		CreatedAt: time.Now(), Language: "en-US", MatchCount: 3,
	}); err != nil {
		t.Fatalf("SaveCheck: %v", err)
	}

	if err := s.DeleteDocument(doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, err := s.GetDocument(doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("document still present: %v", err)
	}
	checks, err := s.ListChecks(doc.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(checks) != 0 {
		t.Errorf("checks survived delete: %+v", checks)
	}

	if err := s.DeleteDocument(doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestCheckHistoryNewestFirst(t *testing.T) {
	s := openTestStore(t)
	doc := testDocument("Tracked")
	if err := s.SaveDocument(doc); err != nil {
		t.Fatal(err)
	}

	base := time.Now().UTC().Truncate(time.Second)
	for i, when := range []time.Time{base.Add(-2 * time.Minute), base} {
		err := s.SaveCheck(CheckRecord{
			ID:          uuid.NewString(),
			DocumentID:  doc.ID,
			CreatedAt:   when,
			Language:    "en-US",
			MatchCount:  i,
			MatchesJSON: `[{"ruleId":"X"}]`,
		})
		if err != nil {
			t.Fatalf("SaveCheck %d: %v", i, err)
		}
	}

	checks, err := s.ListChecks(doc.ID, 10)
	if err != nil {
		t.Fatalf("ListChecks: %v", err)
	}
	if len(checks) != 2 {
		t.Fatalf("got %d checks", len(checks))
	}
	if checks[0].MatchCount != 1 {
		t.Errorf("newest check should come first: %+v", checks)
	}
	if checks[0].MatchesJSON != `[{"ruleId":"X"}]` {
		t.Errorf("MatchesJSON = %q", checks[0].MatchesJSON)
	}
}

func TestSaveCheckEmptyMatchesDefaultsToEmptyArray(t *testing.T) {
	s := openTestStore(t)
	doc := testDocument("Clean")
	if err := s.SaveDocument(doc); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCheck(CheckRecord{
		ID: uuid.NewString(), DocumentID: doc.ID, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	checks, err := s.ListChecks(doc.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if checks[0].MatchesJSON != "[]" {
		t.Errorf("MatchesJSON = %q, want []", checks[0].MatchesJSON)
	}
}
