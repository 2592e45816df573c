package storage

import (
	"errors"
	"testing"
	"time"
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

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetSettings(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first write, got %v", err)
	}

	in := Settings{
		Title:    "Jane",
		Bio:      "builds things",
		Skills:   []string{"Go", "SQL"},
		Email:    "jane@example.com",
		LinkedIn: "linkedin.com/in/jane",
	}
	if err := s.UpsertSettings(in); err != nil {
		t.Fatalf("UpsertSettings: %v", err)
	}

	got, err := s.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.Title != "Jane" || got.Bio != "builds things" || got.Email != "jane@example.com" {
		t.Errorf("settings mismatch: %+v", got)
	}
	if len(got.Skills) != 2 || got.Skills[0] != "Go" {
		t.Errorf("skills mismatch: %v", got.Skills)
	}

	// Second upsert replaces the singleton.
	in.Title = "Jane Doe"
	if err := s.UpsertSettings(in); err != nil {
		t.Fatalf("second UpsertSettings: %v", err)
	}
	got, err = s.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.Title != "Jane Doe" {
		t.Errorf("upsert did not replace: %+v", got)
	}
}

func TestExperienceSortedByStartDateDescending(t *testing.T) {
	s := openTestStore(t)

	mkDate := func(year int) time.Time {
		return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	for i, year := range []int{2019, 2023, 2021} {
		e := Experience{
			ID:        string(rune('a' + i)),
			Position:  "Engineer",
			Company:   "Co",
			StartDate: mkDate(year),
		}
		if err := s.CreateExperience(e); err != nil {
			t.Fatalf("CreateExperience: %v", err)
		}
	}

	entries, err := s.ListExperience()
	if err != nil {
		t.Fatalf("ListExperience: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	years := []int{entries[0].StartDate.Year(), entries[1].StartDate.Year(), entries[2].StartDate.Year()}
	if years[0] != 2023 || years[1] != 2021 || years[2] != 2019 {
		t.Errorf("not sorted descending: %v", years)
	}
}

func TestExperienceNullEndDate(t *testing.T) {
	s := openTestStore(t)

	end := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	open := Experience{ID: "open", Position: "Dev", Company: "A", StartDate: end.AddDate(1, 0, 0)}
	closed := Experience{ID: "closed", Position: "Dev", Company: "B", StartDate: end.AddDate(-2, 0, 0), EndDate: &end}

	for _, e := range []Experience{open, closed} {
		if err := s.CreateExperience(e); err != nil {
			t.Fatalf("CreateExperience(%s): %v", e.ID, err)
		}
	}

	got, err := s.GetExperience("open")
	if err != nil {
		t.Fatalf("GetExperience: %v", err)
	}
	if got.EndDate != nil {
		t.Errorf("open entry should have nil EndDate, got %v", got.EndDate)
	}

	got, err = s.GetExperience("closed")
	if err != nil {
		t.Fatalf("GetExperience: %v", err)
	}
	if got.EndDate == nil || !got.EndDate.Equal(end) {
		t.Errorf("closed entry EndDate mismatch: %v", got.EndDate)
	}
}

func TestProjectCounters(t *testing.T) {
	s := openTestStore(t)

	p := Project{ID: "p1", Title: "X", Description: "Y", Tags: []string{"Go"}}
	if err := s.CreateProject(p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.IncrementProjectViews("p1"); err != nil {
			t.Fatalf("IncrementProjectViews: %v", err)
		}
	}
	if err := s.IncrementProjectLikes("p1"); err != nil {
		t.Fatalf("IncrementProjectLikes: %v", err)
	}

	projects, err := s.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if projects[0].Views != 3 || projects[0].Likes != 1 {
		t.Errorf("counters = %d views / %d likes, want 3/1", projects[0].Views, projects[0].Likes)
	}

	if err := s.IncrementProjectViews("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown project, got %v", err)
	}
}

func TestPostsPublishedFilterAndSlug(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreatePost(Post{ID: "1", Slug: "hello", Title: "Hello", Published: true}); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if err := s.CreatePost(Post{ID: "2", Slug: "draft", Title: "Draft"}); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	published, err := s.ListPosts(true)
	if err != nil {
		t.Fatalf("ListPosts(true): %v", err)
	}
	if len(published) != 1 || published[0].Slug != "hello" {
		t.Errorf("published filter broken: %+v", published)
	}

	all, err := s.ListPosts(false)
	if err != nil {
		t.Fatalf("ListPosts(false): %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 posts, got %d", len(all))
	}

	if err := s.IncrementPostViews("hello"); err != nil {
		t.Fatalf("IncrementPostViews: %v", err)
	}
	got, err := s.GetPostBySlug("hello")
	if err != nil {
		t.Fatalf("GetPostBySlug: %v", err)
	}
	if got.Views != 1 {
		t.Errorf("views = %d, want 1", got.Views)
	}

	if _, err := s.GetPostBySlug("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGuestbookLimitAndDelete(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		g := GuestbookEntry{
			ID:        string(rune('a' + i)),
			Author:    "Visitor",
			Message:   "hi",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.AddGuestbookEntry(g); err != nil {
			t.Fatalf("AddGuestbookEntry: %v", err)
		}
	}

	entries, err := s.ListGuestbook(3)
	if err != nil {
		t.Fatalf("ListGuestbook: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].ID != "e" {
		t.Errorf("expected newest entry first, got %s", entries[0].ID)
	}

	if err := s.DeleteGuestbookEntry("e"); err != nil {
		t.Fatalf("DeleteGuestbookEntry: %v", err)
	}
	if err := s.DeleteGuestbookEntry("e"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	s := openTestStore(t)

	now := time.Now()
	live := Session{Token: "live", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := Session{Token: "stale", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	for _, sess := range []Session{live, stale} {
		if err := s.CreateSession(sess); err != nil {
			t.Fatalf("CreateSession(%s): %v", sess.Token, err)
		}
	}

	n, err := s.DeleteExpiredSessions(now)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d sessions, want 1", n)
	}

	if _, err := s.GetSession("live"); err != nil {
		t.Errorf("live session should survive: %v", err)
	}
	if _, err := s.GetSession("stale"); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale session should be gone, got %v", err)
	}
}

func TestResumeSingleton(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetResume(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before upload, got %v", err)
	}

	if err := s.SaveResume(Resume{Filename: "cv.pdf", Text: "v1"}); err != nil {
		t.Fatalf("SaveResume: %v", err)
	}
	if err := s.SaveResume(Resume{Filename: "cv2.pdf", Text: "v2"}); err != nil {
		t.Fatalf("second SaveResume: %v", err)
	}

	got, err := s.GetResume()
	if err != nil {
		t.Fatalf("GetResume: %v", err)
	}
	if got.Filename != "cv2.pdf" || got.Text != "v2" {
		t.Errorf("resume not replaced: %+v", got)
	}
}

func TestContactMessages(t *testing.T) {
	s := openTestStore(t)

	m := ContactMessage{ID: "m1", Name: "Visitor", Email: "v@example.com", Body: "hello"}
	if err := s.AddMessage(m); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	msgs, err := s.ListMessages(10)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Body != "hello" {
		t.Errorf("messages mismatch: %+v", msgs)
	}

	if err := s.DeleteMessage("m1"); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if err := s.DeleteMessage("m1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
