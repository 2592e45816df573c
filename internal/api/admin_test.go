package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nkoval/folio/internal/storage"
)

func authedRequest(t *testing.T, h http.Handler, cookie *http.Cookie, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAdminExperienceCRUD(t *testing.T) {
	h, store := adminHandler(t, "hunter2hunter2")
	cookie := login(t, h, "hunter2hunter2")

	// Create.
	rec := authedRequest(t, h, cookie, http.MethodPost, "/admin/experience",
		`{"position":"Engineer","company":"Acme","startDate":"2022-01-01","description":"Built things"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding create response: %v", err)
	}
	id := created["id"]
	if id == "" {
		t.Fatal("create response missing id")
	}

	entries, err := store.ListExperience()
	if err != nil {
		t.Fatalf("ListExperience: %v", err)
	}
	if len(entries) != 1 || entries[0].Company != "Acme" || entries[0].EndDate != nil {
		t.Fatalf("unexpected stored entry: %+v", entries)
	}

	// Update with an end date.
	rec = authedRequest(t, h, cookie, http.MethodPut, "/admin/experience/"+id,
		`{"position":"Engineer","company":"Acme","startDate":"2022-01-01","endDate":"2024-06-30","description":"Built things"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got, err := store.GetExperience(id)
	if err != nil {
		t.Fatalf("GetExperience: %v", err)
	}
	if got.EndDate == nil || got.EndDate.Year() != 2024 {
		t.Errorf("end date not updated: %+v", got.EndDate)
	}

	// Delete.
	rec = authedRequest(t, h, cookie, http.MethodDelete, "/admin/experience/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = authedRequest(t, h, cookie, http.MethodDelete, "/admin/experience/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", rec.Code)
	}
}

func TestAdminExperienceValidation(t *testing.T) {
	h, _ := adminHandler(t, "hunter2hunter2")
	cookie := login(t, h, "hunter2hunter2")

	cases := []struct {
		name string
		body string
	}{
		{"missing position", `{"company":"Acme","startDate":"2022-01-01"}`},
		{"bad start date", `{"position":"Dev","company":"Acme","startDate":"not a date"}`},
		{"bad end date", `{"position":"Dev","company":"Acme","startDate":"2022-01-01","endDate":"soon"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := authedRequest(t, h, cookie, http.MethodPost, "/admin/experience", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestAdminSettingsPut(t *testing.T) {
	h, store := adminHandler(t, "hunter2hunter2")
	cookie := login(t, h, "hunter2hunter2")

	rec := authedRequest(t, h, cookie, http.MethodPut, "/admin/settings",
		`{"title":"Jane","bio":"builds things","skills":["Go"],"email":"j@example.com","linkedin":"in/jane"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	got, err := store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.Title != "Jane" || len(got.Skills) != 1 {
		t.Errorf("settings not saved: %+v", got)
	}
}

func TestAdminPostDuplicateSlug(t *testing.T) {
	h, _ := adminHandler(t, "hunter2hunter2")
	cookie := login(t, h, "hunter2hunter2")

	body := `{"slug":"hello","title":"Hello","body":"hi","published":true}`
	rec := authedRequest(t, h, cookie, http.MethodPost, "/admin/posts", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rec.Code)
	}
	rec = authedRequest(t, h, cookie, http.MethodPost, "/admin/posts", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate slug status = %d, want 409", rec.Code)
	}
}

func TestAdminGuestbookModeration(t *testing.T) {
	h, store := adminHandler(t, "hunter2hunter2")
	cookie := login(t, h, "hunter2hunter2")

	entry := storage.GuestbookEntry{ID: "g1", Author: "Spam", Message: "buy now", CreatedAt: time.Now()}
	if err := store.AddGuestbookEntry(entry); err != nil {
		t.Fatalf("AddGuestbookEntry: %v", err)
	}

	rec := authedRequest(t, h, cookie, http.MethodDelete, "/admin/guestbook/g1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	entries, err := store.ListGuestbook(10)
	if err != nil {
		t.Fatalf("ListGuestbook: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entry not removed: %+v", entries)
	}
}

func TestAdminResume_RejectsNonPDF(t *testing.T) {
	h, _ := adminHandler(t, "hunter2hunter2")
	cookie := login(t, h, "hunter2hunter2")

	var b strings.Builder
	b.WriteString("--boundary\r\n")
	b.WriteString("Content-Disposition: form-data; name=\"file\"; filename=\"cv.pdf\"\r\n")
	b.WriteString("Content-Type: application/pdf\r\n\r\n")
	b.WriteString("this is not a pdf at all")
	b.WriteString("\r\n--boundary--\r\n")

	req := httptest.NewRequest(http.MethodPost, "/admin/resume", strings.NewReader(b.String()))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=boundary")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
