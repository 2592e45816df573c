package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/nkoval/folio/internal/storage"
)

const maxResumeSize = 10 << 20 // 10MB

// AdminDeps carries everything the session-gated management routes need.
type AdminDeps struct {
	Store        *storage.Store
	PasswordHash string
	SessionTTL   time.Duration
}

// NewAdminHandler returns a router serving only the admin panel API.
func NewAdminHandler(deps AdminDeps) http.Handler {
	r := chi.NewRouter()
	registerAdminRoutes(r, deps)
	return r
}

// registerAdminRoutes adds the admin panel routes to r. Login is the only
// route outside the session gate.
func registerAdminRoutes(r chi.Router, deps AdminDeps) {
	r.Post("/admin/login", handleLogin(deps.Store, deps.PasswordHash, deps.SessionTTL))

	r.Group(func(r chi.Router) {
		r.Use(SessionAuth(deps.Store))

		r.Post("/admin/logout", handleLogout(deps.Store))

		r.Put("/admin/settings", handlePutSettings(deps.Store))

		r.Post("/admin/experience", handleCreateExperience(deps.Store))
		r.Put("/admin/experience/{id}", handleUpdateExperience(deps.Store))
		r.Delete("/admin/experience/{id}", handleDelete(deps.Store.DeleteExperience, "experience entry"))

		r.Post("/admin/projects", handleCreateProject(deps.Store))
		r.Put("/admin/projects/{id}", handleUpdateProject(deps.Store))
		r.Delete("/admin/projects/{id}", handleDelete(deps.Store.DeleteProject, "project"))

		r.Get("/admin/posts", handleListAllPosts(deps.Store))
		r.Post("/admin/posts", handleCreatePost(deps.Store))
		r.Put("/admin/posts/{id}", handleUpdatePost(deps.Store))
		r.Delete("/admin/posts/{id}", handleDelete(deps.Store.DeletePost, "post"))

		r.Delete("/admin/guestbook/{id}", handleDelete(deps.Store.DeleteGuestbookEntry, "guestbook entry"))

		r.Get("/admin/messages", handleListMessages(deps.Store))
		r.Delete("/admin/messages/{id}", handleDelete(deps.Store.DeleteMessage, "message"))

		r.Post("/admin/resume", handleUploadResume(deps.Store))
	})
}

func handleDelete(del func(id string) error, noun string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := del(id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "%s not found", noun)
				return
			}
			httpError(w, http.StatusInternalServerError, "failed to delete %s", noun)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handlePutSettings(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req settingsPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		err := store.UpsertSettings(storage.Settings{
			Title: req.Title, Bio: req.Bio, Skills: req.Skills,
			Email: req.Email, LinkedIn: req.LinkedIn,
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type experienceRequest struct {
	Position    string `json:"position"`
	Company     string `json:"company"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

func (req experienceRequest) toRecord(id string) (storage.Experience, error) {
	if req.Position == "" || req.Company == "" {
		return storage.Experience{}, errors.New("position and company are required")
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return storage.Experience{}, fmt.Errorf("invalid startDate: %w", err)
	}
	e := storage.Experience{
		ID:          id,
		Position:    req.Position,
		Company:     req.Company,
		StartDate:   start,
		Description: req.Description,
	}
	if req.EndDate != "" {
		end, err := parseDate(req.EndDate)
		if err != nil {
			return storage.Experience{}, fmt.Errorf("invalid endDate: %w", err)
		}
		e.EndDate = &end
	}
	return e, nil
}

// parseDate accepts RFC3339 timestamps or bare dates.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func handleCreateExperience(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req experienceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		e, err := req.toRecord(uuid.New().String())
		if err != nil {
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}
		if err := store.CreateExperience(e); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save experience entry")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": e.ID})
	}
}

func handleUpdateExperience(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req experienceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		e, err := req.toRecord(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}
		if err := store.UpdateExperience(e); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "experience entry not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "failed to update experience entry")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type projectRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func handleCreateProject(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req projectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Title == "" {
			httpError(w, http.StatusBadRequest, "title is required")
			return
		}
		p := storage.Project{
			ID:          uuid.New().String(),
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
		}
		if err := store.CreateProject(p); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save project")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": p.ID})
	}
}

func handleUpdateProject(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req projectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		p := storage.Project{
			ID:          chi.URLParam(r, "id"),
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
		}
		if err := store.UpdateProject(p); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "project not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "failed to update project")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type postRequest struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

func handleListAllPosts(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := store.ListPosts(false)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load posts")
			return
		}
		payload := make([]postPayload, 0, len(posts))
		for _, p := range posts {
			payload = append(payload, postToPayload(p))
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func handleCreatePost(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req postRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Slug == "" || req.Title == "" {
			httpError(w, http.StatusBadRequest, "slug and title are required")
			return
		}
		p := storage.Post{
			ID:        uuid.New().String(),
			Slug:      req.Slug,
			Title:     req.Title,
			Body:      req.Body,
			Published: req.Published,
		}
		if err := store.CreatePost(p); err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				httpError(w, http.StatusConflict, "slug already in use")
				return
			}
			httpError(w, http.StatusInternalServerError, "failed to save post")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": p.ID})
	}
}

func handleUpdatePost(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req postRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		p := storage.Post{
			ID:        chi.URLParam(r, "id"),
			Slug:      req.Slug,
			Title:     req.Title,
			Body:      req.Body,
			Published: req.Published,
		}
		if err := store.UpdatePost(p); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "post not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "failed to update post")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleListMessages(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := store.ListMessages(100)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load messages")
			return
		}
		type messagePayload struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			Email     string `json:"email"`
			Message   string `json:"message"`
			CreatedAt string `json:"createdAt"`
		}
		payload := make([]messagePayload, 0, len(msgs))
		for _, m := range msgs {
			payload = append(payload, messagePayload{
				ID: m.ID, Name: m.Name, Email: m.Email, Message: m.Body,
				CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

// handleUploadResume accepts a PDF as multipart form field "file", extracts
// its plain text, and stores it as an extra grounding source for chat.
func handleUploadResume(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxResumeSize)
		defer r.Body.Close()

		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "file field is required")
			return
		}
		defer file.Close()

		raw, err := io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "failed to read upload")
			return
		}

		text, err := extractPDFText(raw)
		if err != nil {
			httpError(w, http.StatusBadRequest, "could not extract text from PDF: %v", err)
			return
		}

		res := storage.Resume{
			Filename: header.Filename,
			Text:     text,
		}
		if err := store.SaveResume(res); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save resume")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"filename": header.Filename,
			"chars":    len(text),
		})
	}
}

func extractPDFText(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(string(text))
	if trimmed == "" {
		return "", errors.New("document contains no extractable text")
	}
	return trimmed, nil
}
