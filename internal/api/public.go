package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nkoval/folio/internal/storage"
)

const (
	maxGuestbookAuthor  = 80
	maxGuestbookMessage = 1000
	maxContactBody      = 5000
)

// PublicDeps carries everything the visitor-facing routes need.
type PublicDeps struct {
	Store     *storage.Store
	Chat      Answerer
	ChatRPS   float64
	ChatBurst int
}

// NewPublicHandler returns a router serving only the unauthenticated routes.
func NewPublicHandler(deps PublicDeps) http.Handler {
	r := chi.NewRouter()
	registerPublicRoutes(r, deps)
	return r
}

// registerPublicRoutes adds all unauthenticated routes to r: site content
// reads, counters, guestbook, contact form, and the chat endpoint.
func registerPublicRoutes(r chi.Router, deps PublicDeps) {
	limiter := newClientLimiter(deps.ChatRPS, deps.ChatBurst)

	r.Get("/health", handleHealth)
	r.Post("/api/chat", handleChat(deps.Chat, limiter))

	r.Get("/api/settings", handleGetSettings(deps.Store))
	r.Get("/api/experience", handleListExperience(deps.Store))
	r.Get("/api/projects", handleListProjects(deps.Store))
	r.Post("/api/projects/{id}/view", handleProjectCounter(deps.Store.IncrementProjectViews))
	r.Post("/api/projects/{id}/like", handleProjectCounter(deps.Store.IncrementProjectLikes))

	r.Get("/api/posts", handleListPosts(deps.Store))
	r.Get("/api/posts/{slug}", handleGetPost(deps.Store))
	r.Post("/api/posts/{slug}/like", handlePostLike(deps.Store))

	r.Get("/api/guestbook", handleListGuestbook(deps.Store))
	r.Post("/api/guestbook", handleSignGuestbook(deps.Store))
	r.Post("/api/contact", handleContact(deps.Store))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type settingsPayload struct {
	Title    string   `json:"title"`
	Bio      string   `json:"bio"`
	Skills   []string `json:"skills"`
	Email    string   `json:"email"`
	LinkedIn string   `json:"linkedin"`
}

func handleGetSettings(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := store.GetSettings()
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusInternalServerError, "failed to load settings")
			return
		}
		// Absence is legal; render the empty shape.
		skills := s.Skills
		if skills == nil {
			skills = []string{}
		}
		writeJSON(w, http.StatusOK, settingsPayload{
			Title: s.Title, Bio: s.Bio, Skills: skills, Email: s.Email, LinkedIn: s.LinkedIn,
		})
	}
}

type experiencePayload struct {
	ID          string  `json:"id"`
	Position    string  `json:"position"`
	Company     string  `json:"company"`
	StartDate   string  `json:"startDate"`
	EndDate     *string `json:"endDate"`
	Description string  `json:"description"`
}

func experienceToPayload(e storage.Experience) experiencePayload {
	p := experiencePayload{
		ID:          e.ID,
		Position:    e.Position,
		Company:     e.Company,
		StartDate:   e.StartDate.UTC().Format(time.RFC3339),
		Description: e.Description,
	}
	if e.EndDate != nil {
		end := e.EndDate.UTC().Format(time.RFC3339)
		p.EndDate = &end
	}
	return p
}

func handleListExperience(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := store.ListExperience()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load experience")
			return
		}
		payload := make([]experiencePayload, 0, len(entries))
		for _, e := range entries {
			payload = append(payload, experienceToPayload(e))
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

type projectPayload struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Views       int64    `json:"views"`
	Likes       int64    `json:"likes"`
}

func handleListProjects(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := store.ListProjects()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load projects")
			return
		}
		payload := make([]projectPayload, 0, len(projects))
		for _, p := range projects {
			tags := p.Tags
			if tags == nil {
				tags = []string{}
			}
			payload = append(payload, projectPayload{
				ID: p.ID, Title: p.Title, Description: p.Description,
				Tags: tags, Views: p.Views, Likes: p.Likes,
			})
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func handleProjectCounter(increment func(id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := increment(id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "project not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "failed to update counter")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type postPayload struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Views     int64  `json:"views"`
	Likes     int64  `json:"likes"`
	CreatedAt string `json:"createdAt"`
}

func postToPayload(p storage.Post) postPayload {
	return postPayload{
		ID: p.ID, Slug: p.Slug, Title: p.Title, Body: p.Body,
		Views: p.Views, Likes: p.Likes,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func handleListPosts(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := store.ListPosts(true)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load posts")
			return
		}
		payload := make([]postPayload, 0, len(posts))
		for _, p := range posts {
			p.Body = "" // list view carries metadata only
			payload = append(payload, postToPayload(p))
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func handleGetPost(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		post, err := store.GetPostBySlug(slug)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "post not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "failed to load post")
			return
		}
		if !post.Published {
			httpError(w, http.StatusNotFound, "post not found")
			return
		}
		if err := store.IncrementPostViews(slug); err != nil {
			slog.Warn("incrementing post views", "slug", slug, "error", err)
		} else {
			post.Views++
		}
		writeJSON(w, http.StatusOK, postToPayload(post))
	}
}

func handlePostLike(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		if err := store.IncrementPostLikes(slug); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "post not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "failed to update counter")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type guestbookPayload struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

func handleListGuestbook(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := store.ListGuestbook(100)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load guestbook")
			return
		}
		payload := make([]guestbookPayload, 0, len(entries))
		for _, g := range entries {
			payload = append(payload, guestbookPayload{
				ID: g.ID, Author: g.Author, Message: g.Message,
				CreatedAt: g.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

type signGuestbookRequest struct {
	Author  string `json:"author"`
	Message string `json:"message"`
}

func handleSignGuestbook(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req signGuestbookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Author = strings.TrimSpace(req.Author)
		req.Message = strings.TrimSpace(req.Message)
		if req.Author == "" || req.Message == "" {
			httpError(w, http.StatusBadRequest, "author and message are required")
			return
		}
		if len(req.Author) > maxGuestbookAuthor || len(req.Message) > maxGuestbookMessage {
			httpError(w, http.StatusBadRequest, "author or message too long")
			return
		}

		entry := storage.GuestbookEntry{
			ID:      uuid.New().String(),
			Author:  req.Author,
			Message: req.Message,
		}
		if err := store.AddGuestbookEntry(entry); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save entry")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": entry.ID})
	}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func handleContact(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req contactRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)
		req.Message = strings.TrimSpace(req.Message)
		if req.Name == "" || req.Email == "" || req.Message == "" {
			httpError(w, http.StatusBadRequest, "name, email and message are required")
			return
		}
		if len(req.Message) > maxContactBody {
			httpError(w, http.StatusBadRequest, "message too long")
			return
		}

		msg := storage.ContactMessage{
			ID:    uuid.New().String(),
			Name:  req.Name,
			Email: req.Email,
			Body:  req.Message,
		}
		if err := store.AddMessage(msg); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save message")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": msg.ID})
	}
}
