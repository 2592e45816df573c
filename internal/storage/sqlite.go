package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding all site content: settings,
// experience, projects, posts, guestbook, contact messages, admin sessions,
// and the uploaded résumé.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "folio.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func marshalStrings(vals []string) string {
	if vals == nil {
		return "[]"
	}
	b, err := json.Marshal(vals)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalStrings(raw string) []string {
	var vals []string
	if err := json.Unmarshal([]byte(raw), &vals); err != nil {
		return nil
	}
	return vals
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", raw, err)
	}
	return t, nil
}

// --- Settings ---

// GetSettings returns the singleton site settings. ErrNotFound means the
// record has never been written.
func (s *Store) GetSettings() (Settings, error) {
	var st Settings
	var skills, updatedAt string
	err := s.db.QueryRow(`
		SELECT title, bio, skills, email, linkedin, updated_at
		FROM settings WHERE id = 1`,
	).Scan(&st.Title, &st.Bio, &skills, &st.Email, &st.LinkedIn, &updatedAt)
	if err == sql.ErrNoRows {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, err
	}
	st.Skills = unmarshalStrings(skills)
	t, err := parseTime(updatedAt)
	if err != nil {
		return Settings{}, err
	}
	st.UpdatedAt = t
	return st, nil
}

// UpsertSettings writes the singleton site settings, creating the row on
// first write.
func (s *Store) UpsertSettings(st Settings) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (id, title, bio, skills, email, linkedin, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			bio = excluded.bio,
			skills = excluded.skills,
			email = excluded.email,
			linkedin = excluded.linkedin,
			updated_at = excluded.updated_at`,
		st.Title, st.Bio, marshalStrings(st.Skills), st.Email, st.LinkedIn, formatTime(time.Now()),
	)
	return err
}

// --- Experience ---

// ListExperience returns all experience entries sorted by start date
// descending (most recent first).
func (s *Store) ListExperience() ([]Experience, error) {
	rows, err := s.db.Query(`
		SELECT id, position, company, start_date, end_date, description, created_at
		FROM experience ORDER BY start_date DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Experience
	for rows.Next() {
		e, err := scanExperience(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

func (s *Store) GetExperience(id string) (Experience, error) {
	row := s.db.QueryRow(`
		SELECT id, position, company, start_date, end_date, description, created_at
		FROM experience WHERE id = ?`, id,
	)
	e, err := scanExperience(row)
	if err == sql.ErrNoRows {
		return Experience{}, ErrNotFound
	}
	return e, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExperience(row rowScanner) (Experience, error) {
	var e Experience
	var startDate, createdAt string
	var endDate sql.NullString
	if err := row.Scan(&e.ID, &e.Position, &e.Company, &startDate, &endDate, &e.Description, &createdAt); err != nil {
		return Experience{}, err
	}
	t, err := parseTime(startDate)
	if err != nil {
		return Experience{}, err
	}
	e.StartDate = t
	if endDate.Valid {
		t, err := parseTime(endDate.String)
		if err != nil {
			return Experience{}, err
		}
		e.EndDate = &t
	}
	t, err = parseTime(createdAt)
	if err != nil {
		return Experience{}, err
	}
	e.CreatedAt = t
	return e, nil
}

func (s *Store) CreateExperience(e Experience) error {
	var endDate any
	if e.EndDate != nil {
		endDate = formatTime(*e.EndDate)
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO experience (id, position, company, start_date, end_date, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Position, e.Company, formatTime(e.StartDate), endDate, e.Description, formatTime(created),
	)
	return err
}

func (s *Store) UpdateExperience(e Experience) error {
	var endDate any
	if e.EndDate != nil {
		endDate = formatTime(*e.EndDate)
	}
	res, err := s.db.Exec(`
		UPDATE experience SET position = ?, company = ?, start_date = ?, end_date = ?, description = ?
		WHERE id = ?`,
		e.Position, e.Company, formatTime(e.StartDate), endDate, e.Description, e.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteExperience(id string) error {
	res, err := s.db.Exec(`DELETE FROM experience WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- Projects ---

func (s *Store) ListProjects() ([]Project, error) {
	rows, err := s.db.Query(`
		SELECT id, title, description, tags, views, likes, created_at
		FROM projects ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Project
	for rows.Next() {
		var p Project
		var tags, createdAt string
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &tags, &p.Views, &p.Likes, &createdAt); err != nil {
			return nil, err
		}
		p.Tags = unmarshalStrings(tags)
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		p.CreatedAt = t
		results = append(results, p)
	}
	return results, rows.Err()
}

func (s *Store) CreateProject(p Project) error {
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO projects (id, title, description, tags, views, likes, created_at)
		VALUES (?, ?, ?, ?, 0, 0, ?)`,
		p.ID, p.Title, p.Description, marshalStrings(p.Tags), formatTime(created),
	)
	return err
}

func (s *Store) UpdateProject(p Project) error {
	res, err := s.db.Exec(`
		UPDATE projects SET title = ?, description = ?, tags = ? WHERE id = ?`,
		p.Title, p.Description, marshalStrings(p.Tags), p.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteProject(id string) error {
	res, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) IncrementProjectViews(id string) error {
	res, err := s.db.Exec(`UPDATE projects SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) IncrementProjectLikes(id string) error {
	res, err := s.db.Exec(`UPDATE projects SET likes = likes + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- Posts ---

// ListPosts returns posts newest-first. When publishedOnly is true, drafts
// are excluded.
func (s *Store) ListPosts(publishedOnly bool) ([]Post, error) {
	q := `SELECT id, slug, title, body, published, views, likes, created_at, updated_at
		FROM posts ORDER BY created_at DESC`
	if publishedOnly {
		q = `SELECT id, slug, title, body, published, views, likes, created_at, updated_at
			FROM posts WHERE published = 1 ORDER BY created_at DESC`
	}
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

func (s *Store) GetPostBySlug(slug string) (Post, error) {
	row := s.db.QueryRow(`
		SELECT id, slug, title, body, published, views, likes, created_at, updated_at
		FROM posts WHERE slug = ?`, slug,
	)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return Post{}, ErrNotFound
	}
	return p, err
}

func scanPost(row rowScanner) (Post, error) {
	var p Post
	var published int
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Body, &published, &p.Views, &p.Likes, &createdAt, &updatedAt); err != nil {
		return Post{}, err
	}
	p.Published = published != 0
	t, err := parseTime(createdAt)
	if err != nil {
		return Post{}, err
	}
	p.CreatedAt = t
	t, err = parseTime(updatedAt)
	if err != nil {
		return Post{}, err
	}
	p.UpdatedAt = t
	return p, nil
}

func (s *Store) CreatePost(p Post) error {
	now := time.Now()
	created := p.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := s.db.Exec(`
		INSERT INTO posts (id, slug, title, body, published, views, likes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		p.ID, p.Slug, p.Title, p.Body, boolToInt(p.Published), formatTime(created), formatTime(now),
	)
	return err
}

func (s *Store) UpdatePost(p Post) error {
	res, err := s.db.Exec(`
		UPDATE posts SET slug = ?, title = ?, body = ?, published = ?, updated_at = ? WHERE id = ?`,
		p.Slug, p.Title, p.Body, boolToInt(p.Published), formatTime(time.Now()), p.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeletePost(id string) error {
	res, err := s.db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) IncrementPostViews(slug string) error {
	res, err := s.db.Exec(`UPDATE posts SET views = views + 1 WHERE slug = ?`, slug)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) IncrementPostLikes(slug string) error {
	res, err := s.db.Exec(`UPDATE posts SET likes = likes + 1 WHERE slug = ?`, slug)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- Guestbook ---

func (s *Store) ListGuestbook(limit int) ([]GuestbookEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, author, message, created_at
		FROM guestbook ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []GuestbookEntry
	for rows.Next() {
		var g GuestbookEntry
		var createdAt string
		if err := rows.Scan(&g.ID, &g.Author, &g.Message, &createdAt); err != nil {
			return nil, err
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		g.CreatedAt = t
		results = append(results, g)
	}
	return results, rows.Err()
}

func (s *Store) AddGuestbookEntry(g GuestbookEntry) error {
	created := g.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO guestbook (id, author, message, created_at) VALUES (?, ?, ?, ?)`,
		g.ID, g.Author, g.Message, formatTime(created),
	)
	return err
}

func (s *Store) DeleteGuestbookEntry(id string) error {
	res, err := s.db.Exec(`DELETE FROM guestbook WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- Contact messages ---

func (s *Store) AddMessage(m ContactMessage) error {
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO messages (id, name, email, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Email, m.Body, formatTime(created),
	)
	return err
}

func (s *Store) ListMessages(limit int) ([]ContactMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, name, email, body, created_at
		FROM messages ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ContactMessage
	for rows.Next() {
		var m ContactMessage
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Body, &createdAt); err != nil {
			return nil, err
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		m.CreatedAt = t
		results = append(results, m)
	}
	return results, rows.Err()
}

func (s *Store) DeleteMessage(id string) error {
	res, err := s.db.Exec(`DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- Sessions ---

func (s *Store) CreateSession(sess Session) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (token, created_at, expires_at) VALUES (?, ?, ?)`,
		sess.Token, formatTime(sess.CreatedAt), formatTime(sess.ExpiresAt),
	)
	return err
}

func (s *Store) GetSession(token string) (Session, error) {
	var sess Session
	var createdAt, expiresAt string
	err := s.db.QueryRow(`
		SELECT token, created_at, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&sess.Token, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return Session{}, err
	}
	sess.CreatedAt = t
	t, err = parseTime(expiresAt)
	if err != nil {
		return Session{}, err
	}
	sess.ExpiresAt = t
	return sess, nil
}

func (s *Store) DeleteSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// DeleteExpiredSessions removes sessions past their expiry and returns the
// number removed.
func (s *Store) DeleteExpiredSessions(now time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Resume ---

func (s *Store) SaveResume(r Resume) error {
	uploaded := r.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO resume (id, filename, content, uploaded_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			content = excluded.content,
			uploaded_at = excluded.uploaded_at`,
		r.Filename, r.Text, formatTime(uploaded),
	)
	return err
}

func (s *Store) GetResume() (Resume, error) {
	var r Resume
	var uploadedAt string
	err := s.db.QueryRow(`SELECT filename, content, uploaded_at FROM resume WHERE id = 1`).
		Scan(&r.Filename, &r.Text, &uploadedAt)
	if err == sql.ErrNoRows {
		return Resume{}, ErrNotFound
	}
	if err != nil {
		return Resume{}, err
	}
	t, err := parseTime(uploadedAt)
	if err != nil {
		return Resume{}, err
	}
	r.UploadedAt = t
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
