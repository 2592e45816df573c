package chat

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nkoval/folio/internal/storage"
)

// ErrDataUnavailable indicates the content store could not be read. Legal
// absence of records (storage.ErrNotFound) is not an error; only an
// unreachable store produces this.
var ErrDataUnavailable = errors.New("content store unavailable")

const defaultMaxSectionChars = 4000

// placeholder keeps the grounding block's shape stable when a field is unset.
const placeholder = "N/A"

// ContentSource is the read-only slice of the content store the assembler
// consumes.
type ContentSource interface {
	GetSettings() (storage.Settings, error)
	ListExperience() ([]storage.Experience, error)
	ListProjects() ([]storage.Project, error)
	GetResume() (storage.Resume, error)
}

// Assembler renders the current site content into a bounded grounding block.
// Output is deterministic: identical store contents always produce
// byte-identical text.
type Assembler struct {
	source          ContentSource
	maxSectionChars int
}

// NewAssembler creates an Assembler with the given per-section character
// budget. If maxSectionChars <= 0, the default (4000) is used.
func NewAssembler(source ContentSource, maxSectionChars int) *Assembler {
	if maxSectionChars <= 0 {
		maxSectionChars = defaultMaxSectionChars
	}
	return &Assembler{source: source, maxSectionChars: maxSectionChars}
}

// Assemble reads the current settings, experience, and projects and renders
// them into one grounding block. A missing settings row renders with
// placeholders; a store read failure returns ErrDataUnavailable.
func (a *Assembler) Assemble() (string, error) {
	settings, err := a.source.GetSettings()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("%w: reading settings: %v", ErrDataUnavailable, err)
	}

	experience, err := a.source.ListExperience()
	if err != nil {
		return "", fmt.Errorf("%w: reading experience: %v", ErrDataUnavailable, err)
	}

	projects, err := a.source.ListProjects()
	if err != nil {
		return "", fmt.Errorf("%w: reading projects: %v", ErrDataUnavailable, err)
	}

	var resumeText string
	resume, err := a.source.GetResume()
	if err == nil {
		resumeText = resume.Text
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("%w: reading resume: %v", ErrDataUnavailable, err)
	}

	var sb strings.Builder
	sb.WriteString("Name: " + orPlaceholder(settings.Title) + "\n")
	sb.WriteString("Bio: " + orPlaceholder(settings.Bio) + "\n")
	sb.WriteString("Skills: " + joinOrPlaceholder(settings.Skills) + "\n")
	sb.WriteString("Contact: email " + orPlaceholder(settings.Email) +
		", LinkedIn " + orPlaceholder(settings.LinkedIn) + "\n")

	sb.WriteString("\nExperience:\n")
	writeSection(&sb, experienceLines(experience), a.maxSectionChars)

	sb.WriteString("\nProjects:\n")
	writeSection(&sb, projectLines(projects), a.maxSectionChars)

	if resumeText != "" {
		sb.WriteString("\nBackground:\n")
		sb.WriteString(truncate(resumeText, a.maxSectionChars))
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// writeSection appends lines until the section budget is exhausted, then
// drops the tail and notes how many entries were omitted.
func writeSection(sb *strings.Builder, lines []string, budget int) {
	if len(lines) == 0 {
		sb.WriteString("(none)\n")
		return
	}

	used := 0
	written := 0
	for _, line := range lines {
		if used+len(line)+1 > budget {
			break
		}
		sb.WriteString(line)
		sb.WriteString("\n")
		used += len(line) + 1
		written++
	}

	if dropped := len(lines) - written; dropped > 0 {
		fmt.Fprintf(sb, "...and %d more\n", dropped)
	}
}

func experienceLines(entries []storage.Experience) []string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		end := "Present"
		if e.EndDate != nil {
			end = fmt.Sprintf("%d", e.EndDate.Year())
		}
		lines[i] = fmt.Sprintf("- %s at %s (%d - %s): %s",
			e.Position, e.Company, e.StartDate.Year(), end, e.Description)
	}
	return lines
}

func projectLines(projects []storage.Project) []string {
	lines := make([]string, len(projects))
	for i, p := range projects {
		lines[i] = fmt.Sprintf("- %s: %s (Tech: %s)",
			p.Title, p.Description, joinOrPlaceholder(p.Tags))
	}
	return lines
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

func joinOrPlaceholder(vals []string) string {
	if len(vals) == 0 {
		return placeholder
	}
	return strings.Join(vals, ", ")
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
