// ABOUTME: Note service: CRUD with slug generation and markdown rendering
// ABOUTME: Renders goldmark HTML at write time so reads are plain row fetches

package notes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yuin/goldmark"

	"github.com/hamco/hamco/internal/store"
)

// ErrTitleRequired is returned when creating a note without a title.
var ErrTitleRequired = errors.New("title required")

// NoteStore is the storage surface the note service needs.
type NoteStore interface {
	CreateNote(ctx context.Context, note *store.Note) error
	GetNote(ctx context.Context, id string) (*store.Note, error)
	GetNoteBySlug(ctx context.Context, slug string) (*store.Note, error)
	ListNotes(ctx context.Context, publishedOnly bool, limit int) ([]*store.Note, error)
	UpdateNote(ctx context.Context, note *store.Note) error
	DeleteNote(ctx context.Context, id string) error
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// Service implements note CRUD on top of the store.
type Service struct {
	notes  NoteStore
	md     goldmark.Markdown
	logger *slog.Logger
}

// New creates a note service.
func New(notes NoteStore) *Service {
	return &Service{
		notes:  notes,
		md:     goldmark.New(),
		logger: slog.Default().With("component", "notes"),
	}
}

// Create renders the markdown body, derives a unique slug from the
// title, and stores the note.
func (s *Service) Create(ctx context.Context, authorID, title, body string, published bool) (*store.Note, error) {
	if title == "" {
		return nil, ErrTitleRequired
	}

	slug, err := s.uniqueSlug(ctx, title)
	if err != nil {
		return nil, err
	}

	html, err := s.render(body)
	if err != nil {
		return nil, err
	}

	note := &store.Note{
		Slug:      slug,
		Title:     title,
		Body:      body,
		HTML:      html,
		AuthorID:  authorID,
		Published: published,
	}

	if err := s.notes.CreateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("creating note: %w", err)
	}

	s.logger.Info("created note", "id", note.ID, "slug", note.Slug, "author", authorID)
	return note, nil
}

// Update rewrites title, body, and published state. The slug is kept
// stable so existing links do not break.
func (s *Service) Update(ctx context.Context, id, title, body string, published bool) (*store.Note, error) {
	note, err := s.notes.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}

	if title != "" {
		note.Title = title
	}
	note.Body = body
	note.Published = published

	if note.HTML, err = s.render(body); err != nil {
		return nil, err
	}

	if err := s.notes.UpdateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("updating note: %w", err)
	}
	return note, nil
}

// Delete removes a note.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.notes.DeleteNote(ctx, id)
}

// BySlug fetches a note by slug.
func (s *Service) BySlug(ctx context.Context, slug string) (*store.Note, error) {
	return s.notes.GetNoteBySlug(ctx, slug)
}

// List returns notes, optionally published only.
func (s *Service) List(ctx context.Context, publishedOnly bool, limit int) ([]*store.Note, error) {
	return s.notes.ListNotes(ctx, publishedOnly, limit)
}

// render converts markdown to HTML.
func (s *Service) render(body string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// uniqueSlug derives a slug from the title, probing numeric suffixes
// until it finds a free one.
func (s *Service) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := Slugify(title)

	slug := base
	for i := 2; ; i++ {
		taken, err := s.notes.SlugExists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("checking slug: %w", err)
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
