// ABOUTME: Note and slogan persistence operations on the SQLite store
// ABOUTME: Slug-unique note CRUD plus random slogan selection for the home page

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const noteColumns = `id, slug, title, body, html, author_id, published, created_at, updated_at`

// CreateNote inserts a new note. Returns ErrDuplicateSlug if the slug
// is already taken.
func (s *SQLiteStore) CreateNote(ctx context.Context, note *Note) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = now
	}

	query := `
		INSERT INTO notes (id, slug, title, body, html, author_id, published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		note.ID,
		note.Slug,
		note.Title,
		note.Body,
		note.HTML,
		note.AuthorID,
		note.Published,
		note.CreatedAt.UTC().Format(time.RFC3339),
		note.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("inserting note: %w", err)
	}

	s.logger.Debug("created note", "id", note.ID, "slug", note.Slug)
	return nil
}

// GetNote retrieves a note by ID.
func (s *SQLiteStore) GetNote(ctx context.Context, id string) (*Note, error) {
	return s.getNoteWhere(ctx, "id = ?", id)
}

// GetNoteBySlug retrieves a note by slug.
func (s *SQLiteStore) GetNoteBySlug(ctx context.Context, slug string) (*Note, error) {
	return s.getNoteWhere(ctx, "slug = ?", slug)
}

func (s *SQLiteStore) getNoteWhere(ctx context.Context, where string, arg any) (*Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE ` + where

	note, err := scanNote(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying note: %w", err)
	}
	return note, nil
}

// ListNotes returns notes newest first. When publishedOnly is set,
// drafts are excluded. If limit is 0 or negative, all notes are returned.
func (s *SQLiteStore) ListNotes(ctx context.Context, publishedOnly bool, limit int) ([]*Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes`
	var args []any
	if publishedOnly {
		query += ` WHERE published = 1`
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// UpdateNote rewrites a note's mutable fields.
func (s *SQLiteStore) UpdateNote(ctx context.Context, note *Note) error {
	note.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE notes SET slug = ?, title = ?, body = ?, html = ?, published = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		note.Slug,
		note.Title,
		note.Body,
		note.HTML,
		note.Published,
		note.UpdatedAt.Format(time.RFC3339),
		note.ID,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("updating note: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// DeleteNote removes a note by ID.
func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// SlugExists reports whether a slug is already taken.
func (s *SQLiteStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes WHERE slug = ?", slug).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking slug: %w", err)
	}
	return count > 0, nil
}

// CreateSlogan inserts a new slogan.
func (s *SQLiteStore) CreateSlogan(ctx context.Context, slogan *Slogan) error {
	if slogan.ID == "" {
		slogan.ID = uuid.New().String()
	}
	if slogan.CreatedAt.IsZero() {
		slogan.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO slogans (id, text, created_at) VALUES (?, ?, ?)",
		slogan.ID, slogan.Text, slogan.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting slogan: %w", err)
	}
	return nil
}

// RandomSlogan returns a uniformly random slogan, or ErrNotFound when
// no slogans exist.
func (s *SQLiteStore) RandomSlogan(ctx context.Context) (*Slogan, error) {
	var slogan Slogan
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, text, created_at FROM slogans ORDER BY RANDOM() LIMIT 1").
		Scan(&slogan.ID, &slogan.Text, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying slogan: %w", err)
	}

	if slogan.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &slogan, nil
}

// scanNote reads one note row.
func scanNote(row rowScanner) (*Note, error) {
	var note Note
	var createdAt, updatedAt string

	err := row.Scan(
		&note.ID,
		&note.Slug,
		&note.Title,
		&note.Body,
		&note.HTML,
		&note.AuthorID,
		&note.Published,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if note.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if note.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &note, nil
}
