// ABOUTME: Unit tests for note creation, slug collision probing, and rendering
// ABOUTME: Uses an in-memory NoteStore

package notes

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamco/hamco/internal/store"
)

type fakeNoteStore struct {
	notes map[string]*store.Note // by id
}

func newFakeNoteStore() *fakeNoteStore {
	return &fakeNoteStore{notes: map[string]*store.Note{}}
}

func (f *fakeNoteStore) CreateNote(_ context.Context, note *store.Note) error {
	for _, n := range f.notes {
		if n.Slug == note.Slug {
			return store.ErrDuplicateSlug
		}
	}
	note.ID = uuid.New().String()
	note.CreatedAt = time.Now()
	note.UpdatedAt = note.CreatedAt
	f.notes[note.ID] = note
	return nil
}

func (f *fakeNoteStore) GetNote(_ context.Context, id string) (*store.Note, error) {
	n, ok := f.notes[id]
	if !ok {
		return nil, store.ErrNoteNotFound
	}
	return n, nil
}

func (f *fakeNoteStore) GetNoteBySlug(_ context.Context, slug string) (*store.Note, error) {
	for _, n := range f.notes {
		if n.Slug == slug {
			return n, nil
		}
	}
	return nil, store.ErrNoteNotFound
}

func (f *fakeNoteStore) ListNotes(_ context.Context, publishedOnly bool, limit int) ([]*store.Note, error) {
	var out []*store.Note
	for _, n := range f.notes {
		if publishedOnly && !n.Published {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNoteStore) UpdateNote(_ context.Context, note *store.Note) error {
	if _, ok := f.notes[note.ID]; !ok {
		return store.ErrNoteNotFound
	}
	note.UpdatedAt = time.Now()
	f.notes[note.ID] = note
	return nil
}

func (f *fakeNoteStore) DeleteNote(_ context.Context, id string) error {
	if _, ok := f.notes[id]; !ok {
		return store.ErrNoteNotFound
	}
	delete(f.notes, id)
	return nil
}

func (f *fakeNoteStore) SlugExists(_ context.Context, slug string) (bool, error) {
	for _, n := range f.notes {
		if n.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func TestCreate(t *testing.T) {
	svc := New(newFakeNoteStore())

	note, err := svc.Create(context.Background(), "author-1", "Hello World", "# Heading\n\nSome *markdown*.", true)
	require.NoError(t, err)

	assert.Equal(t, "hello-world", note.Slug)
	assert.Equal(t, "author-1", note.AuthorID)
	assert.True(t, note.Published)
	assert.Contains(t, note.HTML, "<h1>Heading</h1>")
	assert.Contains(t, note.HTML, "<em>markdown</em>")
}

func TestCreate_TitleRequired(t *testing.T) {
	svc := New(newFakeNoteStore())

	_, err := svc.Create(context.Background(), "author-1", "", "body", false)
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestCreate_SlugCollision(t *testing.T) {
	svc := New(newFakeNoteStore())
	ctx := context.Background()

	first, err := svc.Create(ctx, "a", "Same Title", "one", true)
	require.NoError(t, err)
	second, err := svc.Create(ctx, "a", "Same Title", "two", true)
	require.NoError(t, err)
	third, err := svc.Create(ctx, "a", "Same Title", "three", true)
	require.NoError(t, err)

	assert.Equal(t, "same-title", first.Slug)
	assert.Equal(t, "same-title-2", second.Slug)
	assert.Equal(t, "same-title-3", third.Slug)
}

func TestUpdate_SlugStable(t *testing.T) {
	fs := newFakeNoteStore()
	svc := New(fs)
	ctx := context.Background()

	note, err := svc.Create(ctx, "a", "Original Title", "body", false)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, note.ID, "Completely New Title", "new body", true)
	require.NoError(t, err)

	assert.Equal(t, "original-title", updated.Slug, "updates must not change the slug")
	assert.Equal(t, "Completely New Title", updated.Title)
	assert.True(t, updated.Published)
	assert.True(t, strings.Contains(updated.HTML, "new body"))
}

func TestList_PublishedOnly(t *testing.T) {
	svc := New(newFakeNoteStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, "a", "Draft", "d", false)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "a", "Live", "l", true)
	require.NoError(t, err)

	published, err := svc.List(ctx, true, 0)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "live", published[0].Slug)

	all, err := svc.List(ctx, false, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
