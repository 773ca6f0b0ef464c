package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProjects() *Projects {
	p := NewProjects(NewMemory())
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return p
}

func save(t *testing.T, p *Projects, user, id, name string) Metadata {
	t.Helper()
	m, err := p.Save(context.Background(), user, SaveRequest{
		ID: id, Name: name, Thumb: "data:thumb", State: json.RawMessage(`{"fileName":"` + name + `"}`),
	})
	require.NoError(t, err)
	return m
}

func TestProjectsListEmpty(t *testing.T) {
	list, err := newTestProjects().List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestProjectsSaveNewestFirst(t *testing.T) {
	p := newTestProjects()
	save(t, p, "u1", "p1", "first")
	save(t, p, "u1", "p2", "second")

	list, err := p.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p2", list[0].ID)
	assert.Equal(t, "p1", list[1].ID)
	assert.Equal(t, "data:thumb", list[0].Thumb)
}

func TestProjectsSaveUpdatesInPlace(t *testing.T) {
	p := newTestProjects()
	first := save(t, p, "u1", "p1", "first")
	save(t, p, "u1", "p2", "second")
	updated := save(t, p, "u1", "p1", "renamed")

	list, err := p.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p2", list[0].ID)
	assert.Equal(t, "renamed", list[1].Name)
	assert.True(t, updated.UpdatedAt.After(first.UpdatedAt))

	state, err := p.Load(context.Background(), "p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"fileName":"renamed"}`, string(state))
}

func TestProjectsSaveValidation(t *testing.T) {
	p := newTestProjects()
	_, err := p.Save(context.Background(), "u1", SaveRequest{ID: "p1", Name: "x"})
	assert.ErrorContains(t, err, "state")

	_, err = p.Save(context.Background(), "u1", SaveRequest{Name: "x", State: json.RawMessage(`{}`)})
	assert.ErrorContains(t, err, "id")
}

func TestProjectsUsersAreSeparate(t *testing.T) {
	p := newTestProjects()
	save(t, p, "u1", "p1", "mine")

	list, err := p.List(context.Background(), "u2")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProjectsDelete(t *testing.T) {
	p := newTestProjects()
	ctx := context.Background()
	save(t, p, "u1", "p1", "first")
	save(t, p, "u1", "p2", "second")

	require.NoError(t, p.Delete(ctx, "u1", "p1"))

	list, err := p.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "p2", list[0].ID)

	_, err = p.Load(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, p.Delete(ctx, "u1", "unknown"))
}
