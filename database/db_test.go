package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
	"todo-list/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dsn := "sqlite://" + filepath.Join(t.TempDir(), "todos.db")
	s, err := NewSQLiteStore(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestSQLiteStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	todo := model.NewTodo("write report")
	require.NoError(t, s.Insert(ctx, todo))

	_, err := uuid.Parse(todo.ID)
	assert.NoError(t, err, "sqlite ids are UUIDs")

	todos, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, todo.ID, todos[0].ID)
	assert.Equal(t, "write report", todos[0].Title)
	assert.False(t, todos[0].Completed)
	assert.WithinDuration(t, todo.CreatedAt, todos[0].CreatedAt, time.Millisecond)

	updated, err := s.SetCompleted(ctx, todo.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "write report", updated.Title)

	require.NoError(t, s.Delete(ctx, todo.ID))
	assert.ErrorIs(t, s.Delete(ctx, todo.ID), ErrNotFound)

	todos, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, todos)
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"oldest", "middle", "newest"} {
		todo := model.NewTodo(title)
		todo.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Insert(ctx, todo))
	}

	todos, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, todos, 3)
	assert.Equal(t, "newest", todos[0].Title)
	assert.Equal(t, "middle", todos[1].Title)
	assert.Equal(t, "oldest", todos[2].Title)
}

func TestSQLiteStore_UnknownID(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	_, err := s.SetCompleted(ctx, uuid.NewString(), true)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "mem-1"), ErrNotFound)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "todos.db")

	s, err := NewSQLiteStore(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, model.NewTodo("survives restart")))
	require.NoError(t, s.Close(ctx))

	reopened, err := NewSQLiteStore(ctx, dsn)
	require.NoError(t, err)
	defer reopened.Close(ctx)

	todos, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "survives restart", todos[0].Title)
}
