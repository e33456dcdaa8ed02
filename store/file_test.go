package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreInsertAssignsMonotonicIDs(t *testing.T) {
	ctx := context.Background()
	fs, err := OpenFileStore(t.TempDir())
	require.NoError(t, err)

	first, err := fs.Insert(ctx, &Order{Type: TypeTakeout, Name: "Ana"})
	require.NoError(t, err)
	second, err := fs.Insert(ctx, &Order{Type: TypeReservation, Name: "Luca"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	_, err = time.Parse(time.RFC3339, first.Timestamp)
	assert.NoError(t, err, "timestamp must be ISO-8601")
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fs, err := OpenFileStore(dir)
	require.NoError(t, err)
	_, err = fs.Insert(ctx, &Order{Type: TypeTakeout, Name: "Ana"})
	require.NoError(t, err)

	// A fresh process must see the same records and keep the id sequence.
	reopened, err := OpenFileStore(dir)
	require.NoError(t, err)

	orders, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Ana", orders[0].Name)

	next, err := reopened.Insert(ctx, &Order{Type: TypeReservation, Name: "Luca"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.ID)
}

func TestFileStoreUpdateMergesAndRefreshesTimestamp(t *testing.T) {
	ctx := context.Background()
	fs, err := OpenFileStore(t.TempDir())
	require.NoError(t, err)

	stored, err := fs.Insert(ctx, &Order{Type: TypeTakeout, Name: "Ana", Status: StatusPending})
	require.NoError(t, err)

	updated, err := fs.Update(ctx, stored.ID, Patch{"status": StatusReady, "notes": "no cutlery"})
	require.NoError(t, err)

	assert.Equal(t, StatusReady, updated.Status)
	assert.Equal(t, "Ana", updated.Name)
	assert.Equal(t, "no cutlery", updated.Extra["notes"])
	assert.NotEmpty(t, updated.Timestamp)
}

func TestFileStoreNotFound(t *testing.T) {
	ctx := context.Background()
	fs, err := OpenFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = fs.FindByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fs.Update(ctx, 42, Patch{"status": StatusReady})
	assert.ErrorIs(t, err, ErrNotFound)

	err = fs.Delete(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreDelete(t *testing.T) {
	ctx := context.Background()
	fs, err := OpenFileStore(t.TempDir())
	require.NoError(t, err)

	stored, err := fs.Insert(ctx, &Order{Type: TypeTakeout, Name: "Ana"})
	require.NoError(t, err)

	require.NoError(t, fs.Delete(ctx, stored.ID))

	orders, err := fs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	assert.ErrorIs(t, fs.Delete(ctx, stored.ID), ErrNotFound)
}
