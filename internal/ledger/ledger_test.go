package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", DefaultFileName)
	l, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, path
}

func TestOpenSeedsReferenceSlips(t *testing.T) {
	l, _ := openTestLedger(t)

	slips, err := l.List(context.Background())
	require.NoError(t, err)
	require.Len(t, slips, 2)
	assert.Equal(t, "12340", slips[0].ID)
	assert.Equal(t, "12345", slips[1].ID)
	assert.Equal(t, "precision equipment", slips[1].Note)
}

func TestFind(t *testing.T) {
	l, _ := openTestLedger(t)

	slip, err := l.Find(context.Background(), " 12345 ")
	require.NoError(t, err)
	assert.Equal(t, "Tokyo, Chiyoda", slip.Origin)
	assert.Equal(t, "Nagoya, Aichi", slip.Destination)

	_, err = l.Find(context.Background(), "99999")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.Find(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateAllocatesSequentialTestIDs(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()

	first, err := l.Create(ctx, NewSlip{Origin: "Tokyo, Chiyoda", Destination: "Sapporo, Hokkaido", Status: "test slip", Note: "delay"})
	require.NoError(t, err)
	assert.Equal(t, "TEST-0001", first.ID)

	second, err := l.Create(ctx, NewSlip{Destination: "Sendai"})
	require.NoError(t, err)
	assert.Equal(t, "TEST-0002", second.ID)

	slips, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, slips, 4)
	assert.Equal(t, "TEST-0002", slips[3].ID)

	_, err = l.Create(ctx, NewSlip{Destination: "  "})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestReopenKeepsDataWithoutReseeding(t *testing.T) {
	l, path := openTestLedger(t)
	_, err := l.Create(context.Background(), NewSlip{Destination: "Sapporo"})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	slips, err := reopened.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, slips, 3)
}
