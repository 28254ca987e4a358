package sessiondb

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemRoundTrip(t *testing.T) {
	db := NewMem(time.Hour)
	ctx := context.Background()

	_, err := db.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	payload := json.RawMessage(`{"destination":"Đà Nẵng","duration":3}`)
	require.NoError(t, db.Save(ctx, "s1", payload))

	got, err := db.Load(ctx, "s1")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))

	require.NoError(t, db.Delete(ctx, "s1"))
	_, err = db.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemSaveCopiesPayload(t *testing.T) {
	db := NewMem(time.Hour)
	ctx := context.Background()

	payload := json.RawMessage(`{"destination":"Huế"}`)
	require.NoError(t, db.Save(ctx, "s1", payload))
	payload[2] = 'x'

	got, err := db.Load(ctx, "s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"destination":"Huế"}`, string(got))
}

func TestMemExpiry(t *testing.T) {
	db := NewMem(time.Minute)
	now := time.Now()
	db.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, db.Save(ctx, "s1", json.RawMessage(`{}`)))

	now = now.Add(30 * time.Second)
	_, err := db.Load(ctx, "s1")
	assert.NoError(t, err)

	now = now.Add(31 * time.Second)
	_, err = db.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionKeyIsNamespaced(t *testing.T) {
	assert.Equal(t, "travelgo:session:abc", sessionKey("abc"))
}
