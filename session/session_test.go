package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/dynaform/database"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(filepath.Join(t.TempDir(), "local.sqlite"), database.Local)
	require.NoError(t, err)
	defer db.Close()
	st := NewStore(db)

	_, err = st.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	token, err := st.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, st.Save(ctx, Session{
		Username:    "joy@clinic.test",
		DisplayName: "Nurse Joy",
		AccessToken: "abc",
		Expiration:  exp,
	}))
	require.NoError(t, st.Save(ctx, Session{
		Username:    "joy@clinic.test",
		DisplayName: "Nurse Joy",
		AccessToken: "def",
		Expiration:  exp,
	}))

	s, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "def", s.AccessToken)
	assert.Equal(t, "Nurse Joy", s.Sender())
	assert.True(t, exp.Equal(s.Expiration))
	assert.False(t, s.Expired(exp.Add(-time.Minute)))
	assert.True(t, s.Expired(exp.Add(time.Minute)))

	token, err = st.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "def", token)

	require.NoError(t, st.Clear(ctx))
	_, err = st.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSenderFallsBackToUsername(t *testing.T) {
	assert.Equal(t, "joy@clinic.test", Session{Username: "joy@clinic.test"}.Sender())
}
