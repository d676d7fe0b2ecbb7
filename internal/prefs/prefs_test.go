package prefs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "prefs.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadUnknownClient(t *testing.T) {
	s := setupTestStore(t)

	p, err := s.Load("nobody")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, Default(), p)
}

func TestSaveAndLoad(t *testing.T) {
	s := setupTestStore(t)

	require.NoError(t, s.Save("client-a", Preference{UseAPIWords: false, TitleCount: 5}))
	p, err := s.Load("client-a")
	require.NoError(t, err)
	assert.Equal(t, Preference{UseAPIWords: false, TitleCount: 5}, p)

	// overwrite
	require.NoError(t, s.Save("client-a", Preference{UseAPIWords: true, TitleCount: 8}))
	p, err = s.Load("client-a")
	require.NoError(t, err)
	assert.Equal(t, Preference{UseAPIWords: true, TitleCount: 8}, p)

	var n int64
	require.NoError(t, s.DB.Model(&Entry{}).Where("client_id = ?", "client-a").Count(&n).Error)
	assert.Equal(t, int64(2), n)

	_, err = s.Load("client-b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadIgnoresBadCount(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.DB.Create(&Entry{ClientID: "c", Key: KeyCount, Value: "lots"}).Error)

	p, err := s.Load("c")
	require.NoError(t, err)
	assert.Equal(t, DefaultCount, p.TitleCount)
	assert.True(t, p.UseAPIWords)
}

func TestNilStore(t *testing.T) {
	var s *Store
	assert.Error(t, s.Save("x", Default()))
	_, err := s.Load("x")
	assert.Error(t, err)
	assert.NoError(t, s.Close())
}
