package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	s := NewLocalStorage()

	assert.ErrorIs(t, s.Set(&Draft{}), ErrEmptyID)

	d := New("club-1", nil)
	require.NoError(t, s.Set(d))

	got, err := s.Read(d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	_, err = s.Read("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(d.ID))
	_, err = s.Read(d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(d.ID), ErrNotFound)
}
