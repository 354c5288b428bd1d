package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/schemastore/internal/payload"
)

func TestCreate(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.Create("Feed", `{'nodes': [], 'connections': [], 'scaling': 1}`))

	v, ok := s.Get("Feed")
	require.True(t, ok)
	assert.Equal(t, payload.Map{
		"nodes":       payload.Seq{},
		"connections": payload.Seq{},
		"scaling":     payload.Int(1),
	}, v)
}

func TestCreateRejectsNonDocuments(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"list", `[1, 2, 3]`},
		{"scalar", `42`},
		{"syntax error", `{'a': `},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			err := s.Create("X", tt.text)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPayloadParse)
			assert.Contains(t, err.Error(), `"X"`)
			assert.False(t, s.Has("X"), "nothing is stored on parse failure")
		})
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Create("A", `{"v": 1}`))

	err := s.Create("A", `{"v": 2}`)
	assert.ErrorIs(t, err, ErrDuplicateName)

	v, _ := s.Get("A")
	assert.Equal(t, doc(1), v)
}

func TestCreateEmptyName(t *testing.T) {
	s := createTestStore(t)
	assert.ErrorIs(t, s.Create("", `{"v": 1}`), ErrInvalidName)
}
