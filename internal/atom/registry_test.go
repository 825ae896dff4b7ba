package atom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxserver/rxserver/internal/xproto"
)

func TestPredefinedAtomsAlwaysPresent(t *testing.T) {
	r := New()
	name, ok := r.Name(1)
	require.True(t, ok)
	assert.Equal(t, "PRIMARY", name)

	name, ok = r.Name(68)
	require.True(t, ok)
	assert.Equal(t, "WM_TRANSIENT_FOR", name)

	assert.Equal(t, 68, PredefinedCount())
}

func TestInternReturnsSameIDAcrossClients(t *testing.T) {
	r := New()
	id1, ok, err := r.Intern("HELLO", false, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.GreaterOrEqual(t, uint32(id1), uint32(FirstCustomID))

	id2, ok, err := r.Intern("HELLO", false, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 2, r.RefCount(id1))
}

func TestInternOnlyIfExists(t *testing.T) {
	r := New()
	id, ok, err := r.Intern("DOES_NOT_EXIST", true, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, xproto.AtomID(0), id)
}

func TestGetAtomNameRoundTrip(t *testing.T) {
	r := New()
	id, _, err := r.Intern("MYNAME", false, 1)
	require.NoError(t, err)
	name, ok := r.Name(id)
	require.True(t, ok)
	assert.Equal(t, "MYNAME", name)
}

func TestReleaseDecrementsAndDeletesUnreferenced(t *testing.T) {
	r := New()
	id, _, err := r.Intern("TEMP", false, 1)
	require.NoError(t, err)
	r.Release(1)
	_, ok := r.Name(id)
	assert.False(t, ok, "non-predefined atom with zero referrers must be removed")
}

func TestReleaseKeepsAtomReferencedByOthers(t *testing.T) {
	r := New()
	id, _, err := r.Intern("SHARED", false, 1)
	require.NoError(t, err)
	_, _, err = r.Intern("SHARED", false, 2)
	require.NoError(t, err)

	r.Release(1)
	name, ok := r.Name(id)
	require.True(t, ok)
	assert.Equal(t, "SHARED", name)
	assert.Equal(t, 1, r.RefCount(id))
}

func TestPredefinedAtomsNeverDeleted(t *testing.T) {
	r := New()
	_, _, err := r.Intern("PRIMARY", false, 1)
	require.NoError(t, err)
	r.Release(1)
	_, ok := r.Name(1)
	assert.True(t, ok, "predefined atoms must survive even at refcount zero")
}

func TestAtomNameBoundaryLengths(t *testing.T) {
	r := New()

	name255 := make([]byte, 255)
	for i := range name255 {
		name255[i] = 'a'
	}
	_, ok, err := r.Intern(string(name255), false, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	name256 := make([]byte, 256)
	for i := range name256 {
		name256[i] = 'a'
	}
	_, _, err = r.Intern(string(name256), false, 1)
	assert.ErrorIs(t, err, ErrInvalidName)
}
