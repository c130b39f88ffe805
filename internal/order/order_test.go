package order

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDShape(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id := NewID()
		assert.Truef(t, ValidID(id), "unexpected id %q", id)
		seen[id] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)
}

func TestNewIDRedrawsHighBytes(t *testing.T) {
	draws := [][]byte{
		{252, 0, 255, 1, 253, 2, 254, 3},
		{35, 251, 36, 71, 252, 252, 252, 252},
	}
	calls := 0
	read := func(p []byte) (int, error) {
		n := copy(p, draws[calls])
		calls++
		return n, nil
	}

	id, err := newID(read)
	require.NoError(t, err)
	// bytes 252..255 are skipped; 251 and 71 both map to Z.
	assert.Equal(t, "NFC-0123ZZ0Z", id)
	assert.Equal(t, 2, calls)
}

func TestNewIDReadError(t *testing.T) {
	boom := errors.New("no entropy")
	_, err := newID(func([]byte) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
}

func TestNewOrder(t *testing.T) {
	now := time.Date(2024, 3, 9, 7, 5, 1, 0, time.Local)
	o := New("NFC-AB12CD34", "Alice", "555", "1 Main St", now)

	assert.Equal(t, "NFC-AB12CD34", o.ID)
	assert.Equal(t, "Alice", o.Name)
	assert.Equal(t, "555", o.Phone)
	assert.Equal(t, "1 Main St", o.Address)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "2024-03-09 07:05:01", o.Date)
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "NFC-AB12CD34", NormalizeID("  nfc-ab12cd34\n"))
	assert.Equal(t, "", NormalizeID("   "))
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("NFC-ZZZZZZZZ"))
	assert.False(t, ValidID("NFC-abc"))
	assert.False(t, ValidID("XYZ-12345678"))
	assert.False(t, ValidID("NFC-123456789"))
}
