// File: internal/accounts/store_test.go
package accounts

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	s.now = func() time.Time {
		return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	}
	return s
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.Add("Office", "agent01", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "user1", id1)

	id2, err := s.Add("Branch", "agent02", "secret2")
	require.NoError(t, err)
	assert.Equal(t, "user2", id2)

	acc, err := s.Get(id1)
	require.NoError(t, err)
	assert.Equal(t, "Office", acc.Name)
	assert.Equal(t, "agent01", acc.Username)
	assert.Equal(t, "2025-03-14 09:30:00", acc.Created)
	assert.Empty(t, acc.LastUsed)
}

func TestFirstAccountBecomesCurrent(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Current()
	assert.ErrorIs(t, err, ErrNoCurrentAccount)

	id, err := s.Add("Office", "agent01", "secret")
	require.NoError(t, err)
	assert.Equal(t, id, s.CurrentID())

	// A second account does not steal the current slot.
	_, err = s.Add("Branch", "agent02", "secret")
	require.NoError(t, err)
	assert.Equal(t, id, s.CurrentID())
}

func TestAddRejectsDuplicateUsername(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Add("Office", "agent01", "secret")
	require.NoError(t, err)

	_, err = s.Add("Other", "agent01", "different")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
	assert.Equal(t, 1, s.Len())
}

func TestEdit(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Add("Office", "agent01", "secret")
	require.NoError(t, err)

	// Blank fields keep previous values.
	require.NoError(t, s.Edit(id, "", "", "newsecret"))
	acc, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Office", acc.Name)
	assert.Equal(t, "agent01", acc.Username)
	assert.Equal(t, "newsecret", acc.Password)

	// Username collisions with another account are rejected.
	other, err := s.Add("Branch", "agent02", "secret")
	require.NoError(t, err)
	err = s.Edit(other, "", "agent01", "")
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	assert.ErrorIs(t, s.Edit("user99", "x", "", ""), ErrAccountNotFound)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	id1, err := s.Add("Office", "agent01", "secret")
	require.NoError(t, err)

	// The last account cannot be removed.
	assert.ErrorIs(t, s.Delete(id1), ErrLastAccount)

	id2, err := s.Add("Branch", "agent02", "secret")
	require.NoError(t, err)

	// Deleting the current account moves the pointer to the first remaining one.
	require.NoError(t, s.Delete(id1))
	assert.Equal(t, id2, s.CurrentID())
	_, err = s.Get(id1)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	assert.ErrorIs(t, s.Delete("user99"), ErrAccountNotFound)
}

func TestSwitchAndTouch(t *testing.T) {
	s := newTestStore(t)
	id1, err := s.Add("Office", "agent01", "secret")
	require.NoError(t, err)
	id2, err := s.Add("Branch", "agent02", "secret")
	require.NoError(t, err)

	require.NoError(t, s.Switch(id2))
	assert.Equal(t, id2, s.CurrentID())
	assert.ErrorIs(t, s.Switch("user99"), ErrAccountNotFound)

	require.NoError(t, s.TouchCurrent())
	acc, err := s.Get(id2)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14 09:30:00", acc.LastUsed)

	// The other account is untouched.
	acc1, err := s.Get(id1)
	require.NoError(t, err)
	assert.Empty(t, acc1.LastUsed)
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	id, err := s.Add("Office", "agent01", "secret")
	require.NoError(t, err)
	require.NoError(t, s.TouchCurrent())

	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, id, reopened.CurrentID())
	acc, err := reopened.Current()
	require.NoError(t, err)
	assert.Equal(t, "agent01", acc.Username)
	assert.Equal(t, "secret", acc.Password)
	assert.NotEmpty(t, acc.LastUsed)
}

func TestNullCurrentUserRoundTrip(t *testing.T) {
	dir := t.TempDir()
	// Store files written by earlier tool versions carry null, not "".
	seed := `{
  "current_user": null,
  "users": {
    "user1": {"name": "Office", "username": "agent01", "password": "secret", "created": "2025-01-01 00:00:00", "last_used": ""}
  }
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte(seed), 0o600))

	s, err := Open(dir)
	require.NoError(t, err)
	assert.Empty(t, s.CurrentID())
	_, err = s.Current()
	assert.ErrorIs(t, err, ErrNoCurrentAccount)

	// A save that does not select an account keeps the null on disk.
	require.NoError(t, s.Edit("user1", "Head Office", "", ""))
	raw, err := os.ReadFile(filepath.Join(dir, "users.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"current_user": null`)
}

func TestStoreFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	_, err = s.Add("Office", "agent01", "secret")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "users.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestIDOrderingSkipsGaps(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add("A", "a", "p")
	require.NoError(t, err)
	_, err = s.Add("B", "b", "p")
	require.NoError(t, err)
	_, err = s.Add("C", "c", "p")
	require.NoError(t, err)

	require.NoError(t, s.Delete("user2"))

	// The freed ordinal is not reused.
	id, err := s.Add("D", "d", "p")
	require.NoError(t, err)
	assert.Equal(t, "user4", id)
	assert.Equal(t, []string{"user1", "user3", "user4"}, s.IDs())
}
