// File: internal/accounts/store.go
package accounts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const timeLayout = "2006-01-02 15:04:05"

var (
	// ErrNoCurrentAccount is returned when no account has been selected yet.
	ErrNoCurrentAccount = errors.New("no account is currently selected")
	// ErrAccountNotFound is returned for operations on an unknown account ID.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateUsername is returned when adding an account whose username
	// already exists in the store.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrLastAccount is returned when deleting would leave the store empty.
	ErrLastAccount = errors.New("cannot delete the last remaining account")
)

// Account holds one set of portal credentials.
type Account struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
	Created  string `json:"created"`
	LastUsed string `json:"last_used"`
}

// storeFile is the on disk shape of the credential store. CurrentUser is a
// pointer so an unset selection round-trips as JSON null, the shape older
// store files carry.
type storeFile struct {
	CurrentUser *string             `json:"current_user"`
	Users       map[string]*Account `json:"users"`
}

// Store manages portal credentials persisted as JSON under the accounts
// directory. All mutating operations write the file back immediately.
type Store struct {
	path string
	data storeFile
	now  func() time.Time
}

// Open loads the store from dir, creating an empty one if the file does not
// exist yet.
func Open(dir string) (*Store, error) {
	s := &Store{
		path: filepath.Join(dir, "users.json"),
		data: storeFile{Users: map[string]*Account{}},
		now:  time.Now,
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account store: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("failed to parse account store %s: %w", s.path, err)
	}
	if s.data.Users == nil {
		s.data.Users = map[string]*Account{}
	}
	return s, nil
}

// save writes the store back to disk. Credentials stay readable only by the
// owning user.
func (s *Store) save() error {
	raw, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode account store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create account directory: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write account store: %w", err)
	}
	return nil
}

// IDs returns every account ID in stable order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.data.Users))
	for id := range s.data.Users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return idOrdinal(ids[i]) < idOrdinal(ids[j])
	})
	return ids
}

// idOrdinal extracts the numeric suffix of a "userN" ID for sorting.
func idOrdinal(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "user"))
	if err != nil {
		return 0
	}
	return n
}

// Get returns the account for an ID.
func (s *Store) Get(id string) (Account, error) {
	acc, ok := s.data.Users[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return *acc, nil
}

// CurrentID returns the ID of the selected account, or empty when none is set.
func (s *Store) CurrentID() string {
	if s.data.CurrentUser == nil {
		return ""
	}
	return *s.data.CurrentUser
}

// Current returns the selected account.
func (s *Store) Current() (Account, error) {
	id := s.CurrentID()
	if id == "" {
		return Account{}, ErrNoCurrentAccount
	}
	acc, ok := s.data.Users[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return *acc, nil
}

// Add stores a new account and returns its assigned ID. The first account
// added becomes the current one.
func (s *Store) Add(name, username, password string) (string, error) {
	for _, acc := range s.data.Users {
		if acc.Username == username {
			return "", fmt.Errorf("%w: %s", ErrDuplicateUsername, username)
		}
	}

	next := 1
	for id := range s.data.Users {
		if n := idOrdinal(id); n >= next {
			next = n + 1
		}
	}
	id := fmt.Sprintf("user%d", next)

	s.data.Users[id] = &Account{
		Name:     name,
		Username: username,
		Password: password,
		Created:  s.now().Format(timeLayout),
	}
	if s.data.CurrentUser == nil {
		s.data.CurrentUser = &id
	}
	return id, s.save()
}

// Edit updates an existing account. Empty fields keep their previous value.
func (s *Store) Edit(id, name, username, password string) error {
	acc, ok := s.data.Users[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	if username != "" && username != acc.Username {
		for otherID, other := range s.data.Users {
			if otherID != id && other.Username == username {
				return fmt.Errorf("%w: %s", ErrDuplicateUsername, username)
			}
		}
		acc.Username = username
	}
	if name != "" {
		acc.Name = name
	}
	if password != "" {
		acc.Password = password
	}
	return s.save()
}

// Delete removes an account. The last remaining account cannot be deleted.
// Deleting the current account reassigns the current pointer to the first
// remaining one.
func (s *Store) Delete(id string) error {
	if _, ok := s.data.Users[id]; !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	if len(s.data.Users) <= 1 {
		return ErrLastAccount
	}
	delete(s.data.Users, id)
	if s.CurrentID() == id {
		first := s.IDs()[0]
		s.data.CurrentUser = &first
	}
	return s.save()
}

// Switch selects a different account as current.
func (s *Store) Switch(id string) error {
	if _, ok := s.data.Users[id]; !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	s.data.CurrentUser = &id
	return s.save()
}

// TouchCurrent stamps the current account's last used time. Called after a
// successful login.
func (s *Store) TouchCurrent() error {
	id := s.CurrentID()
	if id == "" {
		return ErrNoCurrentAccount
	}
	acc, ok := s.data.Users[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	acc.LastUsed = s.now().Format(timeLayout)
	return s.save()
}

// Len returns the number of stored accounts.
func (s *Store) Len() int { return len(s.data.Users) }
