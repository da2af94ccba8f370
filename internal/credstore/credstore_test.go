package credstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robby/taskdeck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPrincipal() domain.Principal {
	return domain.Principal{
		ID:          "6f1c1e0a-1111-4c3b-9a57-000000000001",
		Email:       "ada@acme.test",
		DisplayName: "Ada Lovelace",
		Role:        domain.RoleTenantAdmin,
		TenantID:    "tenant-acme",
	}
}

// storeCases runs the same contract checks against every backend.
func storeCases(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"file": func(t *testing.T) Store {
			return NewFileStore(filepath.Join(t.TempDir(), "nested", "credentials.json"))
		},
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "taskdeck.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStore_Contract(t *testing.T) {
	for name, newStore := range storeCases(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("load on empty store", func(t *testing.T) {
				s := newStore(t)
				_, _, err := s.Load()
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("save then load", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Save("tok-1", testPrincipal()))

				token, p, err := s.Load()
				require.NoError(t, err)
				assert.Equal(t, "tok-1", token)
				assert.Equal(t, testPrincipal(), p)
			})

			t.Run("save overwrites", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Save("tok-1", testPrincipal()))

				second := testPrincipal()
				second.ID = "someone-else"
				second.Role = domain.RoleMember
				require.NoError(t, s.Save("tok-2", second))

				token, p, err := s.Load()
				require.NoError(t, err)
				assert.Equal(t, "tok-2", token)
				assert.Equal(t, second, p)
			})

			t.Run("clear removes both", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Save("tok-1", testPrincipal()))
				require.NoError(t, s.Clear())

				_, _, err := s.Load()
				assert.ErrorIs(t, err, ErrNotFound)

				// Clearing twice is fine
				assert.NoError(t, s.Clear())
			})
		})
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, NewFileStore(path).Save("tok-durable", testPrincipal()))

	token, p, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-durable", token)
	assert.Equal(t, "ada@acme.test", p.Email)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := NewFileStore(path).Load()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdeck.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save("tok-durable", testPrincipal()))
	require.NoError(t, s.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()

	token, _, err := s2.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-durable", token)
}

func TestMemoryStore_PartialEntries(t *testing.T) {
	t.Run("token without user", func(t *testing.T) {
		s := NewMemoryStore()
		s.Set(KeyToken, "tok")
		_, _, err := s.Load()
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("user is not json", func(t *testing.T) {
		s := NewMemoryStore()
		s.Set(KeyToken, "tok")
		s.Set(KeyUser, "ada")
		_, _, err := s.Load()
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestStore_Interface(t *testing.T) {
	var _ Store = &MemoryStore{}
	var _ Store = &FileStore{}
	var _ Store = &SQLiteStore{}
}
