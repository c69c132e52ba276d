// -- cmd/root_test.go --
package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamind47/dsl-autofill/internal/accounts"
	"github.com/mamamind47/dsl-autofill/internal/workflow"
)

func TestNewRootCommandTree(t *testing.T) {
	root := NewRootCommand()

	assert.Equal(t, "autofill", root.Use)
	assert.Equal(t, Version, root.Version)
	assert.True(t, root.SilenceUsage)

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "disburse")
	assert.Contains(t, names, "sign-contract")
	assert.Contains(t, names, "users")

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("headless"))
}

func TestNewRootCommandIsolatedInstances(t *testing.T) {
	// Each call must return an independent tree so flag state cannot leak
	// between interactive menu selections.
	a := NewRootCommand()
	b := NewRootCommand()
	assert.NotSame(t, a, b)

	require.NoError(t, a.PersistentFlags().Set("headless", "true"))
	got, err := b.PersistentFlags().GetBool("headless")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestStoreCredentialsCurrent(t *testing.T) {
	store, err := accounts.Open(t.TempDir())
	require.NoError(t, err)
	_, err = store.Add("Branch A", "agent01", "secret")
	require.NoError(t, err)

	creds, err := storeCredentials{store: store}.Current()
	require.NoError(t, err)
	assert.Equal(t, workflow.Credentials{Label: "Branch A", Username: "agent01", Password: "secret"}, creds)
}

func TestStoreCredentialsEmptyStore(t *testing.T) {
	store, err := accounts.Open(t.TempDir())
	require.NoError(t, err)

	_, err = storeCredentials{store: store}.Current()
	assert.ErrorIs(t, err, accounts.ErrNoCurrentAccount)
}
