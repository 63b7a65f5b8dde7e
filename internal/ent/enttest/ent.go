// Package enttest provides a small helper for constructing an *ent.Client
// backed by an in-memory or scratch database for tests, following the
// pattern ent itself generates alongside the client.
package enttest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Shaswata28/studymate/internal/ent"

	_ "modernc.org/sqlite"
)

// Open opens an *ent.Client against driverName/dataSourceName and runs schema
// migration, failing the test on any error. Callers are responsible for
// closing the returned client.
func Open(t testing.TB, driverName, dataSourceName string) *ent.Client {
	t.Helper()

	client, err := ent.Open(driverName, dataSourceName)
	require.NoError(t, err)

	require.NoError(t, client.Schema.Create(context.Background()))

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}
