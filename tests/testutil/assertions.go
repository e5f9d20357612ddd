package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/collabfront/internal/domain/record"
)

// AssertDomainNames checks the collection holds exactly these names in order.
func AssertDomainNames(t *testing.T, domains []record.Domain, names ...string) {
	t.Helper()

	got := make([]string, 0, len(domains))
	for _, d := range domains {
		got = append(got, d.Name)
	}
	assert.Equal(t, names, got)
}

// AssertSameJSON checks both collections serialize to equivalent JSON,
// so opaque fields are compared by value rather than by raw bytes.
func AssertSameJSON(t *testing.T, expected, actual []record.Domain) {
	t.Helper()

	want, err := json.Marshal(expected)
	require.NoError(t, err)
	got, err := json.Marshal(actual)
	require.NoError(t, err)

	assert.JSONEq(t, string(want), string(got))
}
