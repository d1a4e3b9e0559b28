package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// AssertLogged checks that every fragment occurs in the captured log output.
func AssertLogged(t *testing.T, logs string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		require.True(t, strings.Contains(logs, f), "expected %q in log output:\n%s", f, logs)
	}
}

// AssertNotBefore checks that the event named later did not happen before
// the event named earlier.
func AssertNotBefore(t *testing.T, later time.Time, laterName string, earlier time.Time, earlierName string) {
	t.Helper()
	require.False(t, later.IsZero(), "%s was never recorded", laterName)
	require.False(t, earlier.IsZero(), "%s was never recorded", earlierName)
	require.False(t, later.Before(earlier), "%s (%s) happened before %s (%s)",
		laterName, later.Format(time.RFC3339Nano), earlierName, earlier.Format(time.RFC3339Nano))
}
