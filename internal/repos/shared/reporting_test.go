package shared_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/reposync/internal/repos/shared"
)

func TestWriterReporterWritesLines(testInstance *testing.T) {
	var output bytes.Buffer
	reporter := shared.NewWriterReporter(&output)

	reporter.Line("%d repositories, %d failed", 3, 1)
	reporter.Warning("unmanaged repository %s", "/srv/code/stray")

	require.Equal(testInstance, "3 repositories, 1 failed\nwarning: unmanaged repository /srv/code/stray\n", output.String())
}
