package progress_test

import (
	"bytes"
	"io"
	"os"
	"testing"

	"nexusbridge/internal/domain"
	"nexusbridge/internal/progress"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	require.NoError(t, w.Close())
	os.Stdout = orig

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestStdoutReporter_DoneEvent(t *testing.T) {
	reporter := progress.NewStdoutReporter()
	out := captureStdout(t, func() {
		reporter.Report(domain.ProgressEvent{Phase: domain.PhaseInstall, ModName: "USSEP", Current: 1, Total: 3, Done: true})
	})
	assert.Contains(t, out, "install")
	assert.Contains(t, out, "USSEP")
	assert.Contains(t, out, "done (1/3)")
}

func TestStdoutReporter_ErrorEvent(t *testing.T) {
	reporter := progress.NewStdoutReporter()
	out := captureStdout(t, func() {
		reporter.Report(domain.ProgressEvent{Phase: domain.PhaseDownload, ModName: "Bad Mod", Err: assert.AnError})
	})
	assert.Contains(t, out, "Bad Mod")
	assert.Contains(t, out, assert.AnError.Error())
}

func TestStdoutReporter_ByteProgressIsHumanized(t *testing.T) {
	reporter := progress.NewStdoutReporter()
	out := captureStdout(t, func() {
		reporter.Report(domain.ProgressEvent{
			Phase: domain.PhaseDownload, ModName: "Big Mod",
			Bytes: 1_500_000, TotalBytes: 10_000_000,
		})
	})
	assert.Contains(t, out, "MB")
}

func TestStdoutReporter_ThrottlesRepeatedSmallProgress(t *testing.T) {
	reporter := progress.NewStdoutReporter()
	out := captureStdout(t, func() {
		reporter.Report(domain.ProgressEvent{Phase: domain.PhaseDownload, ModName: "M", Bytes: 100, TotalBytes: 10000})
		reporter.Report(domain.ProgressEvent{Phase: domain.PhaseDownload, ModName: "M", Bytes: 150, TotalBytes: 10000})
	})
	// Second update is within the same 10% bucket, so only one line should print.
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("\n")))
}
