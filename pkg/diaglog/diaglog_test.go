package diaglog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "DEBUG", SeverityDebug.String())
	assert.Equal(t, "INFO", SeverityInfo.String())
	assert.Equal(t, "WARN", SeverityWarn.String())
	assert.Equal(t, "ERROR", SeverityError.String())
	assert.Equal(t, "SEVERITY(9)", Severity(9).String())
}

func TestWriterSinkFormat(t *testing.T) {
	var sb strings.Builder
	sink := NewWriterSink(&sb)

	sink.Log(Entry{
		Time:     time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Category: CategoryAssert,
		Severity: SeverityError,
		Site:     "mesh.go:42",
		Message:  "node missing",
	})

	line := sb.String()
	assert.Contains(t, line, "2025-06-01T09:00:00Z")
	assert.Contains(t, line, "ERROR [devguard.assert] mesh.go:42 node missing")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestWriterSinkOmitsZeroTimeAndSite(t *testing.T) {
	var sb strings.Builder
	sink := NewWriterSink(&sb)
	sink.Log(Entry{Category: CategorySession, Severity: SeverityInfo, Message: "session ended"})
	assert.Equal(t, "INFO [devguard.session] session ended\n", sb.String())
}

func TestMultiSinkFansOut(t *testing.T) {
	a := NewMemorySink()
	b := NewMemorySink()
	multi := MultiSink{a, nil, b}

	multi.Log(Entry{Message: "fan out"})
	require.Len(t, a.Entries(), 1)
	require.Len(t, b.Entries(), 1)
}

func TestMemorySinkReset(t *testing.T) {
	sink := NewMemorySink()
	sink.Log(Entry{Message: "one"})
	sink.Log(Entry{Message: "two"})
	require.Len(t, sink.Entries(), 2)
	sink.Reset()
	assert.Empty(t, sink.Entries())
}

func TestNilWriterSinkIsSafe(t *testing.T) {
	var sink *WriterSink
	sink.Log(Entry{Message: "dropped"})
	NopSink{}.Log(Entry{Message: "dropped"})
}
