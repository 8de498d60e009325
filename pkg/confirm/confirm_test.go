package confirm

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRecords struct {
	mu      sync.Mutex
	records []Record
}

func (m *memoryRecords) Append(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryRecords) snapshot() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

func TestPolicyConfirmerAlwaysContinue(t *testing.T) {
	store := &memoryRecords{}
	c := NewPolicyConfirmer(AlwaysContinue, store)

	choice := c.Confirm(Prompt{Site: "a.go:10", Message: "headless"})
	assert.Equal(t, ChoiceContinue, choice)

	records := store.snapshot()
	require.Len(t, records, 1)
	assert.True(t, records[0].Auto)
	assert.NotEmpty(t, records[0].ID)
}

func TestPolicyConfirmerAlwaysInterrupt(t *testing.T) {
	c := NewPolicyConfirmer(AlwaysInterrupt, nil)
	assert.Equal(t, ChoiceInterrupt, c.Confirm(Prompt{Message: "stop on first failure"}))
}

func TestPolicyConfirmerNilPolicyDefaultsToContinue(t *testing.T) {
	c := NewPolicyConfirmer(nil, nil)
	assert.Equal(t, ChoiceContinue, c.Confirm(Prompt{Message: "default"}))
}

func TestPolicyConfirmerNormalizesBogusChoice(t *testing.T) {
	c := NewPolicyConfirmer(func(Prompt) Choice { return Choice("maybe") }, nil)
	assert.Equal(t, ChoiceContinue, c.Confirm(Prompt{Message: "bogus"}))
}

func TestMuteListIdempotentAdd(t *testing.T) {
	m := NewMuteList()
	first := m.Add("a.go:10", time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	second := m.Add("a.go:10", time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, first.MutedAt, second.MutedAt)
	assert.Len(t, m.Snapshot(), 1)

	m.Remove("a.go:10")
	assert.False(t, m.Muted("a.go:10"))
}

func TestMuteListEmptySiteNeverMuted(t *testing.T) {
	m := NewMuteList()
	assert.False(t, m.Muted(""))
}

func TestRecordStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "confirmations.jsonl")
	store, err := NewRecordStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	resolved := time.Date(2025, 6, 1, 9, 0, 1, 0, time.UTC)
	require.NoError(t, store.Append(Record{
		ID:       "p1",
		Site:     "a.go:10",
		Message:  "broken",
		Choice:   ChoiceInterrupt,
		Raised:   resolved.Add(-time.Second),
		Resolved: &resolved,
	}))

	records, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ChoiceInterrupt, records[0].Choice)
	assert.Equal(t, "a.go:10", records[0].Site)
}

func TestRecordStoreAppendAfterClose(t *testing.T) {
	store, err := NewRecordStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.Error(t, store.Append(Record{ID: "late"}))
}
