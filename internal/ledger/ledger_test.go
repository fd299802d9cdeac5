package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	ts := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	return []Record{
		{DocID: "doc_1", Filename: "a.txt", ChunkIndex: 0, Text: "alpha", CreatedAt: ts},
		{DocID: "doc_1", Filename: "a.txt", ChunkIndex: 1, Text: "beta", CreatedAt: ts},
		{DocID: "doc_2", Filename: "b.pdf", ChunkIndex: 0, Text: "gamma", CreatedAt: ts.Add(time.Minute)},
	}
}

func TestLedger_AppendGetFilter(t *testing.T) {
	l := New()
	l.Append(sampleRecords()...)

	assert.Equal(t, 3, l.Size())
	r, ok := l.Get(2)
	require.True(t, ok)
	assert.Equal(t, "gamma", r.Text)

	_, ok = l.Get(3)
	assert.False(t, ok)
	_, ok = l.Get(-1)
	assert.False(t, ok)

	kept := l.Filter(func(r Record) bool { return r.DocID != "doc_1" })
	assert.Equal(t, []int{2}, kept)
	assert.Empty(t, l.Filter(func(Record) bool { return false }))
}

func TestLedger_Truncate(t *testing.T) {
	l := New()
	l.Append(sampleRecords()...)
	l.Truncate(1)
	assert.Equal(t, 1, l.Size())
	l.Truncate(5)
	assert.Equal(t, 1, l.Size())
	l.Truncate(-1)
	assert.Equal(t, 0, l.Size())
}

func TestLedger_RecordsIsCopy(t *testing.T) {
	l := New()
	l.Append(sampleRecords()...)
	recs := l.Records()
	recs[0].Text = "mutated"
	r, _ := l.Get(0)
	assert.Equal(t, "alpha", r.Text)
}

func TestLedger_SaveLoad(t *testing.T) {
	// Given a ledger with records
	path := filepath.Join(t.TempDir(), "metadata.json")
	l := New()
	l.Append(sampleRecords()...)

	// When it is saved and loaded back
	require.NoError(t, l.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)

	// Then every record round-trips in order
	assert.Equal(t, l.Records(), loaded.Records())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"doc_id": "doc_1"`)
	assert.Contains(t, string(raw), `"chunk_index": 1`)
}

func TestLoad_MissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	l, err := Load(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, l.Size())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not":"an array"`), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	null := filepath.Join(dir, "null.json")
	require.NoError(t, os.WriteFile(null, []byte(`null`), 0o644))
	l, err = Load(null)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Size())
}
