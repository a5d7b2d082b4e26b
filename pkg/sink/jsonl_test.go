package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRecords(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestJSONLSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset", "records.jsonl")
	ctx := context.Background()

	s, err := NewJSONLSink(path)
	require.NoError(t, err)
	require.NoError(t, s.Push(ctx, Record{"username": "alice", "post_shortcode": "p1"}))
	require.NoError(t, s.Push(ctx, Record{"username": "alice", "post_shortcode": "p2"}))
	require.NoError(t, s.Close())

	// Reopening appends rather than truncates.
	s, err = NewJSONLSink(path)
	require.NoError(t, err)
	require.NoError(t, s.Push(ctx, Record{"username": "bob", "post_shortcode": "p3"}))
	require.NoError(t, s.Close())

	records := readRecords(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, "p1", records[0]["post_shortcode"])
	assert.Equal(t, "p3", records[2]["post_shortcode"])
	assert.Equal(t, "bob", records[2]["username"])
}
