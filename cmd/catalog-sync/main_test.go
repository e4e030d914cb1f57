package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhirupbose899-web/orephia/internal/domain/product"
)

type fakeStore struct {
	mu       sync.Mutex
	known    []string
	upserted map[string]product.Product
	err      error
}

func (f *fakeStore) ListExternalIDs(context.Context) ([]string, error) {
	return f.known, nil
}

func (f *fakeStore) UpsertByExternalID(_ context.Context, p product.Product) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upserted == nil {
		f.upserted = map[string]product.Product{}
	}
	f.upserted[p.ExternalID] = p
	return nil
}

func writeShard(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func newTestSyncer(t *testing.T, store *fakeStore) *syncer {
	t.Helper()
	s, err := newSyncer(context.Background(), store)
	require.NoError(t, err)
	s.newID = func() string { return "generated" }
	return s
}

const linenTee = `{"id":7001,"title":"Linen Tee","body_html":"<p>Washed <b>linen</b><script>alert(1)</script></p>",` +
	`"product_type":"Women","tags":"Linen, summer, linen",` +
	`"variants":[{"price":"45.00","inventory_quantity":3,"option1":"S","option2":"sand"},` +
	`{"price":"40.00","inventory_quantity":5,"option1":"M","option2":"sand"},` +
	`{"price":"40.00","inventory_quantity":-2,"option1":"L","option2":null}],` +
	`"image":{"src":"https://cdn.example.com/tee.jpg","alt":"tee"}}`

func TestParseLine(t *testing.T) {
	s := newTestSyncer(t, &fakeStore{})

	p, err := s.parseLine([]byte(linenTee))
	require.NoError(t, err)

	assert.Equal(t, "7001", p.ExternalID)
	assert.Equal(t, "generated", p.ID)
	assert.Equal(t, "Linen Tee", p.Title)
	assert.Equal(t, "Washed linen", p.Description)
	assert.Equal(t, "women", p.Category)
	assert.Equal(t, []string{"linen", "summer"}, p.Tags)
	assert.True(t, decimal.RequireFromString("40").Equal(p.Price))
	assert.Equal(t, 8, p.Stock)
	assert.Equal(t, []string{"S", "M", "L"}, p.Sizes)
	assert.Equal(t, []string{"sand"}, p.Colors)
	assert.Equal(t, "https://cdn.example.com/tee.jpg", p.ImageURL)
}

func TestParseLine_Rejects(t *testing.T) {
	s := newTestSyncer(t, &fakeStore{})

	tests := []struct {
		name string
		line string
	}{
		{name: "not json", line: `{"id":`},
		{name: "missing id", line: `{"title":"x","variants":[{"price":"1.00"}]}`},
		{name: "missing title", line: `{"id":"a1","variants":[{"price":"1.00"}]}`},
		{name: "no variants", line: `{"id":"a1","title":"x","variants":[]}`},
		{name: "bad price", line: `{"id":"a1","title":"x","variants":[{"price":"abc"}]}`},
		{name: "negative price", line: `{"id":"a1","title":"x","variants":[{"price":"-1"}]}`},
		{name: "fractional id", line: `{"id":1.5,"title":"x","variants":[{"price":"1.00"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.parseLine([]byte(tt.line))
			require.Error(t, err)
		})
	}
}

func TestSyncFiles(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeShard(t, dir, "a.jsonl.gz",
			linenTee,
			``,
			`{"id":"bad"}`,
		),
		writeShard(t, dir, "b.jsonl.gz",
			`{"id":"8002","title":"Wool Coat","variants":[{"price":"420.00","inventory_quantity":2}],"image":null}`,
		),
	}

	store := &fakeStore{known: []string{"8002"}}
	s := newTestSyncer(t, store)

	require.NoError(t, s.syncFiles(context.Background(), files, 2))

	assert.Len(t, store.upserted, 2)
	assert.Contains(t, store.upserted, "7001")
	assert.Contains(t, store.upserted, "8002")
	assert.Equal(t, int64(3), s.stats.lines.Load())
	assert.Equal(t, int64(2), s.stats.synced.Load())
	assert.Equal(t, int64(1), s.stats.skipped.Load())
	assert.Equal(t, int64(1), s.stats.created.Load())
}

func TestSyncFiles_StoreError(t *testing.T) {
	dir := t.TempDir()
	path := writeShard(t, dir, "a.jsonl.gz", linenTee)

	s := newTestSyncer(t, &fakeStore{err: errors.New("connection reset")})

	err := s.syncFiles(context.Background(), []string{path}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestSyncFiles_MissingFile(t *testing.T) {
	s := newTestSyncer(t, &fakeStore{})
	err := s.syncFiles(context.Background(), []string{filepath.Join(t.TempDir(), "nope.jsonl.gz")}, 1)
	require.Error(t, err)
}
