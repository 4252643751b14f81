package gist

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func runSync(t *testing.T, f Fetcher, opts SyncOptions) (*Result, string) {
	t.Helper()
	var out bytes.Buffer
	res, err := NewSynchronizer(f, &out).Run(context.Background(), opts)
	require.NoError(t, err)
	return res, out.String()
}

func TestSyncOrdering(t *testing.T) {
	path := WriteTestCache(t, TestRecord("old1", ""), TestRecord("b", "cached b"), TestRecord("old2", ""))
	f := NewStubFetcher(TestRecord("a", ""), TestRecord("c", ""))

	res, out := runSync(t, f, SyncOptions{Output: path, Curated: []string{"a", "b", "missing", "c", "a"}})
	require.True(t, res.Written)
	require.Equal(t, []string{"a", "missing", "c"}, f.Calls, "Only uncached ids should be fetched")
	require.Equal(t, []string{"missing"}, res.Failed)
	require.Contains(t, out, "[1/3] Fetching a...")
	require.Contains(t, out, "Wrote 5 gists to "+path)

	c := LoadCollection(path)
	require.Equal(t, []string{"a", "b", "c", "old1", "old2"}, c.IDs())
	require.Equal(t, "cached b", c[1].Description)
}

func TestSyncIdempotent(t *testing.T) {
	path := WriteTestCache(t, TestRecord("z", ""))
	f := NewStubFetcher(TestRecord("a", ""), TestRecord("b", ""))
	opts := SyncOptions{Output: path, Curated: []string{"a", "b"}}

	runSync(t, f, opts)
	first := ReadTestCache(t, path)
	info, err := os.Stat(path)
	require.NoError(t, err)

	f.Calls = nil
	res, out := runSync(t, f, opts)
	require.True(t, res.UpToDate)
	require.False(t, res.Written)
	require.Empty(t, f.Calls)
	require.Contains(t, out, "up to date")
	require.Equal(t, first, ReadTestCache(t, path))

	info2, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, info.ModTime(), info2.ModTime(), "File should not be rewritten")
}

func TestSyncReorderWithoutFetch(t *testing.T) {
	path := WriteTestCache(t, TestRecord("a", ""), TestRecord("b", ""))
	f := NewStubFetcher()

	res, _ := runSync(t, f, SyncOptions{Output: path, Curated: []string{"b", "a"}})
	require.True(t, res.Written)
	require.Empty(t, f.Calls)
	require.Equal(t, []string{"b", "a"}, LoadCollection(path).IDs())
}

func TestSyncDelete(t *testing.T) {
	path := WriteTestCache(t, TestRecord("a", ""), TestRecord("b", ""), TestRecord("c", ""))
	f := NewStubFetcher()

	res, out := runSync(t, f, SyncOptions{Output: path, Explicit: []string{"b"}, Delete: true, Curated: []string{"x"}})
	require.Equal(t, 1, res.Removed)
	require.Empty(t, f.Calls, "Delete should never fetch")
	require.Contains(t, out, "Removed 1 gists")
	require.Equal(t, []string{"a", "c"}, LoadCollection(path).IDs())
}

func TestSyncDeleteWithoutIDs(t *testing.T) {
	path := WriteTestCache(t, TestRecord("a", ""))
	before := ReadTestCache(t, path)

	_, err := NewSynchronizer(NewStubFetcher(), nil).Run(context.Background(), SyncOptions{
		Output:  path,
		Delete:  true,
		Curated: []string{"a"},
	})
	require.ErrorIs(t, err, ErrDeleteWithoutIdentifiers)
	require.Equal(t, before, ReadTestCache(t, path))
}

func TestSyncForce(t *testing.T) {
	stale := TestRecord("x", "stale")
	fresh := TestRecord("x", "fresh")
	fresh.HTMLURL = "https://gist.github.com/someone/x"

	path := WriteTestCache(t, stale)
	runSync(t, NewStubFetcher(fresh), SyncOptions{Output: path, Curated: []string{"x"}})
	require.Equal(t, "stale", LoadCollection(path)[0].Description, "Cached gist should be kept without force")

	f := NewStubFetcher(fresh)
	runSync(t, f, SyncOptions{Output: path, Curated: []string{"x"}, Force: true})
	require.Equal(t, []string{"x"}, f.Calls)
	c := LoadCollection(path)
	require.Equal(t, "fresh", c[0].Description)
	require.Equal(t, "https://gist.github.com/someone/x", c[0].HTMLURL)
}

func TestSyncExplicitAlwaysFetches(t *testing.T) {
	path := WriteTestCache(t, TestRecord("a", "stale"), TestRecord("b", ""))
	f := NewStubFetcher(TestRecord("a", "fresh"))

	res, _ := runSync(t, f, SyncOptions{Output: path, Explicit: []string{"a"}, Curated: []string{"b"}})
	require.Equal(t, []string{"a"}, f.Calls)
	require.Equal(t, []string{"a"}, res.Fetched)

	c := LoadCollection(path)
	require.Equal(t, []string{"b", "a"}, c.IDs(), "Uncurated explicit ids go after the curated ones")
	require.Equal(t, "fresh", c[1].Description)
}

func TestSyncExplicitKeepsCuratedPosition(t *testing.T) {
	path := WriteTestCache(t, TestRecord("a", ""), TestRecord("b", ""), TestRecord("c", "stale"), TestRecord("old", ""))
	f := NewStubFetcher(TestRecord("c", "fresh"))
	curated := []string{"a", "b", "c"}

	res, _ := runSync(t, f, SyncOptions{Output: path, Curated: curated, Explicit: []string{"c"}})
	require.Equal(t, []string{"c"}, f.Calls)
	require.Equal(t, []string{"c"}, res.Fetched)

	c := LoadCollection(path)
	require.Equal(t, []string{"a", "b", "c", "old"}, c.IDs())
	require.Equal(t, "fresh", c[2].Description)

	f.Calls = nil
	res, _ = runSync(t, f, SyncOptions{Output: path, Curated: curated})
	require.True(t, res.UpToDate, "A plain run after refreshing one gist should not rewrite")
	require.Empty(t, f.Calls)
}

func TestSyncPruneWithExplicit(t *testing.T) {
	path := WriteTestCache(t, TestRecord("a", ""), TestRecord("b", ""), TestRecord("c", ""), TestRecord("old", ""))
	f := NewStubFetcher(TestRecord("b", "fresh"), TestRecord("extra", ""))

	res, _ := runSync(t, f, SyncOptions{
		Output:   path,
		Curated:  []string{"a", "b", "c"},
		Explicit: []string{"b", "extra"},
		Prune:    true,
	})
	require.Equal(t, []string{"b", "extra"}, f.Calls)
	require.Equal(t, 1, res.Removed)

	c := LoadCollection(path)
	require.Equal(t, []string{"a", "b", "c", "extra"}, c.IDs(), "Curated gists must survive a prune")
	require.Equal(t, "fresh", c[1].Description)
}

func TestSyncReturnedIDMismatch(t *testing.T) {
	path := WriteTestCache(t, TestRecord("a", "cached"))
	f := NewStubFetcher()
	f.Records["a"] = TestRecord("renamed", "other")

	res, _ := runSync(t, f, SyncOptions{Output: path, Curated: []string{"a"}, Force: true})
	require.Empty(t, res.Fetched)
	require.Equal(t, []string{"a"}, res.Failed)

	c := LoadCollection(path)
	require.Equal(t, []string{"a"}, c.IDs())
	require.Equal(t, "cached", c[0].Description)
}

func TestSyncFailureFallsBackToCache(t *testing.T) {
	path := WriteTestCache(t, TestRecord("a", "cached"))
	f := NewStubFetcher()
	f.Errors["a"] = errors.New("connection reset")

	res, _ := runSync(t, f, SyncOptions{Output: path, Curated: []string{"a", "b"}, Force: true})
	require.Equal(t, []string{"a", "b"}, res.Failed)

	c := LoadCollection(path)
	require.Equal(t, []string{"a"}, c.IDs())
	require.Equal(t, "cached", c[0].Description)
}

func TestSyncPrune(t *testing.T) {
	path := WriteTestCache(t, TestRecord("a", ""), TestRecord("old", ""), TestRecord("b", ""))
	f := NewStubFetcher()

	res, _ := runSync(t, f, SyncOptions{Output: path, Curated: []string{"b", "a"}, Prune: true})
	require.True(t, res.Written)
	require.Equal(t, 1, res.Removed)
	require.Equal(t, []string{"b", "a"}, LoadCollection(path).IDs())
}

func TestSyncNoIdentifiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gists.json")
	_, err := NewSynchronizer(NewStubFetcher(), nil).Run(context.Background(), SyncOptions{
		Output:  path,
		Curated: []string{" ", ""},
	})
	require.ErrorIs(t, err, ErrNoIdentifiers)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestSyncDisallowedOutput(t *testing.T) {
	f := NewStubFetcher(TestRecord("a", ""))
	_, err := NewSynchronizer(f, nil).Run(context.Background(), SyncOptions{
		Output:   filepath.Join(t.TempDir(), "index.html"),
		Explicit: []string{"a"},
	})
	require.ErrorIs(t, err, ErrDisallowedOutput)
	require.Empty(t, f.Calls)
}

func TestSyncCancelled(t *testing.T) {
	path := WriteTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewStubFetcher()
	f.Errors["a"] = context.Canceled
	_, err := NewSynchronizer(f, nil).Run(ctx, SyncOptions{Output: path, Curated: []string{"a"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMerge(t *testing.T) {
	cached := Collection{TestRecord("c1", ""), TestRecord("a", "cached"), TestRecord("c2", "")}
	fetched := map[string]*Record{"a": TestRecord("a", "fetched"), "n": TestRecord("n", "")}

	tests := []struct {
		name          string
		desired       []string
		keepUnclaimed bool
		want          []string
	}{
		{"keep unclaimed", []string{"n", "a", "gone"}, true, []string{"n", "a", "c1", "c2"}},
		{"prune unclaimed", []string{"n", "a", "gone"}, false, []string{"n", "a"}},
		{"duplicate desired", []string{"a", "a", "c2"}, true, []string{"a", "c2", "c1"}},
		{"nothing desired", nil, true, []string{"c1", "a", "c2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.desired, fetched, cached, tt.keepUnclaimed)
			require.Equal(t, tt.want, got.IDs())
		})
	}

	got := Merge([]string{"a"}, fetched, cached, true)
	require.Equal(t, "fetched", got[0].Description, "Fetched record should win over cache")
}
