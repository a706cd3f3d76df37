package previewcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/observability/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// go-cache's janitor only stops when the cache is garbage collected
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

func testSettings() *conf.CacheSettings {
	return &conf.CacheSettings{TTL: time.Minute, Cleanup: time.Minute, Debounce: 20 * time.Millisecond}
}

func buildTiny(t *testing.T, fs afero.Fs, root string, labels map[string]int) {
	t.Helper()

	var words string
	for id, n := range labels {
		words += fmt.Sprintf("%s\tlabel %s\n", id, id)
		dir := filepath.Join(root, "train", id, "images")
		require.NoError(t, fs.MkdirAll(dir, 0o755))
		for i := range n {
			require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, fmt.Sprintf("%s_%d.JPEG", id, i)), []byte("x"), 0o644))
		}
	}
	require.NoError(t, afero.WriteFile(fs, filepath.Join(root, "words.txt"), []byte(words), 0o644))
}

func TestGetCachesAndIgnoresShuffleInKey(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	buildTiny(t, fs, "/tiny", map[string]int{"n01": 3, "n02": 2})
	c := New(fs, conf.RootDirs{conf.VersionTiny: "/tiny"}, testSettings())

	q := Query{Version: conf.VersionTiny, SamplePerLabel: 2, Labelspace: conf.LabelspaceObserved}
	first, err := c.Get(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, first.Items, 4)
	assert.Len(t, first.Labels, 2)
	assert.Len(t, first.Counts, 2)

	q.Shuffle = true
	second, err := c.Get(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, second.Query.Shuffle)
	assert.Equal(t, first.Items, second.Items, "shuffle keeps scan order")
	assert.False(t, first.Query.Shuffle, "cached snapshot untouched")

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Scans)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestGetDefaultsLabelspace(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	buildTiny(t, fs, "/tiny", map[string]int{"n01": 1})
	c := New(fs, conf.RootDirs{conf.VersionTiny: "/tiny"}, testSettings())

	snap, err := c.Get(context.Background(), Query{Version: conf.VersionTiny, SamplePerLabel: 5})
	require.NoError(t, err)
	assert.Equal(t, conf.LabelspaceObserved, snap.Query.Labelspace)
}

func TestGetErrors(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	buildTiny(t, fs, "/tiny", map[string]int{"n01": 1})
	c := New(fs, conf.RootDirs{conf.VersionTiny: "/tiny"}, testSettings())
	ctx := context.Background()

	_, err := c.Get(ctx, Query{Version: "mini", SamplePerLabel: 1})
	assert.True(t, errors.IsUnsupportedVersion(err))

	_, err = c.Get(ctx, Query{Version: conf.VersionFull, SamplePerLabel: 1})
	assert.True(t, errors.IsConfigError(err), "no root for full")

	_, err = c.Get(ctx, Query{Version: conf.VersionTiny, SamplePerLabel: -1})
	assert.True(t, errors.IsConfigError(err))

	assert.Zero(t, c.Stats().Entries, "failures are not cached")
}

func TestGetConcurrentMissesShareOneScan(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	buildTiny(t, fs, "/tiny", map[string]int{"n01": 20, "n02": 20, "n03": 20})
	c := New(fs, conf.RootDirs{conf.VersionTiny: "/tiny"}, testSettings())

	q := Query{Version: conf.VersionTiny, SamplePerLabel: 10, Labelspace: conf.LabelspaceDeclared}

	var wg sync.WaitGroup
	results := make([]*Snapshot, 16)
	for i := range results {
		wg.Go(func() {
			snap, err := c.Get(context.Background(), q)
			assert.NoError(t, err)
			results[i] = snap
		})
	}
	wg.Wait()

	for _, snap := range results {
		require.NotNil(t, snap)
		assert.Len(t, snap.Items, 30)
	}
	assert.LessOrEqual(t, c.Stats().Scans, uint64(16))
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestGetHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	buildTiny(t, fs, "/tiny", map[string]int{"n01": 1})
	c := New(fs, conf.RootDirs{conf.VersionTiny: "/tiny"}, testSettings())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a cancelled context may still win the race against a fast scan
	_, err := c.Get(ctx, Query{Version: conf.VersionTiny, SamplePerLabel: 1})
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestInvalidateAndFlush(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	buildTiny(t, fs, "/tiny", map[string]int{"n01": 2})
	buildFull(t, fs, "/full")
	c := New(fs, conf.RootDirs{conf.VersionTiny: "/tiny", conf.VersionFull: "/full"}, testSettings())
	ctx := context.Background()

	for _, q := range []Query{
		{Version: conf.VersionTiny, SamplePerLabel: 10},
		{Version: conf.VersionTiny, SamplePerLabel: 20},
		{Version: conf.VersionFull, SamplePerLabel: 10},
	} {
		_, err := c.Get(ctx, q)
		require.NoError(t, err)
	}
	require.Equal(t, 3, c.Stats().Entries)

	assert.Equal(t, 2, c.Invalidate(conf.VersionTiny, ReasonManual))
	assert.Equal(t, 1, c.Stats().Entries)

	c.Flush()
	assert.Zero(t, c.Stats().Entries)
}

// pausingFs holds the first open of a matching directory until release is
// closed.
type pausingFs struct {
	afero.Fs
	suffix  string
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func (p *pausingFs) Open(name string) (afero.File, error) {
	if strings.HasSuffix(name, p.suffix) {
		p.once.Do(func() {
			close(p.reached)
			<-p.release
		})
	}
	return p.Fs.Open(name)
}

func TestInvalidateDuringScanForcesRescan(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	buildTiny(t, base, "/tiny", map[string]int{"n01": 2})
	fs := &pausingFs{
		Fs:      base,
		suffix:  filepath.Join("n01", "images"),
		reached: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := New(fs, conf.RootDirs{conf.VersionTiny: "/tiny"}, testSettings())
	q := Query{Version: conf.VersionTiny, SamplePerLabel: 5}

	type result struct {
		snap *Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := c.Get(context.Background(), q)
		done <- result{snap, err}
	}()
	<-fs.reached

	// the label directories were already listed when n02 appears
	buildTiny(t, base, "/tiny", map[string]int{"n01": 2, "n02": 1})
	c.Invalidate(conf.VersionTiny, ReasonManual)
	close(fs.release)

	stale := <-done
	require.NoError(t, stale.err)
	assert.Len(t, stale.snap.Labels, 1)
	assert.Zero(t, c.Stats().Entries, "stale scan is not cached")

	fresh, err := c.Get(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, fresh.Labels, 2)
	assert.Len(t, fresh.Items, 3)
	assert.Equal(t, uint64(2), c.Stats().Scans)
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestFlushDuringScanSkipsStore(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	buildTiny(t, base, "/tiny", map[string]int{"n01": 1})
	fs := &pausingFs{
		Fs:      base,
		suffix:  filepath.Join("n01", "images"),
		reached: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := New(fs, conf.RootDirs{conf.VersionTiny: "/tiny"}, testSettings())

	done := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), Query{Version: conf.VersionTiny, SamplePerLabel: 1})
		done <- err
	}()
	<-fs.reached
	c.Flush()
	close(fs.release)

	require.NoError(t, <-done)
	assert.Zero(t, c.Stats().Entries)
}

func buildFull(t *testing.T, fs afero.Fs, root string) {
	t.Helper()
	dir := filepath.Join(root, "ILSVRC", "Data", "CLS-LOC", "train", "n01440764")
	require.NoError(t, fs.MkdirAll(dir, 0o755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "n01440764_1.JPEG"), nil, 0o644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(root, "synset_words.txt"), []byte("n01440764 tench, Tinca tinca\n"), 0o644))
}

func TestMetricsAreRecorded(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	dm, err := metrics.NewDatasetMetrics(registry)
	require.NoError(t, err)
	cm, err := metrics.NewCacheMetrics(registry)
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	buildTiny(t, fs, "/tiny", map[string]int{"n01": 2})
	c := New(fs, conf.RootDirs{conf.VersionTiny: "/tiny"}, testSettings(), WithMetrics(dm, cm))

	q := Query{Version: conf.VersionTiny, SamplePerLabel: 10}
	_, err = c.Get(context.Background(), q)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), q)
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["labelgrid_index_scans_total"])
	assert.True(t, names["labelgrid_cache_lookups_total"])
	assert.True(t, names["labelgrid_cache_entries"])
}

func TestWatchInvalidatesOnChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fs := afero.NewOsFs()
	buildTiny(t, fs, root, map[string]int{"n01": 1})

	c := New(fs, conf.RootDirs{conf.VersionTiny: root}, testSettings())
	q := Query{Version: conf.VersionTiny, SamplePerLabel: 10}

	snap, err := c.Get(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)

	stop, err := c.Watch(context.Background())
	require.NoError(t, err)
	defer stop()

	newImage := filepath.Join(root, "train", "n01", "images", "n01_new.JPEG")
	require.NoError(t, os.WriteFile(newImage, []byte("x"), 0o644))

	assert.Eventually(t, func() bool { return c.Stats().Entries == 0 }, 5*time.Second, 10*time.Millisecond)

	snap, err = c.Get(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, snap.Items, 2)
}

func TestWatchStopsWithContext(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fs := afero.NewOsFs()
	buildTiny(t, fs, root, map[string]int{"n01": 1})
	c := New(fs, conf.RootDirs{conf.VersionTiny: root}, testSettings())

	ctx, cancel := context.WithCancel(context.Background())
	stop, err := c.Watch(ctx)
	require.NoError(t, err)

	cancel()
	stop()
	stop()
}

func TestDebouncerCoalesces(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	fired := make(map[conf.DatasetVersion]int)
	d := newDebouncer(30*time.Millisecond, func(v conf.DatasetVersion) {
		mu.Lock()
		fired[v]++
		mu.Unlock()
	})
	defer d.stop()

	for range 5 {
		d.trigger(conf.VersionTiny)
	}
	d.trigger(conf.VersionFull)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fired[conf.VersionTiny] == 1 && fired[conf.VersionFull] == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWatchDirs(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	buildTiny(t, fs, "/tiny", map[string]int{"n01": 1, "n02": 1})

	dirs := watchDirs(fs, "/tiny", tinyLayout(t))
	assert.Equal(t, []string{"/tiny", "/tiny/train", "/tiny/train/n01/images", "/tiny/train/n02/images"}, dirs)
}

func TestCreatedWatchDirs(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	buildTiny(t, fs, "/tiny", map[string]int{"n01": 1, "n02": 1})
	require.NoError(t, fs.MkdirAll("/tiny/train/n03", 0o755))
	require.NoError(t, fs.MkdirAll("/tiny/val/images", 0o755))
	layout := tinyLayout(t)

	tests := []struct {
		name string
		dir  string
		want []string
	}{
		{"label parent with images", "/tiny/train/n02", []string{"/tiny/train/n02", "/tiny/train/n02/images"}},
		{"label parent still empty", "/tiny/train/n03", []string{"/tiny/train/n03"}},
		{"label directory", "/tiny/train/n01/images", []string{"/tiny/train/n01/images"}},
		{"outside label glob", "/tiny/val/images", nil},
		{"file not directory", "/tiny/words.txt", nil},
		{"outside root", "/other/train/n01", nil},
		{"root itself", "/tiny", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, createdWatchDirs(fs, "/tiny", layout, tt.dir))
		})
	}
}

func TestWatchPicksUpNewLabelDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fs := afero.NewOsFs()
	buildTiny(t, fs, root, map[string]int{"n01": 1})

	c := New(fs, conf.RootDirs{conf.VersionTiny: root}, testSettings())
	q := Query{Version: conf.VersionTiny, SamplePerLabel: 10}
	_, err := c.Get(context.Background(), q)
	require.NoError(t, err)

	stop, err := c.Watch(context.Background())
	require.NoError(t, err)
	defer stop()

	images := filepath.Join(root, "train", "n02", "images")
	require.NoError(t, os.MkdirAll(images, 0o755))
	assert.Eventually(t, func() bool { return c.Stats().Entries == 0 }, 5*time.Second, 10*time.Millisecond)

	snap, err := c.Get(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)

	// only a watch on the new images directory sees this write
	require.NoError(t, os.WriteFile(filepath.Join(images, "n02_0.JPEG"), []byte("x"), 0o644))
	assert.Eventually(t, func() bool { return c.Stats().Entries == 0 }, 5*time.Second, 10*time.Millisecond)

	snap, err = c.Get(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, snap.Items, 2)
	assert.Len(t, snap.Labels, 2)
}
