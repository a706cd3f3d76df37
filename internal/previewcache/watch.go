package previewcache

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/dataset"
	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
)

// Watch drops a version's snapshots when files under its root change. Events
// are coalesced for the configured debounce period. Label directories created
// while watching are added to the watch. Watching stops when ctx
// is cancelled or stop is called; stop waits for the watcher goroutine.
func (c *Cache) Watch(ctx context.Context) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "create_watcher").
			Build()
	}

	owners := make(map[string]conf.DatasetVersion)
	for _, version := range c.roots.Versions() {
		root, _ := c.roots.Root(version)
		layout, err := dataset.LayoutFor(version)
		if err != nil {
			continue
		}
		for _, dir := range watchDirs(c.fs, root, layout) {
			if err := watcher.Add(dir); err != nil {
				GetLogger().Warn("cannot watch dataset directory",
					logger.String("dir", dir),
					logger.Error(err))
				continue
			}
			owners[filepath.Clean(dir)] = version
		}
	}

	GetLogger().Info("watching dataset roots", logger.Int("dirs", len(owners)))

	ctx, cancel := context.WithCancel(ctx)
	d := newDebouncer(c.settings.Debounce, func(v conf.DatasetVersion) {
		c.Invalidate(v, ReasonWatch)
	})

	var wg sync.WaitGroup
	wg.Go(func() {
		defer func() { _ = watcher.Close() }()
		defer d.stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op == fsnotify.Chmod {
					continue
				}
				version, ok := ownerOf(owners, event.Name)
				if !ok {
					continue
				}
				if event.Has(fsnotify.Create) {
					c.watchCreated(watcher, owners, version, event.Name)
				}
				d.trigger(version)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				GetLogger().Warn("dataset watcher error", logger.Error(err))
			}
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}, nil
}

// watchDirs returns root, the fixed directory above the label glob and every
// existing label directory. fsnotify is not recursive.
func watchDirs(fs afero.Fs, root string, layout dataset.Layout) []string {
	dirs := []string{root}

	prefix := root
	for _, part := range strings.Split(layout.LabelDirGlob, string(filepath.Separator)) {
		if strings.ContainsAny(part, "*?[") {
			break
		}
		prefix = filepath.Join(prefix, part)
	}
	if prefix != root {
		dirs = append(dirs, prefix)
	}

	labelDirs, _ := afero.Glob(fs, filepath.Join(root, layout.LabelDirGlob))
	return append(dirs, labelDirs...)
}

// createdWatchDirs returns the directories to start watching after dir was
// created under root: dir itself while it is a partial match of the label
// glob, plus any label directories already inside it.
func createdWatchDirs(fs afero.Fs, root string, layout dataset.Layout, dir string) []string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}
	sep := string(filepath.Separator)
	parts := strings.Split(layout.LabelDirGlob, sep)
	relParts := strings.Split(rel, sep)
	if len(relParts) > len(parts) {
		return nil
	}
	for i, part := range relParts {
		if ok, _ := filepath.Match(parts[i], part); !ok {
			return nil
		}
	}
	if info, err := fs.Stat(dir); err != nil || !info.IsDir() {
		return nil
	}

	if len(relParts) == len(parts) {
		return []string{dir}
	}
	rest := filepath.Join(parts[len(relParts):]...)
	labelDirs, _ := afero.Glob(fs, filepath.Join(dir, rest))
	return append([]string{dir}, labelDirs...)
}

// watchCreated extends the watch to directories created after Watch started.
func (c *Cache) watchCreated(watcher *fsnotify.Watcher, owners map[string]conf.DatasetVersion, version conf.DatasetVersion, name string) {
	root, err := c.roots.Root(version)
	if err != nil {
		return
	}
	layout, err := dataset.LayoutFor(version)
	if err != nil {
		return
	}
	// rescan after each add: a subdirectory created before the watch on its
	// parent existed produces no event
	for added := true; added; {
		added = false
		for _, dir := range createdWatchDirs(c.fs, root, layout, name) {
			if _, seen := owners[filepath.Clean(dir)]; seen {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				GetLogger().Warn("cannot watch new dataset directory",
					logger.String("dir", dir),
					logger.Error(err))
				continue
			}
			owners[filepath.Clean(dir)] = version
			added = true
			GetLogger().Debug("watching new dataset directory", logger.String("dir", dir))
		}
	}
}

// ownerOf maps an event path to the version whose watched directory holds it.
func ownerOf(owners map[string]conf.DatasetVersion, name string) (conf.DatasetVersion, bool) {
	if v, ok := owners[filepath.Dir(name)]; ok {
		return v, true
	}
	v, ok := owners[filepath.Clean(name)]
	return v, ok
}

// debouncer fires fn once per version after events stop for delay.
type debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	fn     func(conf.DatasetVersion)
	timers map[conf.DatasetVersion]*time.Timer
	done   bool
}

func newDebouncer(delay time.Duration, fn func(conf.DatasetVersion)) *debouncer {
	return &debouncer{delay: delay, fn: fn, timers: make(map[conf.DatasetVersion]*time.Timer)}
}

func (d *debouncer) trigger(v conf.DatasetVersion) {
	if d.delay <= 0 {
		d.fn(v)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done {
		return
	}
	if t, ok := d.timers[v]; ok {
		t.Reset(d.delay)
		return
	}
	d.timers[v] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, v)
		done := d.done
		d.mu.Unlock()
		if !done {
			d.fn(v)
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.done = true
	for v, t := range d.timers {
		t.Stop()
		delete(d.timers, v)
	}
}
