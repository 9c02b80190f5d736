package engine

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on root and feeds change events into
// the debounce queue until ctx is cancelled. Every file event funnels
// through Enqueue; the pipeline decides upsert vs delete by looking at
// the disk, which makes create/write/remove/rename handling uniform.
//
// New directories created at runtime are added to the watch list and
// their contents enqueued. Rename events additionally schedule a short
// reconciliation pass, because fsnotify reports only the old path.
func (e *Engine) Watch(ctx context.Context, root string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	e.log.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			e.log.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			e.reconcile()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if strings.HasPrefix(filepath.Base(absPath), ".") {
						continue
					}
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						e.log.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						e.log.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					e.enqueueDir(root, absPath)
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove) != 0:
				e.Enqueue(rel)

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the OLD path only; the new path arrives
				// as a separate Create if it lands in a watched dir.
				e.Enqueue(rel)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.log.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile enqueues every divergence between disk and index, catching
// moves whose destination event was missed.
func (e *Engine) reconcile() {
	ctx, cancel := e.storageCtx(context.Background())
	defer cancel()

	checksums, err := e.idx.AllChecksums(ctx)
	if err != nil {
		e.log.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := e.store.List("")
	if err != nil {
		e.log.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.ID] = m.Checksum
	}
	for id := range checksums {
		if _, ok := disk[id]; !ok {
			e.Enqueue(id)
		}
	}
	for id, cs := range disk {
		if checksums[id] != cs {
			e.Enqueue(id)
		}
	}
}

// enqueueDir enqueues tracked files found under a newly created
// directory.
func (e *Engine) enqueueDir(root, dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		e.Enqueue(filepath.ToSlash(rel))
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to
// the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
