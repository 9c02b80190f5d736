package engine

import (
	"context"
	"log/slog"
)

// RebuildStats summarizes one full rebuild pass.
type RebuildStats struct {
	Indexed  int `json:"indexed"`
	Skipped  int `json:"skipped"`
	Removed  int `json:"removed"`
	Degraded int `json:"degraded"`
}

// Rebuild walks the workspace and brings the whole index up to date:
// new or changed files are parsed and upserted, unchanged files are
// skipped by checksum, and entries whose files vanished are removed.
// The tag hierarchy is rebuilt from the resulting associations. Honors
// ctx cancellation between files and returns partial stats with ctx.Err.
func (e *Engine) Rebuild(ctx context.Context) (RebuildStats, error) {
	var stats RebuildStats

	metas, err := e.store.List("")
	if err != nil {
		return stats, err
	}
	sctx, cancel := e.storageCtx(ctx)
	checksums, err := e.idx.AllChecksums(sctx)
	cancel()
	if err != nil {
		return stats, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		disk[m.ID] = struct{}{}
		if checksums[m.ID] == m.Checksum {
			stats.Skipped++
			continue
		}
		data, err := e.store.Read(m.ID)
		if err != nil {
			e.log.Warn("rebuild: read failed", slog.String("id", m.ID), slog.String("error", err.Error()))
			continue
		}
		sctx, cancel := e.storageCtx(ctx)
		indexed, _, degraded := e.indexFile(sctx, m.ID, data, true)
		cancel()
		if indexed {
			stats.Indexed++
			if degraded {
				stats.Degraded++
			}
		}
	}

	for id := range checksums {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if _, ok := disk[id]; ok {
			continue
		}
		sctx, cancel := e.storageCtx(ctx)
		if e.removeFile(sctx, id) {
			stats.Removed++
		}
		cancel()
	}

	// Links parsed before their targets existed resolve on a second look.
	if stats.Indexed > 0 {
		sctx, cancel := e.storageCtx(ctx)
		e.reresolveBroken(sctx, "")
		cancel()
	}

	sctx, cancel = e.storageCtx(ctx)
	pairs, err := e.idx.DocumentTagPairs(sctx)
	cancel()
	if err != nil {
		return stats, err
	}
	e.hier.Rebuild(pairs)

	e.log.Info("rebuild: done",
		slog.Int("indexed", stats.Indexed),
		slog.Int("skipped", stats.Skipped),
		slog.Int("removed", stats.Removed),
		slog.Int("degraded", stats.Degraded))
	return stats, nil
}
