package server

import (
	"context"
	"os"
	"path/filepath"
	"time"

	channerics "github.com/niceyeti/channerics/channels"

	"chairsolver/analysis"
	"chairsolver/query"
)

const pollResolution = time.Millisecond * 500

type progressSnapshot = analysis.ProgressReport

// watchProgress polls progress.json's mtime and emits a fresh snapshot
// whenever it changes, closing the returned channel when ctx is done.
func watchProgress(ctx context.Context, outDir string) <-chan *progressSnapshot {
	out := make(chan *progressSnapshot, 1)
	path := filepath.Join(outDir, "progress.json")

	go func() {
		defer close(out)
		ticker := channerics.NewTicker(ctx.Done(), pollResolution)
		var lastMod time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker:
				info, err := os.Stat(path)
				if err != nil {
					continue
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				lastMod = info.ModTime()

				snapshot, err := query.Progress(outDir)
				if err != nil {
					continue
				}

				// Idempotent updates: a late reader only needs the latest
				// snapshot, so replace a stale buffered one rather than block.
				select {
				case out <- snapshot:
				case <-out:
					out <- snapshot
				}
			}
		}
	}()

	return out
}
