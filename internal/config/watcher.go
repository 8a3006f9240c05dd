package config

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StartWatcher reloads the config when the file changes. fsnotify does the
// fast path; a slow poll on mtime backstops editors that replace the file
// instead of writing it.
func (m *Manager) StartWatcher(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	usePolling := false

	if err != nil {
		log.Printf("config watcher: fsnotify failed (%v), falling back to polling", err)
		usePolling = true
	} else if err := watcher.Add(m.path); err != nil {
		log.Printf("config watcher: cannot watch %s (%v), falling back to polling", m.path, err)
		usePolling = true
		watcher.Close()
	}

	if !usePolling {
		go func() {
			defer watcher.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-watcher.Events:
					if !ok {
						return
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						// Debounce: editors fire write bursts.
						time.Sleep(100 * time.Millisecond)
						if err := m.Reload(); err != nil {
							log.Printf("config watcher: reload failed: %v", err)
						} else {
							log.Printf("config watcher: reloaded %s", m.path)
						}
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					log.Printf("config watcher: %v", err)
				}
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()

		var lastMod time.Time
		if fi, err := os.Stat(m.path); err == nil {
			lastMod = fi.ModTime()
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fi, err := os.Stat(m.path)
				if err != nil {
					continue
				}
				if fi.ModTime().After(lastMod) {
					lastMod = fi.ModTime()
					if err := m.Reload(); err != nil {
						log.Printf("config watcher: poll reload failed: %v", err)
					}
				}
			}
		}
	}()
}
