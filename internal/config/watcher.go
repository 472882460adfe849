package config

import (
	"context"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StartWatcher monitors the settings file for changes and reloads.
// Falls back to polling when fsnotify is unavailable (e.g. NFS mounts).
func (m *Manager) StartWatcher(ctx context.Context) {
	if m.path == "" {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	usePolling := false

	if err != nil {
		log.Printf("[Config] fsnotify failed (%v), falling back to polling", err)
		usePolling = true
	} else if err := watcher.Add(m.path); err != nil {
		log.Printf("[Config] Failed to watch %s (%v), falling back to polling", m.path, err)
		usePolling = true
		watcher.Close()
	}

	go func() {
		if usePolling {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := m.Reload(); err != nil {
						log.Printf("[Config] Reload error: %v", err)
					}
				}
			}
		}
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
					log.Println("[Config] Settings changed, reloading")
					// Debounce partial writes from editors.
					time.Sleep(100 * time.Millisecond)
					if err := m.Reload(); err != nil {
						log.Printf("[Config] Reload error: %v", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[Config] Watcher error: %v", err)
			}
		}
	}()
}
