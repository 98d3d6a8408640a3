package web

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// templateWatcher calls onChange whenever a file below the templates dir changes
type templateWatcher struct {
	watcher   *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func watchTemplates(dir string, onChange func()) (*templateWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// fsnotify is not recursive: add every directory
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return nil, err
	}

	tw := &templateWatcher{watcher: w, done: make(chan struct{})}
	go tw.loop(onChange)
	log.Printf("[WEB]: Watching templates in %s for changes", dir)
	return tw, nil
}

func (tw *templateWatcher) loop(onChange func()) {
	defer close(tw.done)
	for {
		select {
		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := tw.watcher.Add(event.Name); err != nil {
						log.Printf("[WEB]: Warning: cannot watch new template dir %s: %v", event.Name, err)
					}
				}
			}
			log.Printf("[WEB]: Template change detected (%s), reloading", event)
			onChange()
		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[WEB]: Template watcher error: %v", err)
		}
	}
}

// Close stops the watcher and waits for its goroutine
func (tw *templateWatcher) Close() error {
	tw.closeOnce.Do(func() {
		tw.closeErr = tw.watcher.Close()
		<-tw.done
	})
	return tw.closeErr
}
