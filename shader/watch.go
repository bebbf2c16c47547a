package shader

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DirWatcher evicts cached sources from a Chain when files in the watched
// directories change, then reports the shader name.
type DirWatcher struct {
	w        *fsnotify.Watcher
	chain    *Chain
	onChange func(name string)
	wg       sync.WaitGroup
}

// Watch starts watching dirs. onChange may be nil. It runs on the watcher
// goroutine, so callers that rebuild GPU resources must hand the name to
// the thread that owns the device.
func Watch(chain *Chain, dirs []string, onChange func(name string)) (*DirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("shader: watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("shader: watch %s: %w", dir, err)
		}
	}
	dw := &DirWatcher{w: w, chain: chain, onChange: onChange}
	dw.wg.Add(1)
	go dw.loop()
	return dw, nil
}

func (dw *DirWatcher) loop() {
	defer dw.wg.Done()
	for {
		select {
		case ev, ok := <-dw.w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name := nameOf(ev.Name)
			if name == "" {
				continue
			}
			dw.chain.Invalidate(name)
			slogger().Info("shader: source changed", "name", name, "op", ev.Op.String())
			if dw.onChange != nil {
				dw.onChange(name)
			}
		case err, ok := <-dw.w.Errors:
			if !ok {
				return
			}
			slogger().Warn("shader: watcher error", "err", err)
		}
	}
}

// nameOf strips the directory and a known language extension.
func nameOf(file string) string {
	base := filepath.Base(file)
	for _, lang := range []Language{WGSL, GLSL, HLSL} {
		if strings.HasSuffix(base, lang.Ext()) {
			return strings.TrimSuffix(base, lang.Ext())
		}
	}
	return ""
}

// Close stops the watcher and waits for its goroutine.
func (dw *DirWatcher) Close() error {
	err := dw.w.Close()
	dw.wg.Wait()
	return err
}
