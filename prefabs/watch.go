package prefabs

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const settle = 100 * time.Millisecond

// Watcher reports scene and script files under the watched directories that
// changed. Events carry names relative to Dir, ready for Load or
// LoadScript.
type Watcher struct {
	watcher *fsnotify.Watcher
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	once    sync.Once
}

// NewWatcher watches every directory under roots. Directories created later
// are not picked up.
func NewWatcher(roots ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return err
			}
			return fw.Add(path)
		})
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("prefabs: watch %s: %w", root, err)
		}
	}

	w := &Watcher{
		watcher: fw,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

// run reports a file once it has been quiet for the settle interval.
func (w *Watcher) run() {
	pending := make(map[string]time.Time)
	tick := time.NewTicker(settle / 2)
	defer tick.Stop()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !isSceneFile(event.Name) && !isScriptFile(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()
		case now := <-tick.C:
			for name, at := range pending {
				if now.Sub(at) < settle {
					continue
				}
				delete(pending, name)
				select {
				case w.Events <- relative(name):
				case <-w.closeCh:
					return
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

func relative(path string) string {
	s := filepath.ToSlash(path)
	if i := strings.LastIndex(s, "/"+Dir+"/"); i >= 0 {
		return s[i+len(Dir)+2:]
	}
	if after, ok := strings.CutPrefix(s, Dir+"/"); ok {
		return after
	}
	return filepath.Base(path)
}

func isSceneFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func isScriptFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".tengo"
}
