// monitor.go
package file

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监控数据目录，文件写入、创建、删除、重命名时回调
type FileMonitor struct {
	watchDir string
	watcher  *fsnotify.Watcher
}

func NewFileMonitor(dir string) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	return &FileMonitor{
		watchDir: dir,
		watcher:  watcher,
	}, nil
}

// Dir 被监控的目录
func (m *FileMonitor) Dir() string {
	return m.watchDir
}

// Watch 阻塞监听事件直到ctx取消或watcher关闭，handler同步调用
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			handler(filepath.Clean(event.Name))
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) ||
		event.Has(fsnotify.Rename)
}

// Close 关闭watcher
func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}
