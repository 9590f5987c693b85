package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/TIANLI0/MarkKit/utils"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// AllMarks 选择全部图标的名称
const AllMarks = "all"

// Mark 图标素材，Name 为去掉扩展名的文件名
type Mark struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// AssetLibrary 维护图标目录的文件列表，按文件名排序保证输出稳定
type AssetLibrary struct {
	dir        string
	extensions map[string]bool

	mu    sync.RWMutex
	marks []Mark
}

func NewAssetLibrary(dir string, extensions []string) (*AssetLibrary, error) {
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	lib := &AssetLibrary{
		dir:        dir,
		extensions: exts,
	}
	if err := lib.Refresh(); err != nil {
		return nil, err
	}
	return lib, nil
}

// Refresh 重新扫描目录
func (l *AssetLibrary) Refresh() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return WrapError(ErrCodeMissingAsset, err, "failed to list marks directory %s", l.dir)
	}

	marks := make([]Mark, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !l.accepts(entry.Name()) {
			continue
		}
		name := entry.Name()
		marks = append(marks, Mark{
			Name: strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name))),
			Path: filepath.Join(l.dir, name),
		})
	}
	sort.Slice(marks, func(i, j int) bool {
		return marks[i].Path < marks[j].Path
	})

	l.mu.Lock()
	l.marks = marks
	l.mu.Unlock()

	utils.Logger.Debug("marks refreshed",
		zap.String("dir", l.dir),
		zap.Int("count", len(marks)))
	return nil
}

func (l *AssetLibrary) accepts(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return l.extensions[strings.ToLower(filepath.Ext(name))]
}

// Marks 返回当前图标列表的副本
func (l *AssetLibrary) Marks() []Mark {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Mark(nil), l.marks...)
}

func (l *AssetLibrary) Names() []string {
	marks := l.Marks()
	names := make([]string, len(marks))
	for i, m := range marks {
		names[i] = m.Name
	}
	return names
}

// Select 按请求顺序返回图标；空列表或 "all" 返回全部
func (l *AssetLibrary) Select(names []string) ([]Mark, error) {
	marks := l.Marks()
	if len(names) == 0 || (len(names) == 1 && strings.EqualFold(names[0], AllMarks)) {
		if len(marks) == 0 {
			return nil, NewError(ErrCodeMissingAsset, "no marks found in %s", l.dir)
		}
		return marks, nil
	}

	byName := make(map[string]Mark, len(marks))
	for _, m := range marks {
		if _, dup := byName[m.Name]; !dup {
			byName[m.Name] = m
		}
	}

	selected := make([]Mark, 0, len(names))
	var unknown []string
	for _, name := range names {
		m, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		selected = append(selected, m)
	}
	if len(unknown) > 0 {
		return nil, NewError(ErrCodeMissingAsset, "unknown marks: %s", strings.Join(unknown, ", "))
	}
	return selected, nil
}

// Watch 监听目录变化并刷新列表，ctx 结束后停止
func (l *AssetLibrary) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}

	go l.processEvents(ctx, watcher)
	return nil
}

func (l *AssetLibrary) processEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	// 合并短时间内的连续事件
	const debounce = 200 * time.Millisecond
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			if !l.accepts(filepath.Base(event.Name)) {
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			if err := l.Refresh(); err != nil {
				utils.Logger.Warn("failed to refresh marks", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			utils.Logger.Warn("marks watcher error", zap.Error(err))
		}
	}
}
