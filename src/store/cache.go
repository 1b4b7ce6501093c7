package store

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"BikeSharingDashboard/src/storage"
)

// Cache 按 (文件路径, 加载选项) 缓存 RecordStore。
// 同一键的并发加载只执行一次；失败的加载不缓存。
type Cache struct {
	logger *storage.Logger
	group  singleflight.Group

	mu         sync.Mutex
	entries    map[string]*RecordStore
	generation uint64

	// OnLoad 每次实际读取文件后调用，用于指标统计
	OnLoad func(err error)
}

// NewCache 创建缓存
func NewCache(logger *storage.Logger) *Cache {
	return &Cache{
		logger:  logger,
		entries: make(map[string]*RecordStore),
	}
}

func cacheKey(paths Paths, opts Options) string {
	var b strings.Builder
	b.WriteString(paths.Daily)
	b.WriteByte('|')
	b.WriteString(paths.Hourly)
	b.WriteByte('|')
	b.WriteString(paths.Merged)
	b.WriteByte('|')
	b.WriteString(opts.Encoding)
	b.WriteByte('|')
	b.WriteString(opts.SheetName)
	b.WriteByte('|')
	b.WriteString(strings.Join(opts.DateLayouts, ","))

	names := make([]string, 0, len(opts.Columns))
	for name := range opts.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(opts.Columns[name])
	}
	return b.String()
}

// Load 命中缓存时直接返回，否则读取文件
func (c *Cache) Load(paths Paths, opts Options) (*RecordStore, error) {
	key := cacheKey(paths, opts)

	c.mu.Lock()
	if s, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return s, nil
	}
	gen := c.generation
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		s, err := Load(paths, opts, c.logger)
		if c.OnLoad != nil {
			c.OnLoad(err)
		}
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		// 加载期间发生过失效，结果可能已过期，不写入缓存
		if c.generation == gen {
			c.entries[key] = s
		}
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*RecordStore), nil
}

// Invalidate 清除指定路径组合的所有缓存项
func (c *Cache) Invalidate(paths Paths) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	for key, s := range c.entries {
		if s.Paths() == paths {
			delete(c.entries, key)
		}
	}
}

// InvalidateFile 清除读取过该文件的缓存项，返回清除的数量
func (c *Cache) InvalidateFile(name string) int {
	name = filepath.Clean(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++

	removed := 0
	for key, s := range c.entries {
		for _, p := range s.Paths().Files() {
			if p != "" && filepath.Clean(p) == name {
				delete(c.entries, key)
				removed++
				break
			}
		}
	}
	return removed
}

// Reset 清空缓存
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.entries = make(map[string]*RecordStore)
}

// Len 当前缓存项数量
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
