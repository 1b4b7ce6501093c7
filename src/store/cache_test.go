package store

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCacheHit(t *testing.T) {
	paths := fixturePaths(t, dailyCSV, hourlyCSV)
	c := NewCache(testLogger())

	var loads int32
	c.OnLoad = func(error) { atomic.AddInt32(&loads, 1) }

	first, err := c.Load(paths, Options{})
	require.NoError(t, err)
	second, err := c.Load(paths, Options{})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	assert.Equal(t, 1, c.Len())

	other, err := c.Load(paths, Options{Encoding: "utf-8"})
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, c.Len())
}

func TestCacheInvalidate(t *testing.T) {
	paths := fixturePaths(t, dailyCSV, hourlyCSV)
	c := NewCache(testLogger())

	first, err := c.Load(paths, Options{})
	require.NoError(t, err)
	_, err = c.Load(paths, Options{Encoding: "utf-8"})
	require.NoError(t, err)

	c.Invalidate(paths)
	assert.Equal(t, 0, c.Len())

	second, err := c.Load(paths, Options{})
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestCacheInvalidateFile(t *testing.T) {
	paths := fixturePaths(t, dailyCSV, hourlyCSV)
	c := NewCache(testLogger())

	_, err := c.Load(paths, Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, c.InvalidateFile(filepath.Join(filepath.Dir(paths.Daily), "other.csv")))
	assert.Equal(t, 1, c.Len())

	// 文件变更后重新加载能看到新数据
	updated := dailyCSV + "4,2012-06-02,2,1,6,0,6,0,1,0.6,5,5,10\n"
	require.NoError(t, os.WriteFile(paths.Daily, []byte(updated), 0o644))
	assert.Equal(t, 1, c.InvalidateFile(paths.Daily))

	s, err := c.Load(paths, Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Daily:  filepath.Join(dir, "day.csv"),
		Hourly: writeFixture(t, dir, "hour.csv", hourlyCSV),
	}
	c := NewCache(testLogger())

	var failures int32
	c.OnLoad = func(err error) {
		if err != nil {
			atomic.AddInt32(&failures, 1)
		}
	}

	_, err := c.Load(paths, Options{})
	assert.ErrorIs(t, err, ErrDataNotFound)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int32(1), atomic.LoadInt32(&failures))

	writeFixture(t, dir, "day.csv", dailyCSV)
	s, err := c.Load(paths, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
}

func TestCacheSkipsStaleResult(t *testing.T) {
	paths := fixturePaths(t, dailyCSV, hourlyCSV)
	c := NewCache(testLogger())
	// 加载完成前发生失效
	c.OnLoad = func(error) { c.Reset() }

	s, err := c.Load(paths, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 0, c.Len())
}

func TestCacheConcurrentLoad(t *testing.T) {
	paths := fixturePaths(t, dailyCSV, hourlyCSV)
	c := NewCache(testLogger())

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			s, err := c.Load(paths, Options{})
			if err == nil && s.Len() != 3 {
				t.Errorf("unexpected record count %d", s.Len())
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, c.Len())
}
