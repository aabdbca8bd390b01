package mailmerge

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTemplateKey(t *testing.T) {
	a := TemplateKey([]byte("template one"))
	b := TemplateKey([]byte("template two"))

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, TemplateKey([]byte("template one")))
}

func TestTemplateCacheGetSet(t *testing.T) {
	cache := NewTemplateCacheWithConfig(CacheConfig{MaxSize: 2})
	tmpl := &Template{key: "a"}

	_, ok := cache.Get("a")
	assert.False(t, ok)

	cache.Set("a", tmpl)
	got, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Same(t, tmpl, got)

	cache.Remove("a")
	_, ok = cache.Get("a")
	assert.False(t, ok)
	cache.Remove("a")
}

func TestTemplateCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewTemplateCacheWithConfig(CacheConfig{MaxSize: 2})

	cache.Set("a", &Template{key: "a"})
	cache.Set("b", &Template{key: "b"})
	_, _ = cache.Get("a")
	cache.Set("c", &Template{key: "c"})

	assert.Equal(t, 2, cache.Size())
	_, ok := cache.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = cache.Get("a")
	assert.True(t, ok)
	_, ok = cache.Get("c")
	assert.True(t, ok)
}

func TestTemplateCacheUpdateExisting(t *testing.T) {
	cache := NewTemplateCacheWithConfig(CacheConfig{MaxSize: 1})
	first := &Template{key: "first"}
	second := &Template{key: "second"}

	cache.Set("k", first)
	cache.Set("k", second)

	got, ok := cache.Get("k")
	assert.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, cache.Size())
}

func TestTemplateCacheTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewTemplateCacheWithConfig(CacheConfig{MaxSize: 4, TTL: time.Minute})
	cache.now = func() time.Time { return now }

	cache.Set("k", &Template{})

	now = now.Add(30 * time.Second)
	_, ok := cache.Get("k")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = cache.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Size())
}

func TestTemplateCacheDisabled(t *testing.T) {
	cache := NewTemplateCacheWithConfig(CacheConfig{MaxSize: 0})
	cache.Set("k", &Template{})
	assert.Equal(t, 0, cache.Size())
}

func TestTemplateCacheClear(t *testing.T) {
	cache := NewTemplateCacheWithConfig(CacheConfig{MaxSize: 4})
	cache.Set("a", &Template{})
	cache.Set("b", &Template{})
	cache.Clear()
	assert.Equal(t, 0, cache.Size())

	cache.Set("c", &Template{})
	assert.Equal(t, 1, cache.Size())
}

func TestTemplateCacheConcurrentAccess(t *testing.T) {
	cache := NewTemplateCacheWithConfig(CacheConfig{MaxSize: 8})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%10)
			cache.Set(key, &Template{key: key})
			cache.Get(key)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Size(), 8)
}
