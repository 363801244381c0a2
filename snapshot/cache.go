package snapshot

import (
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru"
)

// Cache is a read-through LRU of decoded jars. Entries are keyed by path and
// file version, so a rebuilt jar at the same path is decoded again.
type Cache struct {
	lru *lru.Cache
}

func NewCache(size int) (*Cache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

func cacheKey(path string, fi os.FileInfo) string {
	return fmt.Sprintf("%s@%d:%d", path, fi.ModTime().UnixNano(), fi.Size())
}

// Load returns a private copy of the jar at path.
func (c *Cache) Load(path string) (*Jar, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := cacheKey(path, fi)
	if cached, ok := c.lru.Get(key); ok {
		return cached.(*Jar).Clone(), nil
	}

	j, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, j)
	return j.Clone(), nil
}

// Store saves the jar and caches it.
func (c *Cache) Store(path string, j *Jar) error {
	if err := j.Save(path); err != nil {
		return err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	c.lru.Add(cacheKey(path, fi), j.Clone())
	return nil
}

func (c *Cache) Len() int {
	return c.lru.Len()
}
