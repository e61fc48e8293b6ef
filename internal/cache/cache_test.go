package cache

import (
	"testing"
	"time"
)

func newTestCache(ttl time.Duration) (*Cache, *time.Time) {
	now := time.Unix(1700000000, 0)
	c := NewCache(ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestSetGetExpire(t *testing.T) {
	c, now := newTestCache(time.Minute)
	c.Set("skills", "list", []string{"writer"})

	v, ok := Lookup[[]string](c, "skills", "list")
	if !ok || len(v) != 1 || v[0] != "writer" {
		t.Fatalf("expected cached value, got %v %v", v, ok)
	}

	*now = now.Add(2 * time.Minute)
	if _, ok := c.Get("skills", "list"); ok {
		t.Fatalf("expected entry to expire")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be removed on read, len=%d", c.Len())
	}
}

func TestPurgeExpired(t *testing.T) {
	c, now := newTestCache(time.Minute)
	c.Set("audit", "list", 1)
	*now = now.Add(30 * time.Second)
	c.Set("skills", "list", 2)

	*now = now.Add(45 * time.Second)
	c.PurgeExpired()
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", c.Len())
	}
	if _, ok := c.Get("skills", "list"); !ok {
		t.Fatalf("skills entry should still be cached")
	}
}

func TestInvalidateResource(t *testing.T) {
	c, _ := newTestCache(0)
	c.Set("projects", "list", 1)
	c.Set("projects", "7", 2)
	c.Set("projectsx", "list", 3)
	c.Set("skills", "list", 4)

	c.Invalidate("projects")
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries left, got %d", c.Len())
	}
	if _, ok := c.Get("projectsx", "list"); !ok {
		t.Fatalf("invalidate must match the resource exactly")
	}
}

func TestLookupWrongTypeAndNil(t *testing.T) {
	c, _ := newTestCache(0)
	c.Set("skills", "list", 42)
	if _, ok := Lookup[string](c, "skills", "list"); ok {
		t.Fatalf("expected type mismatch to miss")
	}
	if _, ok := Lookup[int](nil, "skills", "list"); ok {
		t.Fatalf("nil cache must miss")
	}
}
