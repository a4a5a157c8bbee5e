package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/parafrasa/internal/model"
)

func TestKey_Stable(t *testing.T) {
	if Key("a", "b") != Key("a", "b") {
		t.Error("expected identical keys for identical parts")
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("expected part boundaries to change the key")
	}
	if !strings.HasPrefix(Key("x"), "parafrasa:v1:") {
		t.Errorf("unexpected key prefix: %s", Key("x"))
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss")
	}
	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("expected hit with v, got %q %v", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after delete")
	}

	_ = c.Set("a", []byte("1"), 0)
	_ = c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after clear, got %d", c.Len())
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("k", []byte("v"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("text", "smart")

	if err := c.Set(key, []byte("payload"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get(key)
	if !ok || string(got) != "payload" {
		t.Fatalf("expected payload, got %q %v", got, ok)
	}

	files, _ := os.ReadDir(dir)
	if len(files) != 1 || strings.Contains(files[0].Name(), ":") {
		t.Errorf("expected one sanitized file, got %v", files)
	}

	if err := c.Delete(key); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Delete of missing key should succeed, got %v", err)
	}
}

func TestDiskCache_CorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("corrupt")

	if err := os.WriteFile(c.path(key), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(key); ok {
		t.Fatal("expected corrupt entry to be a miss")
	}
	if _, err := os.Stat(c.path(key)); !os.IsNotExist(err) {
		t.Error("expected corrupt file to be removed")
	}
}

func TestDiskCache_Expired(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	_ = c.Set("k", []byte("v"), time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to be a miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	memory := NewMemoryCache(time.Minute, time.Minute)
	disk := NewDiskCache(t.TempDir(), time.Hour)
	layered := NewLayeredCache(memory, disk)

	_ = disk.Set("k", []byte("from-disk"), 0)
	got, ok := layered.Get("k")
	if !ok || string(got) != "from-disk" {
		t.Fatalf("expected disk hit, got %q %v", got, ok)
	}
	if _, ok := memory.Get("k"); !ok {
		t.Error("expected disk hit to be promoted to memory")
	}

	_ = layered.Set("n", []byte("both"), 0)
	if _, ok := disk.Get("n"); !ok {
		t.Error("expected Set to reach the disk layer")
	}

	_ = layered.Clear()
	if _, ok := layered.Get("n"); ok {
		t.Error("expected miss after clear")
	}
}

func TestNew_Persist(t *testing.T) {
	if _, ok := New(model.CacheConfig{Enabled: true}).(*MemoryCache); !ok {
		t.Error("expected memory cache when not persisted")
	}
	dir := filepath.Join(t.TempDir(), "cache")
	if _, ok := New(model.CacheConfig{Enabled: true, Persist: true, Dir: dir}).(*LayeredCache); !ok {
		t.Error("expected layered cache when persisted")
	}
}

func TestRefinementCache(t *testing.T) {
	backend := NewMemoryCache(time.Minute, time.Minute)
	rc := NewRefinementCache(backend, 0, nil)

	key := RefinementKey("Sistem  Informasi", model.ModeSmart)
	if key != RefinementKey("sistem informasi", model.ModeSmart) {
		t.Error("expected normalization to unify keys")
	}
	if key == RefinementKey("sistem informasi", model.ModeBalanced) {
		t.Error("expected mode to be part of the key")
	}

	cand := model.NewCandidate("metode informasi", 40, nil, "ai_smart")
	if err := rc.Put(key, cand); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok := rc.Get(key)
	if !ok || got.Text != cand.Text || got.Similarity != 40 {
		t.Fatalf("unexpected cached candidate: %+v %v", got, ok)
	}
}

func TestRefinementCache_CorruptionIsMiss(t *testing.T) {
	backend := NewMemoryCache(time.Minute, time.Minute)
	rc := NewRefinementCache(backend, 0, nil)

	_ = backend.Set("garbage", []byte("\x00\x01"), 0)
	if _, ok := rc.Get("garbage"); ok {
		t.Fatal("expected corrupt entry to be a miss")
	}
	if _, ok := backend.Get("garbage"); ok {
		t.Error("expected corrupt entry to be evicted")
	}

	_ = backend.Set("blank", []byte(`{"text":"   "}`), 0)
	if _, ok := rc.Get("blank"); ok {
		t.Error("expected blank candidate to be a miss")
	}
}
