package vaultstore

import (
	"context"
	"testing"
)

func TestFileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := NewFileBackend(dir)

	key := "vault:some-id"
	if err := b.Set(ctx, key, []byte("payload")); err != nil {
		t.Fatalf("set: %v", err)
	}

	val, ok, err := b.Get(ctx, key)
	if err != nil || !ok || string(val) != "payload" {
		t.Fatalf("get mismatch: %s ok=%v err=%v", val, ok, err)
	}

	keys, err := b.List(ctx)
	if err != nil || len(keys) != 1 || keys[0] != key {
		t.Fatalf("list mismatch: %v err=%v", keys, err)
	}

	if err := b.Remove(ctx, key); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := b.Get(ctx, key); ok {
		t.Fatal("expected key removed")
	}
}

func TestFileBackendClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := NewFileBackend(dir)

	_ = b.Set(ctx, "a", []byte("1"))
	_ = b.Set(ctx, "b", []byte("2"))

	if err := b.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	keys, err := b.List(ctx)
	if err != nil || len(keys) != 0 {
		t.Fatalf("expected empty after clear, got %v", keys)
	}
}
