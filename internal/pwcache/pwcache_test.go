package pwcache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New(time.Minute)
	c.Set("vault-1", "s3cret")

	got, ok := c.Get("vault-1")
	if !ok || got != "s3cret" {
		t.Fatalf("expected cached password, got %q ok=%v", got, ok)
	}
}

func TestDestroyRemovesEntry(t *testing.T) {
	c := New(time.Minute)
	c.Set("vault-1", "s3cret")
	c.Destroy("vault-1")

	if _, ok := c.Get("vault-1"); ok {
		t.Fatal("expected entry to be gone after Destroy")
	}
}

func TestExpiryWipesPassword(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Set("vault-1", "s3cret")

	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("vault-1"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestTouchExtendsExpiry(t *testing.T) {
	c := New(60 * time.Millisecond)
	c.Set("vault-1", "s3cret")

	time.Sleep(30 * time.Millisecond)
	if !c.Touch("vault-1") {
		t.Fatal("expected touch to find the entry")
	}
	time.Sleep(40 * time.Millisecond)

	if _, ok := c.Get("vault-1"); !ok {
		t.Fatal("expected touch to keep the entry alive past its original expiry")
	}
}

func TestDestroyAllClearsEverything(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.DestroyAll()

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to be gone")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be gone")
	}
}
