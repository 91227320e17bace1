package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()
	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
}

func TestEmptyURLsDisableBackends(t *testing.T) {
	ctx := context.Background()
	if c, err := NewRedisClient(ctx, ""); c != nil || err != nil {
		t.Fatalf("expected nil client, got %v %v", c, err)
	}
	if p, err := NewPostgresPool(ctx, ""); p != nil || err != nil {
		t.Fatalf("expected nil pool, got %v %v", p, err)
	}
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "::not a url"); err == nil {
		t.Fatal("expected parse error")
	}
}
