package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"studio/internal/infra"
)

func TestRunRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")

	err := run(context.Background())
	if !errors.Is(err, infra.ErrMissingAPIKey) {
		t.Fatalf("run error = %v, want ErrMissingAPIKey", err)
	}
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("APP_ENV", "test")
	t.Setenv("PORT", "0")
	t.Setenv("STORAGE_PATH", t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}
