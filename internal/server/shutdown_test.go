package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestShutdownHandler_HooksRunInPriorityOrder(t *testing.T) {
	sh := NewShutdownHandler(&ShutdownConfig{Timeout: time.Second})

	var mu sync.Mutex
	var order []string
	record := func(name string) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	sh.RegisterHook("late", 90, record("late"))
	sh.RegisterHook("early", 10, record("early"))
	sh.RegisterHook("middle", 50, record("middle"))

	sh.Start()
	sh.Shutdown()

	if !sh.WaitWithTimeout(2 * time.Second) {
		t.Fatal("shutdown did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"early", "middle", "late"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestShutdownHandler_FailingHookDoesNotStopOthers(t *testing.T) {
	sh := NewShutdownHandler(&ShutdownConfig{Timeout: time.Second})

	ran := make(chan struct{}, 1)
	sh.RegisterHook("failing", 10, func(ctx context.Context) error {
		return errors.New("boom")
	})
	sh.RegisterHook("after", 20, func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	})

	sh.Start()
	sh.Shutdown()

	if !sh.WaitWithTimeout(2 * time.Second) {
		t.Fatal("shutdown did not complete")
	}
	select {
	case <-ran:
	default:
		t.Error("hook after the failing one did not run")
	}
}

func TestShutdownHandler_ShutdownBeforeStartIsNoop(t *testing.T) {
	sh := NewShutdownHandler(nil)
	sh.Shutdown() // must not panic or close channels

	select {
	case <-sh.Done():
		t.Error("done must not fire before Start")
	default:
	}
}

func TestShutdownHandler_DoubleShutdown(t *testing.T) {
	sh := NewShutdownHandler(&ShutdownConfig{Timeout: time.Second})
	sh.Start()
	sh.Shutdown()
	sh.Shutdown() // second call must be a no-op

	if !sh.WaitWithTimeout(2 * time.Second) {
		t.Fatal("shutdown did not complete")
	}
}

func TestHookHelpers(t *testing.T) {
	httpHook := HTTPServerShutdownHook("http", func(ctx context.Context) error { return nil })
	traceHook := TracingShutdownHook(func(ctx context.Context) error { return nil })
	storeHook := VectorStoreShutdownHook(func() error { return nil })

	if !(httpHook.Priority < traceHook.Priority && traceHook.Priority < storeHook.Priority) {
		t.Errorf("expected http < tracing < store priorities, got %d/%d/%d",
			httpHook.Priority, traceHook.Priority, storeHook.Priority)
	}
	if err := storeHook.Fn(context.Background()); err != nil {
		t.Errorf("store hook: %v", err)
	}
}
