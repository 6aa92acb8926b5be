package changelist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestZoneGate_SerializesSameZone(t *testing.T) {
	gate := newZoneGate()
	ctx := context.Background()

	require.NoError(t, gate.acquire(ctx, "example.com"))

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		done <- gate.acquire(ctx, "example.com")
	}()

	<-started
	select {
	case err := <-done:
		t.Fatalf("unexpected acquire: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	gate.release("example.com")
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("acquire timeout")
	}
}

func TestZoneGate_ZonesIndependent(t *testing.T) {
	gate := newZoneGate()
	ctx := context.Background()

	require.NoError(t, gate.acquire(ctx, "a.example.com"))
	require.NoError(t, gate.acquire(ctx, "b.example.com"))
	gate.release("a.example.com")
	gate.release("b.example.com")
}

func TestZoneGate_CancelUnblocksWaiter(t *testing.T) {
	gate := newZoneGate()
	require.NoError(t, gate.acquire(context.Background(), "example.com"))
	defer gate.release("example.com")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- gate.acquire(ctx, "example.com")
	}()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("acquire did not observe cancellation")
	}
}

func TestZoneGate_ReleaseWithoutAcquire(t *testing.T) {
	gate := newZoneGate()
	gate.release("example.com")
	require.NoError(t, gate.acquire(context.Background(), "example.com"))
}
