package cli

import (
	"bytes"
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportforge/reportforge/pkg/testutil"
)

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled")
	}
}

func TestSignalContextCancelOnInterrupt(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	ctx, cancel := signalContextWithNotifier(context.Background(), 5*time.Second, nil, sigChan, nil)
	defer cancel()

	sigChan <- os.Interrupt
	waitDone(t, ctx)
}

func TestSignalContextManualCancel(t *testing.T) {
	tracker := testutil.TrackGoroutines()
	sigChan := make(chan os.Signal, 1)
	ctx, cancel := signalContextWithNotifier(context.Background(), 5*time.Second, nil, sigChan, nil)
	cancel()
	waitDone(t, ctx)
	tracker.CheckLeaks(t, 0)
}

func TestSignalContextFollowsParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := signalContextWithNotifier(parent, 5*time.Second, nil, make(chan os.Signal, 1), nil)
	defer cancel()

	cancelParent()
	waitDone(t, ctx)
}

func TestSignalContextSecondSignalExits(t *testing.T) {
	sigChan := make(chan os.Signal, 2)
	var exitCode atomic.Int32
	exitCode.Store(-1)

	ctx, cancel := signalContextWithNotifier(context.Background(), 5*time.Second, nil, sigChan, func(code int) {
		exitCode.Store(int32(code))
	})
	defer cancel()

	sigChan <- os.Interrupt
	waitDone(t, ctx)
	sigChan <- os.Interrupt

	require.Eventually(t, func() bool { return exitCode.Load() == ExitInterrupted }, 2*time.Second, 10*time.Millisecond)
}

func TestSignalContextGracePeriodExpires(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	var exited atomic.Bool
	var out syncBuffer

	ctx, cancel := signalContextWithNotifier(context.Background(), 50*time.Millisecond, &out, sigChan, func(int) {
		exited.Store(true)
	})
	defer cancel()

	sigChan <- os.Interrupt
	waitDone(t, ctx)
	time.Sleep(150 * time.Millisecond)

	assert.False(t, exited.Load())
	assert.Contains(t, out.String(), "shutting down gracefully")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
