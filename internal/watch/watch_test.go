package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDebouncer_Validation(t *testing.T) {
	_, err := NewDebouncer(DebouncerConfig{})
	require.Error(t, err)

	_, err = NewDebouncer(DebouncerConfig{QuietWindow: time.Second, MaxDelay: time.Millisecond})
	require.Error(t, err)

	d, err := NewDebouncer(DebouncerConfig{QuietWindow: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, d.cfg.MaxDelay)
}

func TestDebouncer_BurstCoalescesToSingleTrigger(t *testing.T) {
	d, err := NewDebouncer(DebouncerConfig{QuietWindow: 25 * time.Millisecond, MaxDelay: time.Second})
	require.NoError(t, err)

	triggers := make(chan Trigger, 10)
	go d.Run(t.Context(), func(tr Trigger) { triggers <- tr })

	for range 5 {
		d.Request("burst")
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case got := <-triggers:
		assert.Equal(t, 5, got.RequestCount)
		assert.Equal(t, "quiet", got.Cause)
		assert.Equal(t, "burst", got.LastReason)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for trigger")
	}

	select {
	case <-triggers:
		t.Fatal("expected only one trigger for burst")
	case <-time.After(75 * time.Millisecond):
	}
}

func TestDebouncer_MaxDelayForcesTrigger(t *testing.T) {
	d, err := NewDebouncer(DebouncerConfig{QuietWindow: 50 * time.Millisecond, MaxDelay: 120 * time.Millisecond})
	require.NoError(t, err)

	triggers := make(chan Trigger, 10)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go d.Run(ctx, func(tr Trigger) { triggers <- tr })

	stop := time.After(400 * time.Millisecond)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	var got Trigger
loop:
	for {
		select {
		case <-tick.C:
			d.Request("steady")
		case got = <-triggers:
			break loop
		case <-stop:
			t.Fatal("steady requests postponed the trigger past the max delay")
		}
	}
	assert.Equal(t, "max_delay", got.Cause)
}

func TestTreeWatcher_ReportsNestedChangesAndIgnoresDestination(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "filesystem", "blog"), 0o755))
	require.NoError(t, os.MkdirAll(dest, 0o755))

	var mu sync.Mutex
	var seen []string
	w, err := NewTreeWatcher(root, []string{dest}, func(path string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, path)
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))
	defer func() { _ = w.Close() }()

	require.NoError(t, os.WriteFile(filepath.Join(dest, "ignored.html"), []byte("x"), 0o644))
	page := filepath.Join(root, "filesystem", "blog", "post.md")
	require.NoError(t, os.WriteFile(page, []byte("hello"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range seen {
			if p == page {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, p := range seen {
		assert.NotContains(t, p, "ignored.html")
	}
}

func TestRunner_BuildsOnStartupAndOnChange(t *testing.T) {
	root := t.TempDir()
	var builds atomic.Int32
	reasons := make(chan string, 10)

	r, err := NewRunner(Options{SourceRoot: root, Debounce: 20 * time.Millisecond}, func(_ context.Context, tr Trigger) error {
		builds.Add(1)
		reasons <- tr.LastReason
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case reason := <-reasons:
		assert.Equal(t, "startup", reason)
	case <-time.After(2 * time.Second):
		t.Fatal("no startup build")
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "page.md"), []byte("x"), 0o644))
	select {
	case reason := <-reasons:
		assert.Equal(t, "fs:page.md", reason)
	case <-time.After(2 * time.Second):
		t.Fatal("no rebuild after change")
	}

	cancel()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, builds.Load(), int32(2))
}

func TestTreeWatcher_IgnoresOutputFilesAndTheirTempSiblings(t *testing.T) {
	root := t.TempDir()
	manifestPath := filepath.Join(root, "manifest.yaml")

	var mu sync.Mutex
	var seen []string
	w, err := NewTreeWatcher(root, nil, func(path string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, path)
	})
	require.NoError(t, err)
	w.IgnoreFile(manifestPath)
	require.NoError(t, w.Start(t.Context()))
	defer func() { _ = w.Close() }()

	require.NoError(t, os.WriteFile(manifestPath, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(manifestPath+"123456", []byte("x"), 0o644))
	page := filepath.Join(root, "manifest.md")
	require.NoError(t, os.WriteFile(page, []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, p := range seen {
		assert.Equal(t, page, p)
	}
}

func TestRunner_OutputFilesDoNotRetrigger(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "metrics.prom")
	builds := make(chan struct{}, 10)

	r, err := NewRunner(Options{SourceRoot: root, Debounce: 20 * time.Millisecond, OutputFiles: []string{out, ""}},
		func(_ context.Context, _ Trigger) error {
			if err := os.WriteFile(out, []byte("x"), 0o644); err != nil {
				return err
			}
			builds <- struct{}{}
			return nil
		})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-builds:
	case <-time.After(2 * time.Second):
		t.Fatal("no startup build")
	}
	select {
	case <-builds:
		t.Fatal("writing an output file triggered a rebuild")
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}

func TestRunner_IntervalRebuilds(t *testing.T) {
	root := t.TempDir()
	intervals := make(chan struct{}, 10)

	r, err := NewRunner(Options{SourceRoot: root, Debounce: 10 * time.Millisecond, Interval: 50 * time.Millisecond},
		func(_ context.Context, tr Trigger) error {
			if tr.LastReason == "interval" {
				intervals <- struct{}{}
			}
			return nil
		})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	select {
	case <-intervals:
	case <-time.After(2 * time.Second):
		t.Fatal("no interval rebuild")
	}
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(Options{SourceRoot: "x"}, nil)
	require.Error(t, err)

	_, err = NewRunner(Options{}, func(context.Context, Trigger) error { return nil })
	require.Error(t, err)
}
