package mongo

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dutchthenomad/rugfeed/internal/telemetry"
)

func TestTTLSeconds(t *testing.T) {
	cases := []struct {
		days int
		want int32
	}{
		{0, 0},
		{-1, 0},
		{1, 86400},
		{30, 30 * 86400},
	}
	for _, c := range cases {
		if got := ttlSeconds(c.days); got != c.want {
			t.Errorf("ttlSeconds(%d) = %d, want %d", c.days, got, c.want)
		}
	}
}

func TestIndexModelSetsExpireOnlyWhenTTLFieldGiven(t *testing.T) {
	withTTL := indexModel(nil, "createdAt", 3600)
	if withTTL.Options == nil || withTTL.Options.ExpireAfterSeconds == nil {
		t.Fatalf("expected ExpireAfterSeconds to be set")
	}
	if *withTTL.Options.ExpireAfterSeconds != 3600 {
		t.Fatalf("ExpireAfterSeconds = %d, want 3600", *withTTL.Options.ExpireAfterSeconds)
	}

	noTTL := indexModel(nil, "", 0)
	if noTTL.Options != nil && noTTL.Options.ExpireAfterSeconds != nil {
		t.Fatalf("expected no ExpireAfterSeconds when ttlField is empty")
	}
}

func TestStartWorkersProcessesQueuedJobs(t *testing.T) {
	s := &Store{}
	s.StartWorkers(2)

	var n int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		s.submit(func(ctx context.Context) {
			atomic.AddInt64(&n, 1)
			wg.Done()
		})
	}
	wg.Wait()
	s.Drain(time.Second)

	if got := atomic.LoadInt64(&n); got != 50 {
		t.Fatalf("processed %d jobs, want 50", got)
	}
}

func TestSubmitDropsOnQueueOverflow(t *testing.T) {
	before := telemetry.Metrics.ErrorCounters.Snapshot()["mongo_queue_overflow"]

	s := &Store{jobs: make(chan func(context.Context), 1)}
	s.jobs <- func(context.Context) {} // fill the only slot, nothing drains it

	s.submit(func(context.Context) {})

	after := telemetry.Metrics.ErrorCounters.Snapshot()["mongo_queue_overflow"]
	if after != before+1 {
		t.Fatalf("overflow counter = %d, want %d", after, before+1)
	}
}

func TestSubmitCriticalSucceedsWhenRoomFreesUp(t *testing.T) {
	s := &Store{jobs: make(chan func(context.Context), 1)}
	s.jobs <- func(context.Context) {}

	go func() {
		time.Sleep(5 * time.Millisecond)
		<-s.jobs // free a slot well within criticalEnqueueWait
	}()

	done := make(chan struct{})
	go func() {
		s.submitCritical(func(context.Context) {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(criticalEnqueueWait):
		t.Fatalf("submitCritical did not return after room freed up")
	}

	select {
	case <-s.jobs:
	default:
		t.Fatalf("expected the critical job to have been enqueued")
	}
}

func TestSubmitCriticalDropsAfterGracePeriod(t *testing.T) {
	before := telemetry.Metrics.ErrorCounters.Snapshot()["mongo_queue_overflow_critical"]

	s := &Store{jobs: make(chan func(context.Context), 1)}
	s.jobs <- func(context.Context) {} // never drained

	start := time.Now()
	s.submitCritical(func(context.Context) {})
	if elapsed := time.Since(start); elapsed < criticalEnqueueWait {
		t.Fatalf("submitCritical returned after %s, want at least the %s grace period", elapsed, criticalEnqueueWait)
	}

	after := telemetry.Metrics.ErrorCounters.Snapshot()["mongo_queue_overflow_critical"]
	if after != before+1 {
		t.Fatalf("critical overflow counter = %d, want %d", after, before+1)
	}
}
