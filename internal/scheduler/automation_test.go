package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/replyon/replyon-backend/internal/config"
	"github.com/replyon/replyon-backend/internal/service"
)

type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(name string) {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()
}

func (r *callRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeCollector struct{ rec *callRecorder }

func (f *fakeCollector) CollectAll(_ context.Context) (*service.CollectionSummary, error) {
	f.rec.record("collect")
	return &service.CollectionSummary{}, nil
}

func (f *fakeCollector) CollectStore(_ context.Context, _ string) (*service.CollectionSummary, error) {
	return &service.CollectionSummary{}, nil
}

type fakeGenerationSvc struct{ rec *callRecorder }

func (f *fakeGenerationSvc) GenerateForPending(_ context.Context) (*service.GenerationSummary, error) {
	f.rec.record("generate")
	return &service.GenerationSummary{}, nil
}

type fakePostingSvc struct{ rec *callRecorder }

func (f *fakePostingSvc) PostDueReplies(_ context.Context) (*service.PostingSummary, error) {
	f.rec.record("post")
	return &service.PostingSummary{}, nil
}

func testAutomation(rec *callRecorder) *Automation {
	cfg := config.AutomationConfig{
		BootstrapCollectInterval:  config.Duration(time.Hour),
		BootstrapGenerateInterval: config.Duration(time.Hour),
		BootstrapPostInterval:     config.Duration(time.Hour),
		SteadyCollectInterval:     config.Duration(4 * time.Hour),
		SteadyGenerateInterval:    config.Duration(30 * time.Minute),
		SteadyPostInterval:        config.Duration(4 * time.Hour),
		BootstrapSettleWait:       config.Duration(time.Millisecond),
	}
	return NewAutomation(New(nopLogger{}), &fakeCollector{rec}, &fakeGenerationSvc{rec},
		&fakePostingSvc{rec}, cfg, nopLogger{})
}

func TestStartBootstrapRunsWarmUpInOrder(t *testing.T) {
	rec := &callRecorder{}
	a := testAutomation(rec)

	a.StartBootstrap(context.Background())
	defer a.Stop()

	waitFor(t, func() bool { return len(rec.snapshot()) >= 3 })

	calls := rec.snapshot()[:3]
	if calls[0] != "collect" || calls[1] != "generate" || calls[2] != "post" {
		t.Errorf("unexpected warm-up order: %v", calls)
	}

	// 워밍업이 끝나도 bootstrap 주기는 그대로 유지된다
	waitFor(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return !a.warmingUp
	})
	for _, task := range a.Tasks() {
		if task.Interval != "1h0m0s" {
			t.Errorf("task %s rescheduled to %s, want bootstrap interval retained", task.Name, task.Interval)
		}
	}
}

func TestStartSteadyRegistersWithoutImmediateRun(t *testing.T) {
	rec := &callRecorder{}
	a := testAutomation(rec)

	a.StartSteady()
	defer a.Stop()

	tasks := a.Tasks()
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	time.Sleep(20 * time.Millisecond)
	if len(rec.snapshot()) != 0 {
		t.Errorf("steady start should not run jobs immediately: %v", rec.snapshot())
	}
}

func TestTriggerBootstrapRejectsConcurrentWarmUp(t *testing.T) {
	rec := &callRecorder{}
	a := testAutomation(rec)
	a.register(time.Hour, time.Hour, time.Hour)

	if err := a.TriggerBootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}
	// 워밍업이 settle 대기 중인 동안 재트리거는 거부될 수 있다
	err := a.TriggerBootstrap(context.Background())
	if err != nil && err != ErrWarmUpRunning {
		t.Errorf("unexpected error: %v", err)
	}

	waitFor(t, func() bool { return len(rec.snapshot()) >= 3 })
}
