package scheduler

import (
	"errors"
	"testing"
	"time"
)

type nopLogger struct{}

func (nopLogger) Info(format string, args ...interface{})  {}
func (nopLogger) Error(format string, args ...interface{}) {}

func forceDue(s *Scheduler, taskName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.Name == taskName {
			t.NextRun = time.Now().Add(-time.Second)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRegisterAndGetTasks(t *testing.T) {
	s := New(nopLogger{})
	s.Register("collect-reviews", time.Minute, func() error { return nil })
	s.Register("post-replies", time.Hour, func() error { return nil })

	tasks := s.GetTasks()
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].Name != "collect-reviews" || tasks[0].Interval != "1m0s" {
		t.Errorf("unexpected first task: %+v", tasks[0])
	}
}

func TestTickRunsDueTask(t *testing.T) {
	s := New(nopLogger{})
	done := make(chan struct{})
	s.Register("collect-reviews", time.Hour, func() error {
		close(done)
		return nil
	})

	forceDue(s, "collect-reviews")
	s.tick(time.Now())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not executed")
	}

	waitFor(t, func() bool {
		tasks := s.GetTasks()
		return tasks[0].RunCount == 1 && !tasks[0].Running
	})
}

func TestTickSkipsNotReadyTask(t *testing.T) {
	s := New(nopLogger{})
	ran := false
	s.Register("collect-reviews", time.Hour, func() error {
		ran = true
		return nil
	})

	s.tick(time.Now())
	time.Sleep(20 * time.Millisecond)

	if ran {
		t.Error("task should not have run before NextRun")
	}
}

func TestTickRecordsError(t *testing.T) {
	s := New(nopLogger{})
	s.Register("post-replies", time.Hour, func() error {
		return errors.New("플랫폼 로그인 실패")
	})

	forceDue(s, "post-replies")
	s.tick(time.Now())

	waitFor(t, func() bool {
		tasks := s.GetTasks()
		return tasks[0].LastError != nil && *tasks[0].LastError == "플랫폼 로그인 실패"
	})
}

func TestTickSkipsRunningTask(t *testing.T) {
	s := New(nopLogger{})
	release := make(chan struct{})
	started := make(chan struct{})
	s.Register("collect-reviews", time.Hour, func() error {
		close(started)
		<-release
		return nil
	})

	forceDue(s, "collect-reviews")
	s.tick(time.Now())
	<-started

	// 아직 실행 중인 상태에서 다시 due가 되어도 중복 실행되지 않는다
	forceDue(s, "collect-reviews")
	s.tick(time.Now())
	close(release)

	waitFor(t, func() bool {
		tasks := s.GetTasks()
		return tasks[0].RunCount == 1 && !tasks[0].Running
	})
}

func TestSetInterval(t *testing.T) {
	s := New(nopLogger{})
	s.Register("collect-reviews", time.Minute, func() error { return nil })

	if err := s.SetInterval("collect-reviews", 4*time.Hour); err != nil {
		t.Fatal(err)
	}
	if got := s.GetTasks()[0].Interval; got != "4h0m0s" {
		t.Errorf("expected 4h0m0s, got %s", got)
	}

	if err := s.SetInterval("unknown", time.Minute); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestRunNow(t *testing.T) {
	s := New(nopLogger{})
	done := make(chan struct{})
	s.Register("generate-replies", time.Hour, func() error {
		close(done)
		return nil
	})

	if err := s.RunNow("generate-replies"); err != nil {
		t.Fatal(err)
	}
	s.tick(time.Now())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not executed after RunNow")
	}

	if err := s.RunNow("unknown"); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestStartStop(t *testing.T) {
	s := New(nopLogger{})
	s.tickRate = 10 * time.Millisecond
	done := make(chan struct{}, 1)
	s.Register("collect-reviews", time.Millisecond, func() error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})

	s.Start()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not run task")
	}
	s.Stop()
}
