// Package scheduler in-process 주기 작업 스케줄러.
// 외부 크론 없이 수집/생성/등록 작업을 주기적으로 실행한다.
package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// Logger 스케줄러가 사용하는 최소 로깅 인터페이스
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Task 등록된 주기적 작업
type Task struct {
	Name      string
	Interval  time.Duration
	Handler   func() error
	LastRun   time.Time
	NextRun   time.Time
	RunCount  int64
	LastError error
	running   bool
}

// Scheduler 자동화 작업 스케줄러 (in-process)
type Scheduler struct {
	tasks    []*Task
	mu       sync.RWMutex
	logger   Logger
	tickRate time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New 스케줄러 생성
func New(logger Logger) *Scheduler {
	return &Scheduler{
		tasks:    make([]*Task, 0),
		logger:   logger,
		tickRate: 5 * time.Second,
		stop:     make(chan struct{}),
	}
}

// Register 주기적 작업 등록
func (s *Scheduler) Register(taskName string, interval time.Duration, handler func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = append(s.tasks, &Task{
		Name:     taskName,
		Interval: interval,
		Handler:  handler,
		NextRun:  time.Now().Add(interval),
	})

	s.logger.Info("Scheduled task registered: %s (every %s)", taskName, interval)
}

// SetInterval 작업 주기 변경 (bootstrap → steady 전환용).
// 다음 실행 시각도 새 주기 기준으로 다시 잡는다.
func (s *Scheduler) SetInterval(taskName string, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.Name == taskName {
			t.Interval = interval
			t.NextRun = time.Now().Add(interval)
			s.logger.Info("Scheduled task rescheduled: %s (every %s)", taskName, interval)
			return nil
		}
	}
	return fmt.Errorf("scheduler: unknown task %q", taskName)
}

// RunNow 작업 즉시 실행 예약 (수동 트리거용)
func (s *Scheduler) RunNow(taskName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.Name == taskName {
			t.NextRun = time.Now()
			return nil
		}
	}
	return fmt.Errorf("scheduler: unknown task %q", taskName)
}

// Start 스케줄러 시작 (백그라운드 goroutine)
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tickRate)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case now := <-ticker.C:
				s.tick(now)
			}
		}
	}()
	s.logger.Info("Automation scheduler started")
}

// Stop 스케줄러 중지. 진행 중인 작업은 끝까지 수행된다.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
	s.logger.Info("Automation scheduler stopped")
}

// tick 실행 대상 작업 체크 및 실행.
// 작업별로 goroutine에서 실행하며, 이전 런이 아직 돌고 있으면 건너뛴다.
func (s *Scheduler) tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, task := range s.tasks {
		if now.Before(task.NextRun) || task.running {
			continue
		}

		task.running = true
		task.LastRun = now
		task.NextRun = now.Add(task.Interval)
		task.RunCount++

		s.wg.Add(1)
		go s.run(task)
	}
}

func (s *Scheduler) run(task *Task) {
	defer s.wg.Done()
	s.logger.Info("Running scheduled task: %s", task.Name)

	err := task.Handler()

	s.mu.Lock()
	task.running = false
	task.LastError = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Scheduled task error [%s]: %v", task.Name, err)
	}
}

// GetTasks 등록된 작업 목록 조회 (모니터링용)
func (s *Scheduler) GetTasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		info := TaskInfo{
			Name:     t.Name,
			Interval: t.Interval.String(),
			LastRun:  t.LastRun,
			NextRun:  t.NextRun,
			RunCount: t.RunCount,
			Running:  t.running,
		}
		if t.LastError != nil {
			errMsg := t.LastError.Error()
			info.LastError = &errMsg
		}
		result = append(result, info)
	}
	return result
}

// TaskInfo 작업 정보 (JSON 응답용)
type TaskInfo struct {
	Name      string    `json:"name"`
	Interval  string    `json:"interval"`
	LastRun   time.Time `json:"last_run"`
	NextRun   time.Time `json:"next_run"`
	RunCount  int64     `json:"run_count"`
	Running   bool      `json:"running"`
	LastError *string   `json:"last_error,omitempty"`
}
