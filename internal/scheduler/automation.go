package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/replyon/replyon-backend/internal/config"
	"github.com/replyon/replyon-backend/internal/service"
)

// 작업 이름 상수. 수동 트리거와 주기 전환이 같은 이름을 쓴다.
const (
	TaskCollect  = "collect-reviews"
	TaskGenerate = "generate-replies"
	TaskPost     = "post-replies"
)

// Automation 수집/생성/등록 세 작업을 스케줄러에 묶는 오케스트레이터.
// bootstrap/steady는 기동 시 선택하는 독립 자세이며 서로 전환되지 않는다.
type Automation struct {
	scheduler *Scheduler
	collector service.CollectorService
	generator service.GenerationService
	poster    service.PostingService
	cfg       config.AutomationConfig
	logger    Logger

	mu        sync.Mutex
	warmingUp bool
}

// NewAutomation creates a new Automation
func NewAutomation(sched *Scheduler, collector service.CollectorService,
	generator service.GenerationService, poster service.PostingService,
	cfg config.AutomationConfig, logger Logger) *Automation {
	return &Automation{
		scheduler: sched,
		collector: collector,
		generator: generator,
		poster:    poster,
		cfg:       cfg,
		logger:    logger,
	}
}

// StartBootstrap 초기 기동: 공격적 주기로 작업을 등록한 뒤
// 수집→생성→등록 워밍업 사이클을 즉시 한 번 순차 실행한다.
func (a *Automation) StartBootstrap(ctx context.Context) {
	a.register(a.cfg.BootstrapCollectInterval.Std(),
		a.cfg.BootstrapGenerateInterval.Std(),
		a.cfg.BootstrapPostInterval.Std())
	a.scheduler.Start()

	a.mu.Lock()
	a.warmingUp = true
	a.mu.Unlock()
	go func() {
		defer func() {
			a.mu.Lock()
			a.warmingUp = false
			a.mu.Unlock()
		}()
		a.warmUp(ctx)
	}()
}

// ErrWarmUpRunning 워밍업 사이클이 이미 진행 중
var ErrWarmUpRunning = errors.New("warm-up cycle already running")

// TriggerBootstrap 워밍업 사이클을 수동으로 다시 실행한다 (운영자 트리거).
// 이미 진행 중이면 ErrWarmUpRunning을 반환한다.
func (a *Automation) TriggerBootstrap(ctx context.Context) error {
	a.mu.Lock()
	if a.warmingUp {
		a.mu.Unlock()
		return ErrWarmUpRunning
	}
	a.warmingUp = true
	a.mu.Unlock()

	go func() {
		defer func() {
			a.mu.Lock()
			a.warmingUp = false
			a.mu.Unlock()
		}()
		a.warmUp(ctx)
	}()
	return nil
}

// StartSteady 안정 자세로 기동 (워밍업 없이 steady 주기만 등록)
func (a *Automation) StartSteady() {
	a.register(a.cfg.SteadyCollectInterval.Std(),
		a.cfg.SteadyGenerateInterval.Std(),
		a.cfg.SteadyPostInterval.Std())
	a.scheduler.Start()
}

func (a *Automation) register(collectEvery, generateEvery, postEvery time.Duration) {
	a.scheduler.Register(TaskCollect, collectEvery, func() error {
		_, err := a.collector.CollectAll(context.Background())
		return err
	})
	a.scheduler.Register(TaskGenerate, generateEvery, func() error {
		_, err := a.generator.GenerateForPending(context.Background())
		return err
	})
	a.scheduler.Register(TaskPost, postEvery, func() error {
		_, err := a.poster.PostDueReplies(context.Background())
		return err
	})
}

// warmUp 기동 직후 전체 사이클 한 번 실행. 단계 사이에 짧은 안정화
// 대기를 둬서 이전 단계의 상태 전이가 조회에 반영되도록 한다.
func (a *Automation) warmUp(ctx context.Context) {
	settle := a.cfg.BootstrapSettleWait.Std()

	if _, err := a.collector.CollectAll(ctx); err != nil {
		a.logger.Error("bootstrap collection failed: %v", err)
	}
	if !a.sleep(ctx, settle) {
		return
	}

	if _, err := a.generator.GenerateForPending(ctx); err != nil {
		a.logger.Error("bootstrap generation failed: %v", err)
	}
	if !a.sleep(ctx, settle) {
		return
	}

	if _, err := a.poster.PostDueReplies(ctx); err != nil {
		a.logger.Error("bootstrap posting failed: %v", err)
	}
	a.logger.Info("bootstrap warm-up cycle finished")
}

func (a *Automation) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Stop 스케줄러 중지
func (a *Automation) Stop() {
	a.scheduler.Stop()
}

// Tasks 등록된 작업 현황
func (a *Automation) Tasks() []TaskInfo {
	return a.scheduler.GetTasks()
}

// TriggerCollect 수집 즉시 실행 예약
func (a *Automation) TriggerCollect() error { return a.scheduler.RunNow(TaskCollect) }

// TriggerGenerate 생성 즉시 실행 예약
func (a *Automation) TriggerGenerate() error { return a.scheduler.RunNow(TaskGenerate) }

// TriggerPost 등록 즉시 실행 예약
func (a *Automation) TriggerPost() error { return a.scheduler.RunNow(TaskPost) }
