package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/replyon/replyon-backend/internal/collaborator"
	"github.com/replyon/replyon-backend/internal/domain"
	"github.com/replyon/replyon-backend/internal/monitoring"
	"github.com/replyon/replyon-backend/internal/repository"
	"github.com/replyon/replyon-backend/pkg/logger"
)

// GenerationSummary 생성 런 한 번의 결과
type GenerationSummary struct {
	Candidates int `json:"candidates"`
	Generated  int `json:"generated"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// GenerationService pending 리뷰에 대한 AI 답글 초안 생성 오케스트레이션
type GenerationService interface {
	GenerateForPending(ctx context.Context) (*GenerationSummary, error)
}

type generationService struct {
	reviewRepo  ReviewStore
	policyRepo  PolicyStore
	historyRepo HistoryStore
	generator   collaborator.ReplyGenerator
	concurrency int
}

// NewGenerationService creates a new GenerationService
func NewGenerationService(reviewRepo ReviewStore, policyRepo PolicyStore, historyRepo HistoryStore,
	generator collaborator.ReplyGenerator, concurrency int) GenerationService {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &generationService{
		reviewRepo:  reviewRepo,
		policyRepo:  policyRepo,
		historyRepo: historyRepo,
		generator:   generator,
		concurrency: concurrency,
	}
}

// GenerateForPending 초안 없는 pending 리뷰 전체에 대해 답글을 생성한다.
// AI 호출은 동시에 concurrency개까지만 나간다. 리뷰 하나의 실패는
// error_message만 기록하고 상태를 pending으로 남겨 다음 주기에 재시도된다.
func (s *generationService) GenerateForPending(ctx context.Context) (*GenerationSummary, error) {
	start := time.Now()
	defer func() { monitoring.ObserveRunDuration("generate", time.Since(start)) }()

	reviews, err := s.reviewRepo.FindUnreplied()
	if err != nil {
		return nil, err
	}

	log := logger.WithRun("generate", uuid.NewString())
	summary := &GenerationSummary{Candidates: len(reviews)}

	// 같은 매장 리뷰가 여럿이어도 정책은 한 번만 조회
	policies := map[string]*domain.StorePolicy{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range reviews {
		review := reviews[i]
		g.Go(func() error {
			outcome := s.generateOne(gctx, &review, policies, &mu)
			mu.Lock()
			switch outcome {
			case outcomeGenerated:
				summary.Generated++
			case outcomeSkipped:
				summary.Skipped++
			case outcomeFailed:
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	log.Info().
		Int("candidates", summary.Candidates).
		Int("generated", summary.Generated).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("generation run finished")
	return summary, nil
}

type generationOutcome int

const (
	outcomeGenerated generationOutcome = iota
	outcomeSkipped
	outcomeFailed
)

func (s *generationService) generateOne(ctx context.Context, review *domain.Review,
	policies map[string]*domain.StorePolicy, mu *sync.Mutex) generationOutcome {
	policy, err := s.policyFor(review.StoreCode, policies, mu)
	if err != nil {
		s.recordFailure(review.ReviewID, err)
		return outcomeFailed
	}

	if !policy.RatingReplyEnabled(review.Rating) {
		monitoring.GenerationResult("skipped")
		return outcomeSkipped
	}
	if !policy.WithinOperatingHours(time.Now()) {
		monitoring.GenerationResult("skipped")
		return outcomeSkipped
	}

	result, err := s.generator.Generate(ctx, *review, *policy)
	if err != nil {
		s.recordFailure(review.ReviewID, err)
		return outcomeFailed
	}

	status := domain.StatusGenerated
	if domain.AutoPostEligible(review.Rating, result.QualityScore, result.UrgencyScore, result.BossReviewNeeded) {
		status = domain.StatusReadyToPost
	}

	if err := s.reviewRepo.SaveGenerationResult(review.ReviewID, repository.GenerationUpdate{
		AIResponse:      result.Text,
		QualityScore:    result.QualityScore,
		UrgencyScore:    result.UrgencyScore,
		BossReplyNeeded: result.BossReviewNeeded,
		Status:          status,
	}); err != nil {
		s.recordFailure(review.ReviewID, err)
		return outcomeFailed
	}

	// 이력 기록 실패는 생성 결과를 무효화하지 않는다
	if err := s.historyRepo.Create(&domain.GenerationHistoryEntry{
		ReviewID:         review.ReviewID,
		StoreCode:        review.StoreCode,
		PromptUsed:       result.PromptUsed,
		ModelVersion:     result.ModelVersion,
		GeneratedContent: result.Text,
		QualityScore:     result.QualityScore,
		UrgencyScore:     result.UrgencyScore,
		BossReviewNeeded: result.BossReviewNeeded,
		LatencyMs:        result.LatencyMs,
		TokenUsage:       result.TokenUsage,
		IsSelected:       true,
	}); err != nil {
		logger.Warn("generation history write failed for %s: %v", review.ReviewID, err)
	}

	monitoring.GenerationResult("success")
	return outcomeGenerated
}

func (s *generationService) policyFor(storeCode string, policies map[string]*domain.StorePolicy,
	mu *sync.Mutex) (*domain.StorePolicy, error) {
	mu.Lock()
	if p, ok := policies[storeCode]; ok {
		mu.Unlock()
		return p, nil
	}
	mu.Unlock()

	policy, err := s.policyRepo.GetByStoreCode(storeCode)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	policies[storeCode] = policy
	mu.Unlock()
	return policy, nil
}

func (s *generationService) recordFailure(reviewID string, cause error) {
	monitoring.GenerationResult("failed")
	if err := s.reviewRepo.SetGenerationError(reviewID, cause.Error()); err != nil {
		logger.Error("failed to record generation error for %s: %v", reviewID, err)
	}
}
