package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/replyon/replyon-backend/internal/collaborator"
	"github.com/replyon/replyon-backend/internal/domain"
	"github.com/replyon/replyon-backend/internal/repository"
)

type fakeGenerator struct {
	mu        sync.Mutex
	result    *collaborator.GenerationResult
	err       error
	calls     int32
	active    int32
	maxActive int32
	delay     time.Duration
}

func (f *fakeGenerator) Generate(_ context.Context, _ domain.Review, _ domain.StorePolicy) (*collaborator.GenerationResult, error) {
	cur := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	atomic.AddInt32(&f.calls, 1)

	f.mu.Lock()
	if cur > f.maxActive {
		f.maxActive = cur
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		r := *f.result
		return &r, nil
	}
	return &collaborator.GenerationResult{
		Text:         "감사합니다!",
		QualityScore: 0.9,
		UrgencyScore: 0.1,
		ModelVersion: "test-model",
	}, nil
}

func permissivePolicy(storeCode string) *domain.StorePolicy {
	return &domain.StorePolicy{
		StoreCode:    storeCode,
		Platform:     domain.PlatformBaemin,
		Rating1Reply: true, Rating2Reply: true, Rating3Reply: true,
		Rating4Reply: true, Rating5Reply: true,
	}
}

func pendingReview(reviewID, storeCode string, rating int) domain.Review {
	return domain.Review{
		ReviewID:  reviewID,
		StoreCode: storeCode,
		Platform:  domain.PlatformBaemin,
		Rating:    &rating,
		Content:   "리뷰 본문",
		Status:    domain.StatusPending,
	}
}

func TestGenerateForPendingHighQualityGoesReadyToPost(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	policyRepo := new(mockPolicyRepo)
	historyRepo := new(mockHistoryRepo)
	gen := &fakeGenerator{}

	reviewRepo.On("FindUnreplied").Return([]domain.Review{pendingReview("r1", "s1", 5)}, nil)
	policyRepo.On("GetByStoreCode", "s1").Return(permissivePolicy("s1"), nil)

	var saved repository.GenerationUpdate
	reviewRepo.On("SaveGenerationResult", "r1", mock.AnythingOfType("repository.GenerationUpdate")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(repository.GenerationUpdate) }).
		Return(nil)
	historyRepo.On("Create", mock.AnythingOfType("*domain.GenerationHistoryEntry")).Return(nil)

	svc := NewGenerationService(reviewRepo, policyRepo, historyRepo, gen, 5)
	summary, err := svc.GenerateForPending(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Generated)
	assert.Equal(t, domain.StatusReadyToPost, saved.Status)
	assert.Equal(t, "감사합니다!", saved.AIResponse)
	historyRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestGenerateForPendingLowRatingStaysGenerated(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	policyRepo := new(mockPolicyRepo)
	historyRepo := new(mockHistoryRepo)
	gen := &fakeGenerator{}

	// 별점 2점은 생성은 되지만 자동 등록 부적격 → generated
	reviewRepo.On("FindUnreplied").Return([]domain.Review{pendingReview("r1", "s1", 2)}, nil)
	policyRepo.On("GetByStoreCode", "s1").Return(permissivePolicy("s1"), nil)

	var saved repository.GenerationUpdate
	reviewRepo.On("SaveGenerationResult", "r1", mock.AnythingOfType("repository.GenerationUpdate")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(repository.GenerationUpdate) }).
		Return(nil)
	historyRepo.On("Create", mock.Anything).Return(nil)

	svc := NewGenerationService(reviewRepo, policyRepo, historyRepo, gen, 5)
	_, err := svc.GenerateForPending(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusGenerated, saved.Status)
}

func TestGenerateForPendingBossReviewNotAutoPosted(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	policyRepo := new(mockPolicyRepo)
	historyRepo := new(mockHistoryRepo)
	gen := &fakeGenerator{result: &collaborator.GenerationResult{
		Text: "사장님이 확인하겠습니다", QualityScore: 0.95, UrgencyScore: 0.2, BossReviewNeeded: true,
	}}

	reviewRepo.On("FindUnreplied").Return([]domain.Review{pendingReview("r1", "s1", 5)}, nil)
	policyRepo.On("GetByStoreCode", "s1").Return(permissivePolicy("s1"), nil)

	var saved repository.GenerationUpdate
	reviewRepo.On("SaveGenerationResult", "r1", mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(repository.GenerationUpdate) }).
		Return(nil)
	historyRepo.On("Create", mock.Anything).Return(nil)

	svc := NewGenerationService(reviewRepo, policyRepo, historyRepo, gen, 5)
	_, err := svc.GenerateForPending(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusGenerated, saved.Status)
	assert.True(t, saved.BossReplyNeeded)
}

func TestGenerateForPendingRatingToggleSkips(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	policyRepo := new(mockPolicyRepo)
	historyRepo := new(mockHistoryRepo)
	gen := &fakeGenerator{}

	policy := permissivePolicy("s1")
	policy.Rating1Reply = false

	reviewRepo.On("FindUnreplied").Return([]domain.Review{pendingReview("r1", "s1", 1)}, nil)
	policyRepo.On("GetByStoreCode", "s1").Return(policy, nil)

	svc := NewGenerationService(reviewRepo, policyRepo, historyRepo, gen, 5)
	summary, err := svc.GenerateForPending(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, int32(0), atomic.LoadInt32(&gen.calls))
	reviewRepo.AssertNotCalled(t, "SaveGenerationResult", mock.Anything, mock.Anything)
}

func TestGenerateForPendingFailureStaysPending(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	policyRepo := new(mockPolicyRepo)
	historyRepo := new(mockHistoryRepo)
	gen := &fakeGenerator{err: errors.New("ai unavailable")}

	reviewRepo.On("FindUnreplied").Return([]domain.Review{pendingReview("r1", "s1", 5)}, nil)
	policyRepo.On("GetByStoreCode", "s1").Return(permissivePolicy("s1"), nil)
	reviewRepo.On("SetGenerationError", "r1", mock.Anything).Return(nil)

	svc := NewGenerationService(reviewRepo, policyRepo, historyRepo, gen, 5)
	summary, err := svc.GenerateForPending(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	// 실패해도 상태 전이는 일어나지 않는다 (pending 유지)
	reviewRepo.AssertNotCalled(t, "SaveGenerationResult", mock.Anything, mock.Anything)
	reviewRepo.AssertCalled(t, "SetGenerationError", "r1", "ai unavailable")
}

func TestGenerateForPendingBoundsConcurrency(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	policyRepo := new(mockPolicyRepo)
	historyRepo := new(mockHistoryRepo)
	gen := &fakeGenerator{delay: 20 * time.Millisecond}

	var reviews []domain.Review
	for i := 0; i < 20; i++ {
		reviews = append(reviews, pendingReview(string(rune('a'+i)), "s1", 5))
	}

	reviewRepo.On("FindUnreplied").Return(reviews, nil)
	policyRepo.On("GetByStoreCode", "s1").Return(permissivePolicy("s1"), nil)
	reviewRepo.On("SaveGenerationResult", mock.Anything, mock.Anything).Return(nil)
	historyRepo.On("Create", mock.Anything).Return(nil)

	svc := NewGenerationService(reviewRepo, policyRepo, historyRepo, gen, 5)
	summary, err := svc.GenerateForPending(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 20, summary.Generated)
	assert.Equal(t, int32(20), atomic.LoadInt32(&gen.calls))
	assert.LessOrEqual(t, gen.maxActive, int32(5))
}
