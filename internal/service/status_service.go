package service

import (
	"context"
	"time"

	"github.com/replyon/replyon-backend/internal/domain"
	"github.com/replyon/replyon-backend/pkg/cache"
)

// ReviewStatusView 리뷰 상태 조회 응답
type ReviewStatusView struct {
	ReviewID     string              `json:"review_id"`
	StoreCode    string              `json:"store_code"`
	Platform     domain.Platform     `json:"platform"`
	Status       domain.ReviewStatus `json:"status"`
	AIResponse   string              `json:"ai_response,omitempty"`
	RetryCount   int                 `json:"retry_count"`
	ErrorMessage string              `json:"error_message,omitempty"`
	ResponseAt   *time.Time          `json:"response_at,omitempty"`
}

// StatusService 리뷰 상태/대기 건수/생성 이력 조회 (캐시 우선)
type StatusService interface {
	GetReviewStatus(ctx context.Context, reviewID string) (*ReviewStatusView, error)
	GetPendingCount(ctx context.Context, storeCode string) (int64, error)
	GetGenerationHistory(ctx context.Context, reviewID string) ([]domain.GenerationHistoryEntry, error)
}

type statusService struct {
	reviewRepo  ReviewStore
	historyRepo HistoryStore
	cache       cache.Service
}

// NewStatusService creates a new StatusService
func NewStatusService(reviewRepo ReviewStore, historyRepo HistoryStore, cacheService cache.Service) StatusService {
	return &statusService{reviewRepo: reviewRepo, historyRepo: historyRepo, cache: cacheService}
}

// GetReviewStatus 리뷰 상태 조회. 캐시 미스는 DB 조회 후 채운다.
func (s *statusService) GetReviewStatus(ctx context.Context, reviewID string) (*ReviewStatusView, error) {
	var cached ReviewStatusView
	if err := s.cache.GetReviewStatus(ctx, reviewID, &cached); err == nil {
		return &cached, nil
	}

	review, err := s.reviewRepo.GetByReviewID(reviewID)
	if err != nil {
		return nil, err
	}

	view := &ReviewStatusView{
		ReviewID:     review.ReviewID,
		StoreCode:    review.StoreCode,
		Platform:     review.Platform,
		Status:       review.Status,
		AIResponse:   review.AIResponse,
		RetryCount:   review.RetryCount,
		ErrorMessage: review.ErrorMessage,
		ResponseAt:   review.ResponseAt,
	}

	// 캐시 실패는 조회 결과에 영향 없음
	_ = s.cache.SetReviewStatus(ctx, reviewID, view)
	return view, nil
}

// GetPendingCount 매장의 pending 리뷰 건수 조회
func (s *statusService) GetPendingCount(ctx context.Context, storeCode string) (int64, error) {
	if count, err := s.cache.GetPendingCount(ctx, storeCode); err == nil {
		return count, nil
	}

	count, err := s.reviewRepo.CountPendingByStore(storeCode)
	if err != nil {
		return 0, err
	}

	_ = s.cache.SetPendingCount(ctx, storeCode, count)
	return count, nil
}

// GetGenerationHistory 리뷰의 생성 시도 이력 조회 (최신순).
// 리뷰 존재 확인 후 이력을 반환하므로 없는 리뷰는 ErrReviewNotFound.
func (s *statusService) GetGenerationHistory(_ context.Context, reviewID string) ([]domain.GenerationHistoryEntry, error) {
	if _, err := s.reviewRepo.GetByReviewID(reviewID); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByReview(reviewID)
}
