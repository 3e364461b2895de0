package service

import (
	"time"

	"github.com/replyon/replyon-backend/internal/domain"
	"github.com/replyon/replyon-backend/internal/repository"
)

// ReviewStore 서비스 계층이 필요로 하는 리뷰 저장소 연산.
// *repository.ReviewRepository가 구현한다.
type ReviewStore interface {
	CreateIfAbsent(review *domain.Review) (bool, error)
	GetByReviewID(reviewID string) (*domain.Review, error)
	FindUnreplied() ([]domain.Review, error)
	FindPostable(window domain.PostingWindow, bossNeeded bool, limit int) ([]domain.Review, error)
	SaveGenerationResult(reviewID string, result repository.GenerationUpdate) error
	SetGenerationError(reviewID, errMsg string) error
	MarkProcessing(reviewIDs []string) error
	MarkPosted(reviewID, finalText string, postedAt time.Time) error
	MarkFailed(reviewID, errMsg string) error
	CountPendingByStore(storeCode string) (int64, error)
}

// PolicyStore 서비스 계층이 필요로 하는 매장 정책 저장소 연산.
// *repository.StorePolicyRepository가 구현한다.
type PolicyStore interface {
	FindActiveAutoReply() ([]domain.StorePolicy, error)
	GetByStoreCode(storeCode string) (*domain.StorePolicy, error)
	GetByPlatformAccount(platform domain.Platform, platformCode string) (*domain.StorePolicy, error)
	UpdateLastError(storeCode, errMsg string) error
}

// HistoryStore 생성 이력 저장소 연산.
// *repository.GenerationHistoryRepository가 구현한다.
type HistoryStore interface {
	Create(entry *domain.GenerationHistoryEntry) error
	ListByReview(reviewID string) ([]domain.GenerationHistoryEntry, error)
}
