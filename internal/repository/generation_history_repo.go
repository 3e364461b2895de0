package repository

import (
	"gorm.io/gorm"

	"github.com/replyon/replyon-backend/internal/domain"
)

// GenerationHistoryRepository handles generation history data operations.
// 이력은 append-only이며 수정/삭제 연산을 제공하지 않는다.
type GenerationHistoryRepository struct {
	db *gorm.DB
}

// NewGenerationHistoryRepository creates a new GenerationHistoryRepository
func NewGenerationHistoryRepository(db *gorm.DB) *GenerationHistoryRepository {
	return &GenerationHistoryRepository{db: db}
}

// Create 생성 시도 기록 저장
func (r *GenerationHistoryRepository) Create(entry *domain.GenerationHistoryEntry) error {
	return r.db.Create(entry).Error
}

// ListByReview 리뷰의 생성 이력 조회 (최신순, 재생성/디버깅용)
func (r *GenerationHistoryRepository) ListByReview(reviewID string) ([]domain.GenerationHistoryEntry, error) {
	var entries []domain.GenerationHistoryEntry
	if err := r.db.Where("review_id = ?", reviewID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
