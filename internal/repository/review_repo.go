package repository

import (
	"errors"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/replyon/replyon-backend/internal/common"
	"github.com/replyon/replyon-backend/internal/domain"
)

// ReviewRepository handles review data operations.
// 리뷰/정책 레코드를 만지는 유일한 계층이다.
type ReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// CreateIfAbsent review_id 기준 멱등 삽입.
// 이미 존재하면 (false, nil). 조회-후-삽입 사이에 다른 수집 런이 먼저 넣은 경우
// (duplicate key) 도 에러가 아니라 no-op으로 처리한다.
func (r *ReviewRepository) CreateIfAbsent(review *domain.Review) (bool, error) {
	var count int64
	if err := r.db.Model(&domain.Review{}).
		Where("review_id = ?", review.ReviewID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if err := r.db.Create(review).Error; err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqldriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// GetByReviewID review_id로 단건 조회
func (r *ReviewRepository) GetByReviewID(reviewID string) (*domain.Review, error) {
	var review domain.Review
	if err := r.db.Where("review_id = ? AND is_deleted = ?", reviewID, false).
		First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrReviewNotFound
		}
		return nil, err
	}
	return &review, nil
}

// FindUnreplied 답글 초안이 없는 pending 리뷰 전체 조회 (생성 코디네이터용)
func (r *ReviewRepository) FindUnreplied() ([]domain.Review, error) {
	var reviews []domain.Review
	if err := r.db.
		Where("status = ? AND (ai_response IS NULL OR ai_response = '') AND is_deleted = ?",
			domain.StatusPending, false).
		Order("review_date ASC").
		Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

// FindPostable 지연 윈도우 내 등록 후보 조회.
// bossNeeded에 따라 일반/사장님확인 집합이 나뉘며 두 집합은 서로소다.
// 오래된 리뷰부터 처리한다.
func (r *ReviewRepository) FindPostable(window domain.PostingWindow, bossNeeded bool, limit int) ([]domain.Review, error) {
	statuses := domain.PostableStatuses()

	var reviews []domain.Review
	if err := r.db.
		Where("status IN ?", statuses).
		Where("boss_reply_needed = ?", bossNeeded).
		Where("review_date BETWEEN ? AND ?", window.From, window.To).
		Where("(ai_response IS NOT NULL AND ai_response != '') OR (final_response IS NOT NULL AND final_response != '')").
		Where("is_deleted = ?", false).
		Order("review_date ASC").
		Limit(limit).
		Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

// SaveGenerationResult 생성 성공 결과 반영 (초안 + 점수 + 상태 전이)
func (r *ReviewRepository) SaveGenerationResult(reviewID string, result GenerationUpdate) error {
	return r.db.Model(&domain.Review{}).
		Where("review_id = ?", reviewID).
		Updates(map[string]interface{}{
			"ai_response":       result.AIResponse,
			"quality_score":     result.QualityScore,
			"urgency_score":     result.UrgencyScore,
			"boss_reply_needed": result.BossReplyNeeded,
			"status":            result.Status,
			"error_message":     "",
		}).Error
}

// GenerationUpdate 생성 결과 반영용 필드 묶음
type GenerationUpdate struct {
	AIResponse      string
	QualityScore    float64
	UrgencyScore    float64
	BossReplyNeeded bool
	Status          domain.ReviewStatus
}

// SetGenerationError 생성 실패 기록. 상태는 pending으로 유지되어 다음 주기에 재시도된다.
func (r *ReviewRepository) SetGenerationError(reviewID, errMsg string) error {
	return r.db.Model(&domain.Review{}).
		Where("review_id = ?", reviewID).
		Update("error_message", truncateError(errMsg)).Error
}

// MarkProcessing 등록 작업 시작 전 그룹 멤버 일괄 전이
func (r *ReviewRepository) MarkProcessing(reviewIDs []string) error {
	if len(reviewIDs) == 0 {
		return nil
	}
	return r.db.Model(&domain.Review{}).
		Where("review_id IN ?", reviewIDs).
		Update("status", domain.StatusProcessing).Error
}

// MarkPosted 등록 성공 반영
func (r *ReviewRepository) MarkPosted(reviewID, finalText string, postedAt time.Time) error {
	return r.db.Model(&domain.Review{}).
		Where("review_id = ?", reviewID).
		Updates(map[string]interface{}{
			"status":         domain.StatusPosted,
			"final_response": finalText,
			"response_at":    postedAt,
			"error_message":  "",
		}).Error
}

// MarkFailed 등록 실패 반영. retry_count는 정보용 카운터이며 상한이 없다.
func (r *ReviewRepository) MarkFailed(reviewID, errMsg string) error {
	return r.db.Model(&domain.Review{}).
		Where("review_id = ?", reviewID).
		Updates(map[string]interface{}{
			"status":        domain.StatusFailed,
			"error_message": truncateError(errMsg),
			"retry_count":   gorm.Expr("retry_count + 1"),
		}).Error
}

// CountPendingByStore 매장별 pending 건수
func (r *ReviewRepository) CountPendingByStore(storeCode string) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Review{}).
		Where("store_code = ? AND status = ? AND is_deleted = ?",
			storeCode, domain.StatusPending, false).
		Count(&count).Error
	return count, err
}

func truncateError(msg string) string {
	const maxLen = 500
	if len(msg) <= maxLen {
		return msg
	}
	return msg[:maxLen]
}
