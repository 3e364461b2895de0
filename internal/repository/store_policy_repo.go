package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/replyon/replyon-backend/internal/common"
	"github.com/replyon/replyon-backend/internal/domain"
)

// StorePolicyRepository handles store policy data operations
type StorePolicyRepository struct {
	db *gorm.DB
}

// NewStorePolicyRepository creates a new StorePolicyRepository
func NewStorePolicyRepository(db *gorm.DB) *StorePolicyRepository {
	return &StorePolicyRepository{db: db}
}

// FindActiveAutoReply 수집 대상 매장 조회 (활성 + 자동 답글 켜짐)
func (r *StorePolicyRepository) FindActiveAutoReply() ([]domain.StorePolicy, error) {
	var policies []domain.StorePolicy
	if err := r.db.
		Where("is_active = ? AND auto_reply_enabled = ?", true, true).
		Order("store_code ASC").
		Find(&policies).Error; err != nil {
		return nil, err
	}
	return policies, nil
}

// GetByStoreCode 매장 코드로 정책 조회
func (r *StorePolicyRepository) GetByStoreCode(storeCode string) (*domain.StorePolicy, error) {
	var policy domain.StorePolicy
	if err := r.db.Where("store_code = ?", storeCode).First(&policy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrStoreNotFound
		}
		return nil, err
	}
	return &policy, nil
}

// GetByPlatformAccount (platform, platform_code) 조합으로 정책 조회 (등록 그룹용)
func (r *StorePolicyRepository) GetByPlatformAccount(platform domain.Platform, platformCode string) (*domain.StorePolicy, error) {
	var policy domain.StorePolicy
	if err := r.db.
		Where("platform = ? AND platform_code = ?", platform, platformCode).
		First(&policy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrStoreNotFound
		}
		return nil, err
	}
	return &policy, nil
}

// UpdateLastError 매장 단위 수집 오류 기록 (운영자 가시성용; 성공 시 빈 문자열로 리셋)
func (r *StorePolicyRepository) UpdateLastError(storeCode, errMsg string) error {
	return r.db.Model(&domain.StorePolicy{}).
		Where("store_code = ?", storeCode).
		Update("last_error_message", truncateError(errMsg)).Error
}
