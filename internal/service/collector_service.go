package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/replyon/replyon-backend/internal/collaborator"
	"github.com/replyon/replyon-backend/internal/common"
	"github.com/replyon/replyon-backend/internal/domain"
	"github.com/replyon/replyon-backend/internal/monitoring"
	"github.com/replyon/replyon-backend/pkg/logger"
	"github.com/replyon/replyon-backend/pkg/vault"
)

// CollectionSummary 수집 런 한 번의 결과
type CollectionSummary struct {
	Stores     int               `json:"stores"`
	Collected  int               `json:"collected"`
	Duplicates int               `json:"duplicates"`
	Errors     map[string]string `json:"errors,omitempty"` // store_code → 오류 메시지
}

// CollectorService 매장별 신규 리뷰 수집 오케스트레이션
type CollectorService interface {
	CollectAll(ctx context.Context) (*CollectionSummary, error)
	CollectStore(ctx context.Context, storeCode string) (*CollectionSummary, error)
}

type collectorService struct {
	policyRepo   PolicyStore
	reviewRepo   ReviewStore
	registry     *collaborator.Registry
	vault        *vault.Vault
	crawlTimeout time.Duration
	fetchLimit   int
}

// NewCollectorService creates a new CollectorService
func NewCollectorService(policyRepo PolicyStore, reviewRepo ReviewStore, registry *collaborator.Registry,
	v *vault.Vault, crawlTimeout time.Duration, fetchLimit int) CollectorService {
	return &collectorService{
		policyRepo:   policyRepo,
		reviewRepo:   reviewRepo,
		registry:     registry,
		vault:        v,
		crawlTimeout: crawlTimeout,
		fetchLimit:   fetchLimit,
	}
}

// CollectAll 활성 매장 전체를 순회하며 미답변 리뷰를 수집한다.
// 매장 하나의 실패는 기록만 하고 다음 매장으로 진행한다.
func (s *collectorService) CollectAll(ctx context.Context) (*CollectionSummary, error) {
	start := time.Now()
	defer func() { monitoring.ObserveRunDuration("collect", time.Since(start)) }()

	policies, err := s.policyRepo.FindActiveAutoReply()
	if err != nil {
		return nil, err
	}

	log := logger.WithRun("collect", uuid.NewString())
	summary := &CollectionSummary{Stores: len(policies), Errors: map[string]string{}}

	for i := range policies {
		policy := policies[i]
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		collected, duplicates, err := s.collectOne(ctx, &policy)
		summary.Collected += collected
		summary.Duplicates += duplicates

		if err != nil {
			summary.Errors[policy.StoreCode] = err.Error()
			log.Warn().Str("store_code", policy.StoreCode).Err(err).Msg("store collection failed")
			if uerr := s.policyRepo.UpdateLastError(policy.StoreCode, err.Error()); uerr != nil {
				log.Error().Str("store_code", policy.StoreCode).Err(uerr).Msg("failed to record store error")
			}
			continue
		}

		if uerr := s.policyRepo.UpdateLastError(policy.StoreCode, ""); uerr != nil {
			log.Error().Str("store_code", policy.StoreCode).Err(uerr).Msg("failed to clear store error")
		}
	}

	log.Info().
		Int("stores", summary.Stores).
		Int("collected", summary.Collected).
		Int("duplicates", summary.Duplicates).
		Int("failed_stores", len(summary.Errors)).
		Msg("collection run finished")
	return summary, nil
}

// CollectStore 매장 한 곳만 수집 (수동 트리거용)
func (s *collectorService) CollectStore(ctx context.Context, storeCode string) (*CollectionSummary, error) {
	policy, err := s.policyRepo.GetByStoreCode(storeCode)
	if err != nil {
		return nil, err
	}

	log := logger.WithStoreCode(storeCode)
	summary := &CollectionSummary{Stores: 1, Errors: map[string]string{}}
	collected, duplicates, err := s.collectOne(ctx, policy)
	summary.Collected = collected
	summary.Duplicates = duplicates
	if err != nil {
		summary.Errors[storeCode] = err.Error()
		log.Warn().Err(err).Msg("store collection failed")
		if uerr := s.policyRepo.UpdateLastError(storeCode, err.Error()); uerr != nil {
			log.Error().Err(uerr).Msg("failed to record store error")
		}
		return summary, nil
	}
	log.Info().Int("collected", collected).Int("duplicates", duplicates).Msg("store collection finished")
	if uerr := s.policyRepo.UpdateLastError(storeCode, ""); uerr != nil {
		log.Error().Err(uerr).Msg("failed to clear store error")
	}
	return summary, nil
}

func (s *collectorService) collectOne(ctx context.Context, policy *domain.StorePolicy) (collected, duplicates int, err error) {
	crawler, err := s.registry.Crawler(policy.Platform)
	if err != nil {
		return 0, 0, err
	}

	creds, err := s.decryptCredentials(policy)
	if err != nil {
		return 0, 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.crawlTimeout)
	defer cancel()

	ok, err := crawler.Login(ctx, creds)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		// 에이전트가 오류 없이 로그인 거부를 보고하는 경우 (자격증명 불일치 등)
		return 0, 0, common.ErrCrawlerLoginFailed
	}

	raws, err := crawler.FetchUnrepliedReviews(ctx, policy.PlatformCode, s.fetchLimit)
	if err != nil {
		return 0, 0, err
	}

	now := time.Now()
	for _, raw := range raws {
		if raw.HasReply {
			continue
		}
		review := mapRawReview(raw, policy, now)

		created, err := s.reviewRepo.CreateIfAbsent(review)
		if err != nil {
			return collected, duplicates, err
		}
		if created {
			collected++
			monitoring.ReviewCollected(string(policy.Platform))
		} else {
			duplicates++
			monitoring.ReviewDuplicate(string(policy.Platform))
		}
	}
	return collected, duplicates, nil
}

func (s *collectorService) decryptCredentials(policy *domain.StorePolicy) (collaborator.Credentials, error) {
	pw, err := s.vault.Decrypt(policy.PlatformPW)
	if err != nil {
		return collaborator.Credentials{}, err
	}
	return collaborator.Credentials{
		PlatformID:   policy.PlatformID,
		PlatformPW:   pw,
		PlatformCode: policy.PlatformCode,
	}, nil
}

func mapRawReview(raw collaborator.RawReview, policy *domain.StorePolicy, now time.Time) *domain.Review {
	return &domain.Review{
		ReviewID:       domain.ReviewIdentity(policy.Platform, policy.StoreCode, raw.NativeID),
		NativeReviewID: raw.NativeID,
		StoreCode:      policy.StoreCode,
		Platform:       policy.Platform,
		PlatformCode:   policy.PlatformCode,
		ReviewName:     CleanReviewerName(raw.ReviewName),
		Rating:         raw.Rating,
		Content:        raw.Content,
		OrderedMenu:    raw.OrderedMenu,
		DeliveryReview: raw.DeliveryReview,
		ReviewDate:     ResolveReviewDate(raw.RelativeDate, now),
		Status:         domain.StatusPending,
	}
}
