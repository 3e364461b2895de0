package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/replyon/replyon-backend/internal/collaborator"
	"github.com/replyon/replyon-backend/internal/common"
	"github.com/replyon/replyon-backend/internal/domain"
	"github.com/replyon/replyon-backend/internal/monitoring"
	"github.com/replyon/replyon-backend/pkg/logger"
	"github.com/replyon/replyon-backend/pkg/vault"
)

// PostingSummary 등록 런 한 번의 결과
type PostingSummary struct {
	Candidates int `json:"candidates"`
	Posted     int `json:"posted"`
	Failed     int `json:"failed"`
	Groups     int `json:"groups"`
}

// PostingService 지연 윈도우를 통과한 답글의 플랫폼 등록 오케스트레이션
type PostingService interface {
	PostDueReplies(ctx context.Context) (*PostingSummary, error)
}

type postingService struct {
	reviewRepo  ReviewStore
	policyRepo  PolicyStore
	registry    *collaborator.Registry
	vault       *vault.Vault
	postTimeout time.Duration
	normalLimit int
	bossLimit   int
	now         func() time.Time
}

// NewPostingService creates a new PostingService
func NewPostingService(reviewRepo ReviewStore, policyRepo PolicyStore, registry *collaborator.Registry,
	v *vault.Vault, postTimeout time.Duration, normalLimit, bossLimit int) PostingService {
	return &postingService{
		reviewRepo:  reviewRepo,
		policyRepo:  policyRepo,
		registry:    registry,
		vault:       v,
		postTimeout: postTimeout,
		normalLimit: normalLimit,
		bossLimit:   bossLimit,
		now:         time.Now,
	}
}

type postingGroup struct {
	platform     domain.Platform
	platformCode string
	reviews      []domain.Review
}

// PostDueReplies 일반/사장님확인 윈도우의 등록 후보를 선택해
// (플랫폼, 계정) 단위로 묶어 순차 등록한다. 그룹 하나의 실패는
// 해당 그룹 멤버만 failed로 전이시키고 다른 그룹은 계속 진행한다.
func (s *postingService) PostDueReplies(ctx context.Context) (*PostingSummary, error) {
	start := time.Now()
	defer func() { monitoring.ObserveRunDuration("post", time.Since(start)) }()

	now := s.now()
	normal, err := s.reviewRepo.FindPostable(domain.NormalPostingWindow(now), false, s.normalLimit)
	if err != nil {
		return nil, err
	}
	boss, err := s.reviewRepo.FindPostable(domain.BossPostingWindow(now), true, s.bossLimit)
	if err != nil {
		return nil, err
	}

	candidates := append(normal, boss...)
	groups := groupByAccount(candidates)

	log := logger.WithRun("post", uuid.NewString())
	summary := &PostingSummary{Candidates: len(candidates), Groups: len(groups)}

	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		posted, failed := s.postGroup(ctx, group, log)
		summary.Posted += posted
		summary.Failed += failed
	}

	log.Info().
		Int("candidates", summary.Candidates).
		Int("groups", summary.Groups).
		Int("posted", summary.Posted).
		Int("failed", summary.Failed).
		Msg("posting run finished")
	return summary, nil
}

// groupByAccount (플랫폼, 계정) 단위로 묶는다. 같은 계정의 답글을
// 한 로그인 세션에서 처리하기 위해서다. 순서는 입력 순서를 유지한다.
func groupByAccount(reviews []domain.Review) []postingGroup {
	type key struct {
		platform     domain.Platform
		platformCode string
	}
	index := map[key]int{}
	var groups []postingGroup

	for _, r := range reviews {
		k := key{r.Platform, r.PlatformCode}
		if i, ok := index[k]; ok {
			groups[i].reviews = append(groups[i].reviews, r)
			continue
		}
		index[k] = len(groups)
		groups = append(groups, postingGroup{
			platform:     r.Platform,
			platformCode: r.PlatformCode,
			reviews:      []domain.Review{r},
		})
	}
	return groups
}

func (s *postingService) postGroup(ctx context.Context, group postingGroup, log zerolog.Logger) (posted, failed int) {
	items := make([]collaborator.PostItem, 0, len(group.reviews))
	ids := make([]string, 0, len(group.reviews))
	for _, r := range group.reviews {
		text := r.ReplyText()
		if text == "" {
			// 후보 질의가 초안 존재를 보장하지만 경합으로 비었을 수 있다.
			// 조용히 흘리지 않고 실패로 기록해 다음 패스에서 재선택되게 한다.
			if err := s.reviewRepo.MarkFailed(r.ReviewID, common.ErrEmptyReply.Error()); err != nil {
				log.Error().Str("review_id", r.ReviewID).Err(err).Msg("failed to mark failed")
				continue
			}
			monitoring.PostingResult(string(group.platform), "failed")
			failed++
			continue
		}
		items = append(items, collaborator.PostItem{ReviewID: r.ReviewID, NativeID: r.NativeReviewID, Text: text})
		ids = append(ids, r.ReviewID)
	}
	if len(items) == 0 {
		return posted, failed
	}

	poster, creds, err := s.resolveAccount(group)
	if err != nil {
		return posted, failed + s.failGroup(ids, group.platform, err, log)
	}

	if err := s.reviewRepo.MarkProcessing(ids); err != nil {
		log.Error().Str("platform_code", group.platformCode).Err(err).Msg("failed to mark group processing")
		return posted, failed
	}

	ctx, cancel := context.WithTimeout(ctx, s.postTimeout)
	defer cancel()

	results, err := poster.PostBatch(ctx, creds, items)
	if err != nil {
		return posted, failed + s.failGroup(ids, group.platform, err, log)
	}

	textByID := map[string]string{}
	for _, item := range items {
		textByID[item.ReviewID] = item.Text
	}

	now := s.now()
	resolved := make(map[string]bool, len(results))
	for _, res := range results {
		resolved[res.ReviewID] = true
		if res.Success {
			if err := s.reviewRepo.MarkPosted(res.ReviewID, textByID[res.ReviewID], now); err != nil {
				log.Error().Str("review_id", res.ReviewID).Err(err).Msg("failed to mark posted")
				continue
			}
			monitoring.PostingResult(string(group.platform), "posted")
			posted++
		} else {
			if err := s.reviewRepo.MarkFailed(res.ReviewID, res.Error); err != nil {
				log.Error().Str("review_id", res.ReviewID).Err(err).Msg("failed to mark failed")
				continue
			}
			monitoring.PostingResult(string(group.platform), "failed")
			failed++
		}
	}

	// 에이전트가 결과를 누락한 항목은 processing에 갇힌다.
	// 실패로 기록해 다음 패스에서 재선택되게 한다.
	for _, id := range ids {
		if resolved[id] {
			continue
		}
		log.Warn().Str("review_id", id).Str("platform", string(group.platform)).
			Msg("no posting result returned for review")
		if err := s.reviewRepo.MarkFailed(id, "등록 결과가 반환되지 않았습니다"); err != nil {
			log.Error().Str("review_id", id).Err(err).Msg("failed to mark failed")
			continue
		}
		monitoring.PostingResult(string(group.platform), "failed")
		failed++
	}
	return posted, failed
}

// resolveAccount 그룹의 등록기와 복호화된 자격증명을 해석한다
func (s *postingService) resolveAccount(group postingGroup) (collaborator.ReplyPoster, collaborator.Credentials, error) {
	poster, err := s.registry.Poster(group.platform)
	if err != nil {
		return nil, collaborator.Credentials{}, err
	}

	policy, err := s.policyRepo.GetByPlatformAccount(group.platform, group.platformCode)
	if err != nil {
		return nil, collaborator.Credentials{}, err
	}

	pw, err := s.vault.Decrypt(policy.PlatformPW)
	if err != nil {
		return nil, collaborator.Credentials{}, common.ErrDecryptFailed
	}
	return poster, collaborator.Credentials{
		PlatformID:   policy.PlatformID,
		PlatformPW:   pw,
		PlatformCode: policy.PlatformCode,
	}, nil
}

// failGroup 그룹 단위 실패 처리: 멤버 전체를 failed로 전이한다
func (s *postingService) failGroup(ids []string, platform domain.Platform, cause error, log zerolog.Logger) int {
	log.Warn().Str("platform", string(platform)).Err(cause).Msg("posting group failed")
	failed := 0
	for _, id := range ids {
		if err := s.reviewRepo.MarkFailed(id, cause.Error()); err != nil {
			log.Error().Str("review_id", id).Err(err).Msg("failed to mark failed")
			continue
		}
		monitoring.PostingResult(string(platform), "failed")
		failed++
	}
	return failed
}
