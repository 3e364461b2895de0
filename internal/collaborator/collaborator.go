// Package collaborator 외부 협력자(크롤러, AI 생성기, 플랫폼 등록기) 인터페이스.
// 브라우저 자동화와 AI 와이어 포맷 자체는 이 저장소 밖의 구현이 담당한다.
package collaborator

import (
	"context"

	"github.com/replyon/replyon-backend/internal/domain"
)

// Credentials 복호화된 플랫폼 로그인 정보
type Credentials struct {
	PlatformID   string // 로그인 ID
	PlatformPW   string // 복호화된 비밀번호
	PlatformCode string // 플랫폼 네이티브 매장 ID
}

// RawReview 크롤러가 수집한 플랫폼 원본 리뷰.
// RelativeDate는 "오늘", "3일 전" 같은 플랫폼 표기 그대로이며
// 절대 날짜 변환은 수집 코디네이터가 수행한다.
type RawReview struct {
	NativeID       string
	ReviewName     string
	Rating         *int // 별점 없는 플랫폼은 nil
	Content        string
	RelativeDate   string
	OrderedMenu    string
	DeliveryReview string
	Images         []string
	HasReply       bool
}

// Crawler 플랫폼 리뷰 수집 협력자
type Crawler interface {
	Login(ctx context.Context, creds Credentials) (bool, error)
	FetchUnrepliedReviews(ctx context.Context, platformCode string, limit int) ([]RawReview, error)
}

// GenerationResult AI 답글 생성 결과
type GenerationResult struct {
	Text             string
	QualityScore     float64 // [0,1]
	UrgencyScore     float64 // [0,1]
	BossReviewNeeded bool
	PromptUsed       string
	ModelVersion     string
	TokenUsage       int
	LatencyMs        int
}

// ReplyGenerator AI 답글 생성 협력자
type ReplyGenerator interface {
	Generate(ctx context.Context, review domain.Review, policy domain.StorePolicy) (*GenerationResult, error)
}

// PostItem 등록할 답글 하나
type PostItem struct {
	ReviewID string // 전역 review_id
	NativeID string // 플랫폼 네이티브 리뷰 ID
	Text     string
}

// PostResult 답글 하나의 등록 결과
type PostResult struct {
	ReviewID string
	Success  bool
	Error    string
}

// ReplyPoster 플랫폼 답글 등록 협력자.
// 구현은 그룹 내 답글을 순차 등록하며 플랫폼 레이트리밋을 피하기 위해
// 건당 약 2초 간격을 둔다.
type ReplyPoster interface {
	PostBatch(ctx context.Context, creds Credentials, items []PostItem) ([]PostResult, error)
}
