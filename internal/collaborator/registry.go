package collaborator

import (
	"fmt"

	"github.com/replyon/replyon-backend/internal/common"
	"github.com/replyon/replyon-backend/internal/domain"
)

// PlatformSet 플랫폼별 협력자 한 쌍
type PlatformSet struct {
	Crawler Crawler
	Poster  ReplyPoster
}

// Registry 닫힌 플랫폼 집합에 대한 협력자 디스패치.
// 그룹/매장 단위로 한 번 해석하며, 문자열 기반 동적 분기를 대체한다.
type Registry struct {
	baemin  PlatformSet
	coupang PlatformSet
	yogiyo  PlatformSet
	naver   PlatformSet
}

// NewRegistry 네 플랫폼의 협력자로 레지스트리 구성
func NewRegistry(baemin, coupang, yogiyo, naver PlatformSet) *Registry {
	return &Registry{baemin: baemin, coupang: coupang, yogiyo: yogiyo, naver: naver}
}

// ForPlatform 플랫폼의 협력자 쌍 조회
func (r *Registry) ForPlatform(p domain.Platform) (PlatformSet, error) {
	switch p {
	case domain.PlatformBaemin:
		return r.baemin, nil
	case domain.PlatformCoupang:
		return r.coupang, nil
	case domain.PlatformYogiyo:
		return r.yogiyo, nil
	case domain.PlatformNaver:
		return r.naver, nil
	}
	return PlatformSet{}, fmt.Errorf("%w: %s", common.ErrUnsupportedPlatform, p)
}

// Crawler 플랫폼의 크롤러 조회
func (r *Registry) Crawler(p domain.Platform) (Crawler, error) {
	set, err := r.ForPlatform(p)
	if err != nil {
		return nil, err
	}
	if set.Crawler == nil {
		return nil, fmt.Errorf("%w: no crawler for %s", common.ErrUnsupportedPlatform, p)
	}
	return set.Crawler, nil
}

// Poster 플랫폼의 답글 등록기 조회
func (r *Registry) Poster(p domain.Platform) (ReplyPoster, error) {
	set, err := r.ForPlatform(p)
	if err != nil {
		return nil, err
	}
	if set.Poster == nil {
		return nil, fmt.Errorf("%w: no poster for %s", common.ErrUnsupportedPlatform, p)
	}
	return set.Poster, nil
}
