package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// Platform 배달 플랫폼 식별자
type Platform string

const (
	PlatformBaemin  Platform = "baemin"
	PlatformCoupang Platform = "coupang"
	PlatformYogiyo  Platform = "yogiyo"
	PlatformNaver   Platform = "naver"
)

// Platforms 지원 플랫폼 전체 목록 (closed set)
var Platforms = []Platform{PlatformBaemin, PlatformCoupang, PlatformYogiyo, PlatformNaver}

// Valid 지원 플랫폼 여부
func (p Platform) Valid() bool {
	switch p {
	case PlatformBaemin, PlatformCoupang, PlatformYogiyo, PlatformNaver:
		return true
	}
	return false
}

// ReviewStatus 리뷰 답글 상태 (상태머신)
type ReviewStatus string

const (
	StatusPending     ReviewStatus = "pending"       // 수집됨, 답글 생성 전
	StatusGenerated   ReviewStatus = "generated"     // 초안 있음, 사람 확인 또는 지연 자동 검토 대기
	StatusReadyToPost ReviewStatus = "ready_to_post" // 지연 윈도우 경과 후 자동 등록 가능
	StatusProcessing  ReviewStatus = "processing"    // 등록 작업 진행 중
	StatusPosted      ReviewStatus = "posted"        // 등록 완료 (종결 상태)
	StatusFailed      ReviewStatus = "failed"        // 실패, 다음 패스에서 재선택됨
)

// CanTransition 상태 전이 허용 여부.
// 상태 enum이 세 작업 간의 유일한 결합 지점이므로 전이 규칙을 한 곳에서 강제한다.
// 등록 후보는 processing을 거치지 않고 바로 failed로 떨어질 수 있다
// (계정 해석 실패, 초안 소실 등 배치 시작 전 실패).
func (s ReviewStatus) CanTransition(to ReviewStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusGenerated || to == StatusReadyToPost
	case StatusGenerated, StatusReadyToPost, StatusFailed:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusPosted || to == StatusFailed
	case StatusPosted:
		return false
	}
	return false
}

// Terminal 종결 상태 여부
func (s ReviewStatus) Terminal() bool {
	return s == StatusPosted
}

// PostableStatuses 등록 대상 선택에 포함되는 상태 목록.
// failed는 별도 재시도 상태 없이 매 패스마다 다시 선택된다.
func PostableStatuses() []ReviewStatus {
	return []ReviewStatus{StatusReadyToPost, StatusGenerated, StatusFailed}
}

// Review represents one customer review collected from a delivery platform.
// 수집 시점에 review_id가 결정적으로 생성되어 재수집해도 중복 행이 생기지 않는다.
type Review struct {
	ID              int          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ReviewID        string       `gorm:"column:review_id;uniqueIndex;size:64" json:"review_id"`
	NativeReviewID  string       `gorm:"column:native_review_id;size:128" json:"native_review_id"`
	StoreCode       string       `gorm:"column:store_code;index;size:64" json:"store_code"`
	Platform        Platform     `gorm:"column:platform;size:16" json:"platform"`
	PlatformCode    string       `gorm:"column:platform_code;size:64" json:"platform_code"`
	ReviewName      string       `gorm:"column:review_name;size:64" json:"review_name"`
	Rating          *int         `gorm:"column:rating" json:"rating,omitempty"` // 별점 없는 플랫폼은 NULL
	Content         string       `gorm:"column:review_content;type:text" json:"review_content"`
	OrderedMenu     string       `gorm:"column:ordered_menu;size:255" json:"ordered_menu,omitempty"`
	DeliveryReview  string       `gorm:"column:delivery_review;size:255" json:"delivery_review,omitempty"`
	ReviewDate      time.Time    `gorm:"column:review_date;type:date;index" json:"review_date"`
	Status          ReviewStatus `gorm:"column:status;size:16;index" json:"status"`
	AIResponse      string       `gorm:"column:ai_response;type:text" json:"ai_response,omitempty"`
	FinalResponse   string       `gorm:"column:final_response;type:text" json:"final_response,omitempty"`
	BossReplyNeeded bool         `gorm:"column:boss_reply_needed" json:"boss_reply_needed"`
	UrgencyScore    float64      `gorm:"column:urgency_score" json:"urgency_score"`
	QualityScore    float64      `gorm:"column:quality_score" json:"quality_score"`
	RetryCount      int          `gorm:"column:retry_count" json:"retry_count"`
	ErrorMessage    string       `gorm:"column:error_message;size:500" json:"error_message,omitempty"`
	IsDeleted       bool         `gorm:"column:is_deleted" json:"is_deleted"`
	CreatedAt       time.Time    `gorm:"column:created_at" json:"created_at"`
	ResponseAt      *time.Time   `gorm:"column:response_at" json:"response_at,omitempty"`
}

// TableName returns the table name
func (Review) TableName() string {
	return "reviews"
}

// ReplyText 등록에 사용할 답글 본문 (사람이 수정한 최종본 우선)
func (r *Review) ReplyText() string {
	if r.FinalResponse != "" {
		return r.FinalResponse
	}
	return r.AIResponse
}

// ReviewIdentity 플랫폼 네이티브 리뷰 ID로부터 전역 고유 review_id 생성.
// 같은 리뷰를 다시 수집해도 동일한 키가 나온다.
func ReviewIdentity(platform Platform, storeCode, nativeID string) string {
	raw := fmt.Sprintf("%s_%s_%s", platform, storeCode, nativeID)
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// AutoPostEligible 자동 등록 적격 판정 (순수 함수).
// 별점 4점 이상 + 품질 0.7 이상 + 긴급도 0.5 미만 + 사장님 확인 불필요.
// 별점이 NULL이면 자동 등록 불가로 본다.
func AutoPostEligible(rating *int, qualityScore, urgencyScore float64, bossReviewNeeded bool) bool {
	if rating == nil {
		return false
	}
	return *rating >= 4 && qualityScore >= 0.7 && urgencyScore < 0.5 && !bossReviewNeeded
}

// PostingWindow 등록 지연 윈도우 [From, To] (날짜 기준 inclusive)
type PostingWindow struct {
	From time.Time
	To   time.Time
}

// Contains 리뷰 날짜가 윈도우 안에 있는지 (날짜 단위 비교)
func (w PostingWindow) Contains(reviewDate time.Time) bool {
	d := truncateDate(reviewDate)
	return !d.Before(truncateDate(w.From)) && !d.After(truncateDate(w.To))
}

// NormalPostingWindow 일반 답글 윈도우: 30일 전 ~ 1일 전.
// 하루의 유예는 운영자가 초안에 개입할 시간을 주고,
// 30일 하한은 플랫폼이 거부할 수 있는 오래된 리뷰 등록을 막는다.
func NormalPostingWindow(now time.Time) PostingWindow {
	return PostingWindow{
		From: truncateDate(now.AddDate(0, 0, -30)),
		To:   truncateDate(now.AddDate(0, 0, -1)),
	}
}

// BossPostingWindow 사장님 확인 필요 답글 윈도우: 30일 전 ~ 2일 전
func BossPostingWindow(now time.Time) PostingWindow {
	return PostingWindow{
		From: truncateDate(now.AddDate(0, 0, -30)),
		To:   truncateDate(now.AddDate(0, 0, -2)),
	}
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
