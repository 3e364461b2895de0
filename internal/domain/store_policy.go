package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StorePolicy 매장+플랫폼 계정별 자동 답글 정책. maps to store_policies table
type StorePolicy struct {
	ID               int       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	StoreCode        string    `gorm:"column:store_code;uniqueIndex;size:64" json:"store_code"`
	StoreName        string    `gorm:"column:store_name;size:128" json:"store_name"`
	Platform         Platform  `gorm:"column:platform;size:16;index" json:"platform"`
	PlatformCode     string    `gorm:"column:platform_code;size:64" json:"platform_code"` // 플랫폼 네이티브 매장 ID
	PlatformID       string    `gorm:"column:platform_id;size:128" json:"-"`              // 로그인 ID
	PlatformPW       string    `gorm:"column:platform_pw;size:512" json:"-"`              // 암호화 저장
	OwnerUserCode    string    `gorm:"column:owner_user_code;size:64" json:"owner_user_code"`
	Rating1Reply     bool      `gorm:"column:rating_1_reply" json:"rating_1_reply"`
	Rating2Reply     bool      `gorm:"column:rating_2_reply" json:"rating_2_reply"`
	Rating3Reply     bool      `gorm:"column:rating_3_reply" json:"rating_3_reply"`
	Rating4Reply     bool      `gorm:"column:rating_4_reply" json:"rating_4_reply"`
	Rating5Reply     bool      `gorm:"column:rating_5_reply" json:"rating_5_reply"`
	GreetingStart    string    `gorm:"column:greeting_start;size:128" json:"greeting_start"`
	GreetingEnd      string    `gorm:"column:greeting_end;size:128" json:"greeting_end"`
	ReplyRole        string    `gorm:"column:reply_role;size:255" json:"reply_role"`
	ReplyTone        string    `gorm:"column:reply_tone;size:255" json:"reply_tone"`
	ProhibitedWords  string    `gorm:"column:prohibited_words;type:json" json:"prohibited_words"`
	MaxReplyLength   int       `gorm:"column:max_reply_length" json:"max_reply_length"`
	AutoReplyEnabled bool      `gorm:"column:auto_reply_enabled" json:"auto_reply_enabled"`
	AutoReplyHours   string    `gorm:"column:auto_reply_hours;size:16" json:"auto_reply_hours"` // "HH:MM-HH:MM", 빈 값이면 상시
	IsActive         bool      `gorm:"column:is_active;index" json:"is_active"`
	LastErrorMessage string    `gorm:"column:last_error_message;size:500" json:"last_error_message,omitempty"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName returns the table name
func (StorePolicy) TableName() string {
	return "store_policies"
}

// RatingReplyEnabled 해당 별점의 자동 답글 활성화 여부.
// 별점 없는 리뷰(rating NULL)는 토글 대상이 아니므로 항상 true.
func (p *StorePolicy) RatingReplyEnabled(rating *int) bool {
	if rating == nil {
		return true
	}
	switch *rating {
	case 1:
		return p.Rating1Reply
	case 2:
		return p.Rating2Reply
	case 3:
		return p.Rating3Reply
	case 4:
		return p.Rating4Reply
	case 5:
		return p.Rating5Reply
	}
	return true
}

// ProhibitedWordList JSON 컬럼을 문자열 목록으로 반환 (파싱 실패 시 빈 목록)
func (p *StorePolicy) ProhibitedWordList() []string {
	if p.ProhibitedWords == "" {
		return nil
	}
	var words []string
	if err := json.Unmarshal([]byte(p.ProhibitedWords), &words); err != nil {
		return nil
	}
	return words
}

// WithinOperatingHours 현재 시각이 자동 답글 운영 시간 내인지.
// 형식이 잘못된 값은 상시 운영으로 취급한다.
func (p *StorePolicy) WithinOperatingHours(now time.Time) bool {
	if p.AutoReplyHours == "" {
		return true
	}
	start, end, err := parseHourRange(p.AutoReplyHours)
	if err != nil {
		return true
	}
	cur := now.Hour()*60 + now.Minute()
	return start <= cur && cur <= end
}

func parseHourRange(s string) (startMin, endMin int, err error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid hour range: %q", s)
	}
	startMin, err = parseClock(parts[0])
	if err != nil {
		return 0, 0, err
	}
	endMin, err = parseClock(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return startMin, endMin, nil
}

func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock value: %q", s)
	}
	return h*60 + m, nil
}
