package domain

import "time"

// GenerationHistoryEntry AI 답글 생성 시도별 감사 기록 (append-only).
// 생성 후 수정하지 않는다. 재생성·디버깅 용도이며 정책 집행에는 쓰이지 않는다.
type GenerationHistoryEntry struct {
	ID               int       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ReviewID         string    `gorm:"column:review_id;index;size:64" json:"review_id"`
	StoreCode        string    `gorm:"column:store_code;size:64" json:"store_code"`
	PromptUsed       string    `gorm:"column:prompt_used;type:text" json:"prompt_used,omitempty"`
	ModelVersion     string    `gorm:"column:model_version;size:64" json:"model_version"`
	GeneratedContent string    `gorm:"column:generated_content;type:text" json:"generated_content"`
	QualityScore     float64   `gorm:"column:quality_score" json:"quality_score"`
	UrgencyScore     float64   `gorm:"column:urgency_score" json:"urgency_score"`
	BossReviewNeeded bool      `gorm:"column:boss_review_needed" json:"boss_review_needed"`
	LatencyMs        int       `gorm:"column:latency_ms" json:"latency_ms"`
	TokenUsage       int       `gorm:"column:token_usage" json:"token_usage"`
	IsSelected       bool      `gorm:"column:is_selected" json:"is_selected"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName returns the table name
func (GenerationHistoryEntry) TableName() string {
	return "reply_generation_history"
}
