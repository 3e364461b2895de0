package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewsCollectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_collected_total",
			Help: "Total number of newly collected reviews",
		},
		[]string{"platform"},
	)

	reviewsDuplicateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_duplicate_total",
			Help: "Total number of re-collected reviews dropped by dedup",
		},
		[]string{"platform"},
	)

	replyGenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_generation_total",
			Help: "Total number of AI reply generation attempts",
		},
		[]string{"result"}, // success | failed | skipped
	)

	replyPostingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_posting_total",
			Help: "Total number of reply posting attempts",
		},
		[]string{"platform", "result"}, // posted | failed
	)

	automationRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "automation_run_duration_seconds",
			Help:    "Duration of one automation job run",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"job"}, // collect | generate | post
	)
)

// ReviewCollected 신규 수집 카운트
func ReviewCollected(platform string) {
	reviewsCollectedTotal.WithLabelValues(platform).Inc()
}

// ReviewDuplicate 중복 수집 카운트
func ReviewDuplicate(platform string) {
	reviewsDuplicateTotal.WithLabelValues(platform).Inc()
}

// GenerationResult 생성 시도 결과 카운트
func GenerationResult(result string) {
	replyGenerationTotal.WithLabelValues(result).Inc()
}

// PostingResult 등록 시도 결과 카운트
func PostingResult(platform, result string) {
	replyPostingTotal.WithLabelValues(platform, result).Inc()
}

// ObserveRunDuration 작업 런 소요시간 기록
func ObserveRunDuration(job string, d time.Duration) {
	automationRunDuration.WithLabelValues(job).Observe(d.Seconds())
}
