package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	daysAgoPattern   = regexp.MustCompile(`^(\d+)일\s*전$`)
	weeksAgoPattern  = regexp.MustCompile(`^(\d+)주일?\s*전$`)
	monthsAgoPattern = regexp.MustCompile(`^(\d+)개월\s*전$`)
)

// ResolveReviewDate 플랫폼의 상대 날짜 표기를 절대 날짜로 변환한다.
// "오늘", "어제", "그제", "N일 전", "N주 전", "N개월 전"을 지원하고
// ISO 형식(2006-01-02, 2006.01.02)은 그대로 파싱한다.
// 해석할 수 없는 값은 오늘 날짜로 둔다 (수집 누락보다 보수적 기록이 낫다).
func ResolveReviewDate(raw string, now time.Time) time.Time {
	today := truncateToDate(now)
	s := strings.TrimSpace(raw)
	if s == "" {
		return today
	}

	switch s {
	case "오늘", "방금", "방금 전":
		return today
	case "어제":
		return today.AddDate(0, 0, -1)
	case "그제", "그저께":
		return today.AddDate(0, 0, -2)
	}

	if m := daysAgoPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return today.AddDate(0, 0, -n)
	}
	if m := weeksAgoPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return today.AddDate(0, 0, -7*n)
	}
	if m := monthsAgoPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return today.AddDate(0, -n, 0)
	}

	for _, layout := range []string{"2006-01-02", "2006.01.02", "2006.1.2"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t
		}
	}

	return today
}

const maxReviewerNameLen = 20

// CleanReviewerName 플랫폼이 작성자명에 붙이는 꼬리표를 정리한다.
// 크롤러가 날짜/메뉴 줄까지 이름으로 긁어온 경우 첫 줄만 취하고 길이를 제한한다.
func CleanReviewerName(raw string) string {
	name := strings.TrimSpace(raw)
	if i := strings.IndexAny(name, "\n\t"); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	name = strings.TrimSpace(strings.TrimSuffix(name, "님"))
	if name == "" {
		return "고객"
	}
	if runes := []rune(name); len(runes) > maxReviewerNameLen {
		name = string(runes[:maxReviewerNameLen])
	}
	return name
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
