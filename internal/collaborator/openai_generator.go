package collaborator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/replyon/replyon-backend/internal/domain"
)

// OpenAIReplyGenerator OpenAI 포맷(chat/completions) 엔드포인트 기반 답글 생성기
type OpenAIReplyGenerator struct {
	baseURL    string // e.g. "https://api.openai.com/v1"
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIReplyGenerator creates a new OpenAIReplyGenerator
func NewOpenAIReplyGenerator(baseURL, apiKey, model string, timeout time.Duration) *OpenAIReplyGenerator {
	return &OpenAIReplyGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Generate 리뷰+매장 정책으로 답글 생성
func (g *OpenAIReplyGenerator) Generate(ctx context.Context, review domain.Review, policy domain.StorePolicy) (*GenerationResult, error) {
	systemPrompt := buildSystemPrompt(policy)
	userMessage := buildUserMessage(review, policy)

	start := time.Now()
	rawText, tokenUsage, err := g.callProvider(ctx, systemPrompt, userMessage)
	if err != nil {
		return nil, fmt.Errorf("AI 호출 실패: %w", err)
	}
	latency := int(time.Since(start).Milliseconds())

	parsed, err := parseAndValidate(rawText)
	if err != nil {
		return nil, fmt.Errorf("응답 검증 실패: %w", err)
	}

	text := filterProhibitedWords(parsed.ReplyText, policy.ProhibitedWordList())
	text = adjustLength(text, policy.MaxReplyLength)
	text = addGreetings(text, policy.GreetingStart, policy.GreetingEnd)

	return &GenerationResult{
		Text:             text,
		QualityScore:     parsed.QualityScore,
		UrgencyScore:     parsed.UrgencyScore,
		BossReviewNeeded: parsed.BossReviewNeeded,
		PromptUsed:       userMessage,
		ModelVersion:     g.model,
		TokenUsage:       tokenUsage,
		LatencyMs:        latency,
	}, nil
}

// callProvider OpenAI 포맷 엔드포인트 호출
func (g *OpenAIReplyGenerator) callProvider(ctx context.Context, systemPrompt, userMessage string) (string, int, error) {
	reqBody := map[string]interface{}{
		"model":       g.model,
		"max_tokens":  1024,
		"temperature": 0.7,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userMessage},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", 0, err
	}

	url := g.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("HTTP 요청 실패: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("응답 읽기 실패: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("API 오류 (%d): %s", resp.StatusCode, truncateStr(string(respBody), 200))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", 0, fmt.Errorf("응답 JSON 파싱 실패: %w", err)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", 0, fmt.Errorf("AI 응답에서 텍스트를 찾을 수 없습니다")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), result.Usage.TotalTokens, nil
}

// aiRawResponse AI 응답 구조체
type aiRawResponse struct {
	ReplyText        string  `json:"reply_text"`
	QualityScore     float64 `json:"quality_score"`
	UrgencyScore     float64 `json:"urgency_score"`
	BossReviewNeeded bool    `json:"boss_review_needed"`
}

// extractJSON 코드블록에서 JSON 추출
func extractJSON(rawText string) string {
	if idx := strings.Index(rawText, "```"); idx >= 0 {
		start := strings.Index(rawText[idx:], "\n")
		if start >= 0 {
			end := strings.Index(rawText[idx+start+1:], "```")
			if end >= 0 {
				return strings.TrimSpace(rawText[idx+start+1 : idx+start+1+end])
			}
		}
	}
	return rawText
}

// parseAndValidate JSON 파싱 + 필드 검증
func parseAndValidate(rawText string) (*aiRawResponse, error) {
	jsonStr := extractJSON(rawText)

	var resp aiRawResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return nil, fmt.Errorf("JSON 파싱 실패: %w", err)
	}

	if strings.TrimSpace(resp.ReplyText) == "" {
		return nil, fmt.Errorf("reply_text가 비어 있습니다")
	}
	if resp.QualityScore < 0 || resp.QualityScore > 1 {
		return nil, fmt.Errorf("quality_score는 0-1 범위여야 합니다 (받은 값: %f)", resp.QualityScore)
	}
	if resp.UrgencyScore < 0 || resp.UrgencyScore > 1 {
		return nil, fmt.Errorf("urgency_score는 0-1 범위여야 합니다 (받은 값: %f)", resp.UrgencyScore)
	}

	return &resp, nil
}

// filterProhibitedWords 금지 단어를 대체어로 치환
func filterProhibitedWords(reply string, prohibited []string) string {
	if len(prohibited) == 0 {
		return reply
	}

	replacements := map[string]string{
		"매우":   "정말",
		"레스토랑": "저희 가게",
		"셰프":   "조리사",
		"유감":   "죄송",
		"방문":   "주문",
	}
	for _, word := range prohibited {
		if word == "" || !strings.Contains(reply, word) {
			continue
		}
		reply = strings.ReplaceAll(reply, word, replacements[word])
	}
	return reply
}

// adjustLength 최대 길이 초과 시 문장 경계에서 자르기
func adjustLength(reply string, maxLength int) string {
	if maxLength <= 0 {
		return reply
	}
	runes := []rune(reply)
	if len(runes) <= maxLength {
		return reply
	}

	var adjusted []rune
	for _, sentence := range strings.SplitAfter(reply, ". ") {
		sr := []rune(sentence)
		if len(adjusted)+len(sr) > maxLength {
			break
		}
		adjusted = append(adjusted, sr...)
	}
	if len(adjusted) == 0 {
		adjusted = runes[:maxLength]
	}
	return strings.TrimSpace(string(adjusted))
}

// addGreetings 시작/끝 인사말 보강
func addGreetings(reply, start, end string) string {
	if start != "" && !strings.HasPrefix(reply, start) {
		reply = start + " " + reply
	}
	if end != "" && !strings.HasSuffix(reply, end) {
		reply = reply + " " + end
	}
	return reply
}

// buildSystemPrompt 매장 정책 기반 시스템 프롬프트
func buildSystemPrompt(policy domain.StorePolicy) string {
	role := policy.ReplyRole
	if role == "" {
		role = "친근한 가게 사장님"
	}
	tone := policy.ReplyTone
	if tone == "" {
		tone = "전문성과 친근함이 조화된 어조"
	}

	return fmt.Sprintf(`당신은 %s입니다. 배달앱 고객 리뷰에 대한 답글을 작성합니다.

답글 작성 규칙:
1. %s로 작성합니다.
2. 고객의 이름을 언급하며 개인화된 답글을 작성합니다.
3. 구체적인 리뷰 내용에 대해 감사를 표현합니다.
4. 별점에 맞는 적절한 톤으로 응대합니다:
   - 5점: 진심 어린 감사와 기쁨 표현
   - 4점: 감사하며 더 나은 서비스를 위한 의지 표현
   - 3점: 감사와 함께 개선 노력 약속
   - 2점: 사과와 구체적인 개선 방안 제시
   - 1점: 진정성 있는 사과와 재방문 유도
5. 이모티콘은 사용하지 않습니다.

판정 규칙:
- quality_score: 답글 품질 자체 평가 (0~1)
- urgency_score: 리뷰가 요구하는 대응 긴급도 (0~1). 위생 문제, 환불 요구,
  법적 언급 등 사장님의 직접 대응이 필요한 리뷰일수록 높게.
- boss_review_needed: 자동 등록 전에 사장님이 직접 확인해야 하면 true.

출력 형식 — 반드시 아래 JSON만 반환하세요. 다른 텍스트는 포함하지 마세요.

{
  "reply_text": string,
  "quality_score": number,
  "urgency_score": number,
  "boss_review_needed": boolean
}`, role, tone)
}

// buildUserMessage 리뷰 정보를 프롬프트 문자열로 구성
func buildUserMessage(review domain.Review, policy domain.StorePolicy) string {
	var parts []string

	parts = append(parts, "## 리뷰 정보")
	name := review.ReviewName
	if name == "" {
		name = "고객"
	}
	parts = append(parts, fmt.Sprintf("- 고객명: %s", name))
	if review.Rating != nil {
		parts = append(parts, fmt.Sprintf("- 별점: %d점", *review.Rating))
	} else {
		parts = append(parts, "- 별점: 없음")
	}
	if review.OrderedMenu != "" {
		parts = append(parts, fmt.Sprintf("- 주문 메뉴: %s", review.OrderedMenu))
	}
	if review.DeliveryReview != "" {
		parts = append(parts, fmt.Sprintf("- 배달 평가: %s", review.DeliveryReview))
	}
	parts = append(parts, "")
	parts = append(parts, "## 리뷰 내용")
	parts = append(parts, review.Content)

	maxLen := policy.MaxReplyLength
	if maxLen <= 0 {
		maxLen = 450
	}
	parts = append(parts, "")
	parts = append(parts, fmt.Sprintf("답글은 %d자 이내로 작성해주세요.", maxLen))

	return strings.Join(parts, "\n")
}

// truncateStr truncates a string to maxLen bytes
func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
