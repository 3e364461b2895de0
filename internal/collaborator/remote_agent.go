package collaborator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/replyon/replyon-backend/internal/domain"
)

// RemoteAgent 외부 브라우저 자동화 에이전트에 대한 HTTP 클라이언트.
// Crawler와 ReplyPoster를 모두 구현한다. 실제 로그인/크롤링/등록은
// 에이전트 프로세스가 수행하고 여기서는 와이어 포맷만 담당한다.
type RemoteAgent struct {
	baseURL    string
	token      string
	platform   domain.Platform
	httpClient *http.Client
}

// NewRemoteAgent creates a new RemoteAgent for one platform
func NewRemoteAgent(baseURL, token string, platform domain.Platform, timeout time.Duration) *RemoteAgent {
	return &RemoteAgent{
		baseURL:    baseURL,
		token:      token,
		platform:   platform,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type agentLoginRequest struct {
	PlatformID   string `json:"platform_id"`
	PlatformPW   string `json:"platform_pw"`
	PlatformCode string `json:"platform_code"`
}

type agentLoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Login 에이전트를 통한 플랫폼 로그인
func (a *RemoteAgent) Login(ctx context.Context, creds Credentials) (bool, error) {
	var resp agentLoginResponse
	err := a.post(ctx, fmt.Sprintf("/%s/login", a.platform), agentLoginRequest{
		PlatformID:   creds.PlatformID,
		PlatformPW:   creds.PlatformPW,
		PlatformCode: creds.PlatformCode,
	}, &resp)
	if err != nil {
		return false, err
	}
	if !resp.Success {
		return false, fmt.Errorf("agent login failed: %s", resp.Message)
	}
	return true, nil
}

type agentFetchRequest struct {
	PlatformCode string `json:"platform_code"`
	Limit        int    `json:"limit"`
}

type agentFetchResponse struct {
	Reviews []RawReview `json:"reviews"`
}

// FetchUnrepliedReviews 미답변 리뷰 목록 조회
func (a *RemoteAgent) FetchUnrepliedReviews(ctx context.Context, platformCode string, limit int) ([]RawReview, error) {
	var resp agentFetchResponse
	err := a.post(ctx, fmt.Sprintf("/%s/reviews/unreplied", a.platform), agentFetchRequest{
		PlatformCode: platformCode,
		Limit:        limit,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Reviews, nil
}

type agentPostRequest struct {
	PlatformID   string     `json:"platform_id"`
	PlatformPW   string     `json:"platform_pw"`
	PlatformCode string     `json:"platform_code"`
	Items        []PostItem `json:"items"`
}

type agentPostResponse struct {
	Results []PostResult `json:"results"`
}

// PostBatch 답글 일괄 등록. 건당 간격 조절은 에이전트 쪽 책임이다.
func (a *RemoteAgent) PostBatch(ctx context.Context, creds Credentials, items []PostItem) ([]PostResult, error) {
	var resp agentPostResponse
	err := a.post(ctx, fmt.Sprintf("/%s/replies", a.platform), agentPostRequest{
		PlatformID:   creds.PlatformID,
		PlatformPW:   creds.PlatformPW,
		PlatformCode: creds.PlatformCode,
		Items:        items,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (a *RemoteAgent) post(ctx context.Context, path string, body, dest interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("agent request encode failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent returned %d: %s", resp.StatusCode, truncateBody(data))
	}
	return json.Unmarshal(data, dest)
}

func truncateBody(data []byte) string {
	const maxLen = 200
	if len(data) > maxLen {
		data = data[:maxLen]
	}
	return string(data)
}
