// Slack incoming webhook 과 통신하는 클라이언트 정의
// Client 레이어에서만 사용하는 메시지 구조체 및 전송 메서드 정의
//
// 환경변수:
//   - SLACK_WEBHOOK_URL: incoming webhook 또는 chat.postMessage URL
//   - SLACK_TOKEN: 설정된 경우 Authorization: Bearer 헤더 추가
//
// 재시도하지 않음: 실패는 호출자(호스트)에게 그대로 반환하고 다음 알림으로 넘어감

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/atnf/askap-notifier/internal/config"
	"github.com/atnf/askap-notifier/internal/metrics"
)

// SlackMessage(메시지 내용) 구조체 정의
type SlackMessage struct {
	Username    string            `json:"username,omitempty"`
	Channel     string            `json:"channel,omitempty"`
	Text        string            `json:"text"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment(메시지 포맷) 구조체 정의
type SlackAttachment struct {
	Fallback string       `json:"fallback"`
	Color    string       `json:"color"`
	Fields   []SlackField `json:"fields,omitempty"`
}

// SlackField(메시지 포맷 필드) 구조체 정의
type SlackField struct {
	Title string `json:"title"` // 필드 제목 (예: "Origin")
	Value string `json:"value"` // 필드 값 (예: "kapacitor")
	Short bool   `json:"short"` // true면 좁은 너비 (한 줄에 2개)
}

// Payload - 전송할 메시지
// SLACK_PAYLOAD 템플릿을 쓰면 Raw, 아니면 Message 사용
type Payload struct {
	Message *SlackMessage
	Raw     json.RawMessage
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if p.Raw != nil {
		return p.Raw, nil
	}
	return json.Marshal(p.Message)
}

// SlackClient 구조체 정의
type SlackClient struct {
	webhookURL string
	token      string
	httpClient *http.Client
}

// SlackClient 객체 생성
func NewSlackClient(cfg config.SlackConfig) *SlackClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &SlackClient{
		webhookURL: cfg.WebhookURL,
		token:      cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send - payload 를 JSON 으로 POST
// 연결 실패만 에러로 반환하고, 2xx 가 아닌 응답은 로그만 남김
func (c *SlackClient) Send(ctx context.Context, payload Payload) error {
	// JSON 직렬화
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	// HTTP 요청 생성
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// 헤더 설정
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// 요청 전송
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("slack connection error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logrus.Warnf("Slack response: %d %s", resp.StatusCode, string(respBody))
		return nil
	}
	logrus.Debugf("Slack response: %d %s", resp.StatusCode, string(respBody))
	return nil
}
