package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Outcome - post-receive / status-change 처리 결과
type Outcome string

const (
	OutcomeSent       Outcome = "sent"       // Slack 전송 완료
	OutcomeRepeat     Outcome = "repeat"     // 중복 알림, 전송하지 않음
	OutcomeSuppressed Outcome = "suppressed" // flapping 중이라 전송하지 않음
	OutcomeDropped    Outcome = "dropped"    // payload 생성 실패
	OutcomeIgnored    Outcome = "ignored"    // 전송 대상이 아닌 상태 변경
)

// HookResponse - lifecycle hook 응답
type HookResponse struct {
	Status  string  `json:"status"`
	Outcome Outcome `json:"outcome,omitempty"`
	AlertID string  `json:"alertId,omitempty"`
}
