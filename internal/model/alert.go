// 호스트(알림 서버)가 lifecycle hook 으로 전달하는 알림 구조체 정의
// handler, service, client, db 레이어에서 공통으로 사용하기 때문에 model 레이어에 별도로 정의

package model

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// Alert - 개별 알림
// 필드 이름은 Alerta 의 JSON 표현을 따름
type Alert struct {
	ID string `json:"id"`

	// Event: 알림 규칙/체크 이름 (예: "High CPU Usage")
	Event string `json:"event"`

	// Resource: 모니터링 대상 (예: "ingest01")
	Resource string `json:"resource"`

	Environment string `json:"environment"`

	// Origin: 알림을 만든 producer (예: "kapacitor", "Grafana")
	Origin string `json:"origin"`

	// Severity: 입력 시 producer 의 어휘, pre-receive 이후에는 canonical 어휘
	Severity string `json:"severity"`

	// Status: open, ack, assign, closed ...
	Status string `json:"status"`

	// Service: Slack 채널 라우팅에 사용 (Grafana 알림은 text 의 service= 로 덮어쓸 수 있음)
	Service []string `json:"service"`

	// Tags: "key=value" 문자열 목록, 순서가 Slack 필드 순서가 됨
	Tags []string `json:"tags"`

	Attributes Attributes `json:"attributes"`

	Text  string `json:"text"`
	Value string `json:"value"`

	// Repeat: 이미 활성 상태인 알림의 중복 수신 여부 (알림 전송하지 않음)
	Repeat bool `json:"repeat"`

	LastReceiveTime time.Time `json:"lastReceiveTime"`
}

// ShortID - Alerta 의 short id (id 앞 8자리)
func (a *Alert) ShortID() string {
	if len(a.ID) <= 8 {
		return a.ID
	}
	return a.ID[:8]
}

// TagDashboard - 대시보드를 직접 지정하는 예약 태그 키 (Slack 필드에서도 제외)
const TagDashboard = "dashboard"

// Tag - "key=value" 태그를 파싱한 결과
type Tag struct {
	Key   string
	Value string
}

// ParseTags - "=" 가 있는 태그만 순서대로 파싱
// 첫 번째 "=" 기준으로 나누기 때문에 value 에 "=" 가 들어가도 됨
func ParseTags(tags []string) []Tag {
	return lo.FilterMap(tags, func(raw string, _ int) (Tag, bool) {
		k, v, ok := strings.Cut(raw, "=")
		if !ok {
			return Tag{}, false
		}
		return Tag{Key: k, Value: v}, true
	})
}

// StatusChangeRequest - status-change hook 요청 본문
type StatusChangeRequest struct {
	Alert  Alert  `json:"alert"`
	Status string `json:"status"`
	Text   string `json:"text"`
}
