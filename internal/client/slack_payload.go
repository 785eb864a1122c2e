// Slack Alert 메시지 생성 로직
//
// 메시지 구성:
//   - text: "<icon> *[<Status>] <severity>* - <대시보드/#/alert/<id>|<event> on <resource>>"
//   - attachment: severity 색상 + 필드 (Grafana, Origin, Subsystem, Value, Text, 태그, Flapping)
//   - channel: 서비스별 채널 또는 environment 별 채널
//
// SLACK_SUMMARY_FMT / SLACK_PAYLOAD 템플릿이 설정되면 기본 형식 대신 사용

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hako/durafmt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/atnf/askap-notifier/internal/config"
	"github.com/atnf/askap-notifier/internal/model"
	tmpl "github.com/atnf/askap-notifier/internal/template"
)

const (
	defaultColor = "#00CC00" // green
	defaultIcon  = ":question:"
)

var channelReplacer = strings.NewReplacer(".", "_", " ", "_")

// durafmt 단위 이름 → 축약형
var shortUnits = map[string]string{
	"year": "y", "years": "y",
	"week": "w", "weeks": "w",
	"day": "d", "days": "d",
	"hour": "h", "hours": "h",
	"minute": "m", "minutes": "m",
	"second": "s", "seconds": "s",
	"millisecond": "ms", "milliseconds": "ms",
	"microsecond": "µs", "microseconds": "µs",
}

// SlackRenderer 구조체 정의
type SlackRenderer struct {
	cfg      config.SlackConfig
	flapping config.FlappingConfig
	colors   map[string]string
	icons    map[string]string
	vars     any // 템플릿의 config 변수
	summary  *tmpl.Template
	payload  *tmpl.Template
}

// SlackRenderer 객체 생성
// 템플릿 파싱 실패는 설정 오류로 보고 시작 시점에 반환
func NewSlackRenderer(cfg config.Config) (*SlackRenderer, error) {
	r := &SlackRenderer{
		cfg:      cfg.Slack,
		flapping: cfg.Flapping,
		colors:   make(map[string]string, len(cfg.Slack.SeverityColors)),
		icons:    make(map[string]string, len(cfg.Slack.Icons)),
		vars:     cfg.Redacted(),
	}
	// severity 대소문자 구분 없이 조회 (canonical 은 대문자, 색상 테이블은 소문자)
	for k, v := range cfg.Slack.SeverityColors {
		r.colors[strings.ToLower(k)] = v
	}
	for k, v := range cfg.Slack.Icons {
		r.icons[strings.ToUpper(k)] = v
	}

	var err error
	if cfg.Slack.SummaryFormat != "" {
		if r.summary, err = tmpl.Parse("summary", cfg.Slack.SummaryFormat); err != nil {
			return nil, err
		}
	}
	if cfg.Slack.PayloadTemplate != "" {
		if r.payload, err = tmpl.Parse("payload", cfg.Slack.PayloadTemplate); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Color - severity 에 맞는 attachment 색상, 없으면 초록
func (r *SlackRenderer) Color(severity string) string {
	if color, ok := r.colors[strings.ToLower(severity)]; ok {
		return color
	}
	return defaultColor
}

// Icon - severity 아이콘, flapping 중이면 flapping 아이콘
func (r *SlackRenderer) Icon(alert *model.Alert) string {
	if alert.Attributes.Flapping() && r.cfg.FlappingIcon != "" {
		return r.cfg.FlappingIcon
	}
	if icon, ok := r.icons[strings.ToUpper(alert.Severity)]; ok {
		return icon
	}
	return defaultIcon
}

// Channel - 서비스별 채널 또는 environment 매핑, 없으면 기본 채널
func (r *SlackRenderer) Channel(alert *model.Alert) string {
	if r.cfg.ServiceChannels && len(alert.Service) > 0 {
		return "#" + channelReplacer.Replace(strings.ToLower(alert.Service[0]))
	}
	if channel, ok := r.cfg.ChannelEnvMap[alert.Environment]; ok {
		return channel
	}
	return r.cfg.Channel
}

// Render - 알림을 Slack payload 로 변환
// status, text 는 status-change 에서만 전달 (빈 값이면 알림의 값 사용)
func (r *SlackRenderer) Render(alert *model.Alert, status, text string) (Payload, error) {
	if status == "" {
		status = alert.Status
	}
	color := r.Color(alert.Severity)
	channel := r.Channel(alert)
	vars := tmpl.Vars{
		Alert:   alert,
		Status:  status,
		Config:  r.vars,
		Color:   color,
		Channel: channel,
		Emoji:   r.cfg.IconEmoji,
	}

	if r.payload != nil {
		rendered, err := r.payload.Render(vars)
		if err != nil {
			return Payload{}, err
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, escapeStringControls(rendered)); err != nil {
			return Payload{}, fmt.Errorf("rendered payload is not valid JSON: %w", err)
		}
		return Payload{Raw: buf.Bytes()}, nil
	}

	summary, err := r.Summary(alert, status, vars)
	if err != nil {
		return Payload{}, err
	}

	msg := &SlackMessage{
		Username:  r.cfg.Username,
		Channel:   channel,
		Text:      summary,
		IconEmoji: r.cfg.IconEmoji,
	}
	if r.cfg.Attachments {
		msg.Attachments = []SlackAttachment{{
			Fallback: summary,
			Color:    color,
			Fields:   r.Fields(alert, text),
		}}
	}
	return Payload{Message: msg}, nil
}

// Summary - 메시지 첫 줄
func (r *SlackRenderer) Summary(alert *model.Alert, status string, vars tmpl.Vars) (string, error) {
	if r.summary != nil {
		return r.summary.Render(vars)
	}

	suffix := ""
	if alert.Attributes.Flapping() {
		suffix = " (flapping)"
	}
	return fmt.Sprintf("%s *[%s] %s* - <%s/#/alert/%s|%s on %s>%s",
		r.Icon(alert),
		cases.Title(language.Und).String(status),
		alert.Severity,
		r.cfg.DashboardURL,
		alert.ID,
		alert.Event,
		alert.Resource,
		suffix,
	), nil
}

// Fields - attachment 필드 (순서 고정)
func (r *SlackRenderer) Fields(alert *model.Alert, text string) []SlackField {
	if text == "" {
		text = alert.Text
	}

	var fields []SlackField
	if link, ok := alert.Attributes.Dashboard(); ok {
		fields = append(fields, SlackField{Title: "Grafana", Value: link.SlackLink(), Short: true})
	}

	fields = append(fields,
		SlackField{Title: "Origin", Value: alert.Origin, Short: true},
		SlackField{Title: "Subsystem", Value: strings.Join(alert.Service, ", "), Short: true},
		SlackField{Title: "Value", Value: alert.Value, Short: true},
		SlackField{Title: "Text", Value: text, Short: true},
	)

	for _, tag := range model.ParseTags(alert.Tags) {
		if tag.Key == model.TagDashboard {
			continue
		}
		fields = append(fields, SlackField{Title: tag.Key, Value: tag.Value, Short: true})
	}

	if alert.Attributes.Flapping() {
		fields = append(fields, SlackField{
			Title: "Flapping",
			Value: fmt.Sprintf("Changed state at least %d times in %s, further notifications are suppressed until it stabilises",
				r.flapping.Count, shortDuration(r.flapping.Window)),
			Short: false,
		})
	}
	return fields
}

// shortDuration - "1 hour 5 minutes 3 seconds" 를 "1h 5m 3s" 로 표시
func shortDuration(d time.Duration) string {
	parts := strings.Fields(durafmt.Parse(d).String())
	out := make([]string, 0, len(parts)/2)
	for i := 0; i+1 < len(parts); i += 2 {
		unit, ok := shortUnits[parts[i+1]]
		if !ok {
			unit = " " + parts[i+1]
		}
		out = append(out, parts[i]+unit)
	}
	return strings.Join(out, " ")
}

// escapeStringControls - JSON 문자열 리터럴 안의 줄바꿈/탭만 escape
// 템플릿 자체의 줄바꿈(문자열 밖)은 그대로 둔다
func escapeStringControls(s string) []byte {
	out := make([]byte, 0, len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			out = append(out, c)
			continue
		}
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inString = false
		case c == '\n':
			out = append(out, '\\', 'n')
			continue
		case c == '\r':
			out = append(out, '\\', 'r')
			continue
		case c == '\t':
			out = append(out, '\\', 't')
			continue
		}
		out = append(out, c)
	}
	return out
}
