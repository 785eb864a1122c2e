// Package template provides Slack summary and payload template rendering.
//
// SLACK_SUMMARY_FMT / SLACK_PAYLOAD 에서 사용할 수 있는 변수:
//
//	{{ .alert.Event }}, {{ .alert.Resource }}, {{ .alert.Severity }}, {{ .alert.ID }} ...
//	{{ .status }}, {{ .color }}, {{ .channel }}, {{ .emoji }}
//	{{ .config.Slack.DashboardURL }} (token, password 는 제거된 설정)
//
// slim-sprig 함수 사용 가능 (예: {{ .status | upper }}, {{ join ", " .alert.Service }})
package template

import (
	"bytes"
	"fmt"
	gotemplate "text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"github.com/atnf/askap-notifier/internal/model"
)

// Vars - 템플릿 렌더링에 사용할 변수
type Vars struct {
	Alert   *model.Alert
	Status  string
	Config  any
	Color   string
	Channel string
	Emoji   string
}

func (v Vars) Map() map[string]any {
	return map[string]any{
		"alert":   v.Alert,
		"status":  v.Status,
		"config":  v.Config,
		"color":   v.Color,
		"channel": v.Channel,
		"emoji":   v.Emoji,
	}
}

// Template - 파싱된 템플릿
type Template struct {
	name string
	t    *gotemplate.Template
}

// Parse - 설정 로드 시점에 한 번 파싱
func Parse(name, text string) (*Template, error) {
	t, err := gotemplate.New(name).Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	return &Template{name: name, t: t}, nil
}

// Render - 변수를 치환한 결과 반환
func (t *Template) Render(vars Vars) (string, error) {
	var buf bytes.Buffer
	if err := t.t.Execute(&buf, vars.Map()); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", t.name, err)
	}
	return buf.String(), nil
}
