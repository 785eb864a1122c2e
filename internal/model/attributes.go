package model

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Attributes 예약 키
//   - AttrDashboard: 대시보드 링크 (DashboardLink)
//   - AttrFlapping: "true" / "false", flapping 상태를 알림 사이에 유지하는 유일한 기록
//   - AttrRuleURL: Grafana 가 보내는 원본 링크 키, pre-receive 에서 AttrDashboard 로 옮김
const (
	AttrDashboard = "Grafana Dashboard"
	AttrFlapping  = "flapping"
	AttrRuleURL   = "ruleUrl"
)

// Attributes - 알림의 자유 형식 메타데이터
// 예약 키 외의 값은 그대로 보존
type Attributes map[string]any

// DashboardLink - 대시보드 deep link
// attributes 에는 이 구조 그대로 저장하고, 표시할 때만 anchor/Slack 링크로 변환
type DashboardLink struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Anchor - 기존 플러그인과 같은 HTML anchor 표현
func (l DashboardLink) Anchor() string {
	return fmt.Sprintf(`<a target="_blank" rel="noopener noreferrer" href="%s">%s</a>`,
		html.EscapeString(l.URL), html.EscapeString(l.Label))
}

// SlackLink - Slack mrkdwn 링크 표현 (<url|label>)
func (l DashboardLink) SlackLink() string {
	if l.Label == "" {
		return "<" + l.URL + ">"
	}
	return "<" + l.URL + "|" + l.Label + ">"
}

// ParseAnchor - 이전 버전이 저장한 anchor 문자열에서 href 와 label 추출
func ParseAnchor(s string) (DashboardLink, bool) {
	var link DashboardLink
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return link, link.URL != ""
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" {
				continue
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "href" {
					link.URL = string(val)
				}
			}
		case html.TextToken:
			if text := strings.TrimSpace(string(z.Text())); text != "" {
				link.Label = text
			}
		}
	}
}

func (a Attributes) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Dashboard - 저장된 대시보드 링크 조회
//
// 허용하는 저장 형식:
//   - DashboardLink / JSON object {"url", "label"}
//   - anchor 문자열 (이전 버전 호환)
//   - URL 문자열 (Grafana ruleUrl), label 은 URL 과 동일
func (a Attributes) Dashboard() (DashboardLink, bool) {
	switch v := a[AttrDashboard].(type) {
	case DashboardLink:
		return v, v.URL != ""
	case *DashboardLink:
		if v == nil {
			return DashboardLink{}, false
		}
		return *v, v.URL != ""
	case map[string]any:
		link := DashboardLink{}
		link.URL, _ = v["url"].(string)
		link.Label, _ = v["label"].(string)
		return link, link.URL != ""
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "<") {
			return ParseAnchor(trimmed)
		}
		return DashboardLink{URL: trimmed, Label: trimmed}, trimmed != ""
	default:
		return DashboardLink{}, false
	}
}

func (a Attributes) SetDashboard(link DashboardLink) {
	a[AttrDashboard] = link
}

// Flapping - 문자열 "true" 와 JSON bool 모두 허용
func (a Attributes) Flapping() bool {
	switch v := a[AttrFlapping].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	default:
		return false
	}
}

func (a Attributes) SetFlapping(flapping bool) {
	a[AttrFlapping] = strconv.FormatBool(flapping)
}

// EnsureAttributes - 호스트가 attributes 없이 보낸 알림에 빈 map 할당
func (a *Alert) EnsureAttributes() Attributes {
	if a.Attributes == nil {
		a.Attributes = Attributes{}
	}
	return a.Attributes
}
