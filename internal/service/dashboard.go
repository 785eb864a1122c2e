// Kapacitor 알림에 Grafana 대시보드 링크를 붙이는 로직
//
// 링크 형식: <GRAFANA_URL>/d/<id>/<name>?var-<key>=<value>&...
//   - id: event 의 공백을 '-' 로 바꾼 값 (dashboard=<id>[/<name>] 태그로 덮어쓰기 가능)
//   - name: id 의 소문자
//   - 나머지 key=value 태그는 Grafana 템플릿 변수로 전달

package service

import (
	"net/url"
	"strings"

	"github.com/atnf/askap-notifier/internal/model"
)

// Dashboard - 태그에서 계산한 대시보드 식별자와 템플릿 변수
type Dashboard struct {
	ID     string
	Name   string
	Params []model.Tag
}

// ResolveDashboard - event 와 태그로 대시보드 계산
func ResolveDashboard(event string, tags []string) Dashboard {
	id := strings.ReplaceAll(event, " ", "-")
	d := Dashboard{ID: id, Name: strings.ToLower(id)}

	for _, tag := range model.ParseTags(tags) {
		if tag.Key != model.TagDashboard {
			d.Params = append(d.Params, tag)
			continue
		}
		if uid, name, ok := strings.Cut(tag.Value, "/"); ok {
			d.ID, d.Name = uid, name
		} else {
			d.ID = tag.Value
		}
	}
	return d
}

// Query - "?var-a=1&var-b=2" 형식, 변수가 없으면 빈 문자열
func (d Dashboard) Query() string {
	var b strings.Builder
	join := "?"
	for _, p := range d.Params {
		b.WriteString(join)
		b.WriteString("var-")
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteString("=")
		b.WriteString(url.QueryEscape(p.Value))
		join = "&"
	}
	return b.String()
}

// Link - label 은 대시보드 id
func (d Dashboard) Link(baseURL string) model.DashboardLink {
	u := strings.TrimRight(baseURL, "/") + "/d/" + url.PathEscape(d.ID) + "/" + url.PathEscape(d.Name) + d.Query()
	return model.DashboardLink{URL: u, Label: d.ID}
}

// DashboardResolver - origin 에 따라 대시보드 링크를 만들지 결정
type DashboardResolver struct {
	baseURL         string
	kapacitorOrigin string
}

func NewDashboardResolver(baseURL, kapacitorOrigin string) *DashboardResolver {
	return &DashboardResolver{baseURL: baseURL, kapacitorOrigin: kapacitorOrigin}
}

// Resolve - Kapacitor 알림만 링크 생성
func (r *DashboardResolver) Resolve(origin, event string, tags []string) (model.DashboardLink, bool) {
	if origin != r.kapacitorOrigin {
		return model.DashboardLink{}, false
	}
	return ResolveDashboard(event, tags).Link(r.baseURL), true
}
