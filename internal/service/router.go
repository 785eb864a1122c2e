package service

import (
	"regexp"
	"strings"
)

// Grafana 는 service 필드를 설정할 수 없어서 알림 메시지에 "service = <name>" 을 적어 채널을 지정
// 앞의 .* 가 greedy 이므로 마지막 service= 가 매칭됨
// = 앞뒤 공백은 같은 줄 안에서만 허용
var serviceDirective = regexp.MustCompile(`(?s).*service[ \t]*=[ \t]*(\S+)`)

// ExtractService - text 에서 마지막 service=<name> 값을 추출
func ExtractService(text string) (string, bool) {
	m := serviceDirective.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	svc := strings.TrimRight(m[1], ",;")
	svc = strings.Trim(svc, `"'`)
	if svc == "" {
		return "", false
	}
	return svc, true
}
