package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeverityMapper(t *testing.T) {
	table := map[string]string{
		"critical":      "MAJOR",
		"warning":       "MINOR",
		"indeterminate": "INVALID",
		"ok":            "OK",
		"unknown":       "INVALID",
		"major":         "MAJOR",
	}
	m := NewSeverityMapper(table)

	require.Equal(t, "MAJOR", m.Map("critical"))
	require.Equal(t, "MINOR", m.Map("warning"))
	require.Equal(t, "OK", m.Map("ok"))

	// 테이블에 없는 값은 그대로
	for _, s := range []string{"", "CRITICAL", "debug", "informational", "MAJOR"} {
		require.Equal(t, s, m.Map(s))
	}

	// 생성 후 원본 테이블을 바꿔도 영향 없음
	table["debug"] = "OK"
	require.Equal(t, "debug", m.Map("debug"))
}
