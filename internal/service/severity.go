package service

// SeverityMapper - producer 별 severity 어휘를 canonical severity 로 변환
// 테이블에 없는 값은 그대로 통과 (렌더링에서 기본 색상/아이콘으로 처리)
type SeverityMapper struct {
	table map[string]string
}

func NewSeverityMapper(table map[string]string) *SeverityMapper {
	copied := make(map[string]string, len(table))
	for k, v := range table {
		copied[k] = v
	}
	return &SeverityMapper{table: copied}
}

func (m *SeverityMapper) Map(severity string) string {
	if mapped, ok := m.table[severity]; ok {
		return mapped
	}
	return severity
}
