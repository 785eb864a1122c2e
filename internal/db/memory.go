// DB 설정이 없을 때 사용하는 프로세스 내 알림 저장소
// 마지막 접근 후 retention 이 지나면 알림 기록이 만료됨 (재시작 시 flapping 이력 초기화)

package db

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v2"

	"github.com/atnf/askap-notifier/internal/model"
)

var ErrAlertNotFound = errors.New("alert not found")

type memoryRecord struct {
	severity    string
	attributes  model.Attributes
	transitions []time.Time
}

// Memory 구조체 정의
type Memory struct {
	mu    sync.Mutex
	cache *ttlcache.Cache
	now   func() time.Time
}

func NewMemory(retention time.Duration) *Memory {
	cache := ttlcache.NewCache()
	if retention > 0 {
		_ = cache.SetTTL(retention)
	}
	return &Memory{cache: cache, now: time.Now}
}

func (m *Memory) Close() error {
	return m.cache.Close()
}

func (m *Memory) load(alertID string) *memoryRecord {
	v, err := m.cache.Get(alertID)
	if err != nil {
		return nil
	}
	rec, _ := v.(*memoryRecord)
	return rec
}

// SaveAlert - severity 가 바뀌었으면 전환 시각 기록
// flapping 은 저장된 값이 우선이며 alert 에 다시 반영 (Postgres.SaveAlert 와 동일)
func (m *Memory) SaveAlert(ctx context.Context, alert *model.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.load(alert.ID)
	if rec == nil {
		rec = &memoryRecord{severity: alert.Severity, attributes: model.Attributes{}}
		for k, v := range alert.Attributes {
			rec.attributes[k] = v
		}
		return m.cache.Set(alert.ID, rec)
	}

	if rec.severity != alert.Severity {
		at := alert.LastReceiveTime
		if at.IsZero() {
			at = m.now()
		}
		rec.transitions = append(rec.transitions, at)
		rec.severity = alert.Severity
	}
	for k, v := range alert.Attributes {
		if k != model.AttrFlapping {
			rec.attributes[k] = v
		}
	}
	if stored, ok := rec.attributes[model.AttrFlapping]; ok {
		alert.EnsureAttributes()[model.AttrFlapping] = stored
	}
	return m.cache.Set(alert.ID, rec)
}

func (m *Memory) UpdateAttributes(ctx context.Context, alertID string, attrs model.Attributes) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.load(alertID)
	if rec == nil {
		rec = &memoryRecord{attributes: model.Attributes{}}
	}
	for k, v := range attrs {
		rec.attributes[k] = v
	}
	return m.cache.Set(alertID, rec)
}

// IsFlapping - window 밖의 전환 기록은 정리
func (m *Memory) IsFlapping(ctx context.Context, alertID string, window time.Duration, count int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.load(alertID)
	if rec == nil {
		return false, nil
	}

	since := m.now().Add(-window)
	kept := rec.transitions[:0]
	for _, at := range rec.transitions {
		if !at.Before(since) {
			kept = append(kept, at)
		}
	}
	rec.transitions = kept
	return len(kept) >= count, nil
}

func (m *Memory) GetAttributes(ctx context.Context, alertID string) (model.Attributes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.load(alertID)
	if rec == nil {
		return nil, ErrAlertNotFound
	}
	attrs := make(model.Attributes, len(rec.attributes))
	for k, v := range rec.attributes {
		attrs[k] = v
	}
	return attrs, nil
}
