// Flapping 판정 및 알림 억제 로직
//
// flapping 여부 계산(윈도우 내 상태 전환 횟수)은 저장소가 담당하고,
// 여기서는 그 결과로 상태 전이와 알림 여부만 결정합니다.
//
// 상태 전이:
//   - flapping 이고 severity 가 정상이 아님:
//     처음 감지 -> flapping=true, 알림 (flapping 시작 안내)
//     이미 flapping -> flapping=true, 알림 없음
//   - 그 외 (flapping 아님 또는 정상 severity 로 복구) -> flapping=false, 알림

package service

import (
	"context"
	"strings"
	"time"

	"github.com/atnf/askap-notifier/internal/config"
	"github.com/atnf/askap-notifier/internal/metrics"
	"github.com/atnf/askap-notifier/internal/model"
	"github.com/sirupsen/logrus"
)

// flapStore - flapping 판정에 필요한 저장소 인터페이스
type flapStore interface {
	UpdateAttributes(ctx context.Context, alertID string, attrs model.Attributes) error
	IsFlapping(ctx context.Context, alertID string, window time.Duration, count int) (bool, error)
}

// FlapDecision - 한 번의 post-receive 평가 결과
type FlapDecision struct {
	Flapping bool
	Notify   bool
}

// Suppress - flapping 중이고 이번 평가에서 알림 표시가 없으면 전송하지 않음
func (d FlapDecision) Suppress() bool {
	return d.Flapping && !d.Notify
}

// NextFlapState - 상태 전이 함수
func NextFlapState(flappingNow, recovered, wasFlapping bool) FlapDecision {
	if flappingNow && !recovered {
		return FlapDecision{Flapping: true, Notify: !wasFlapping}
	}
	return FlapDecision{Flapping: false, Notify: true}
}

// FlapDetector 구조체 정의
type FlapDetector struct {
	store flapStore
	cfg   config.FlappingConfig
}

func NewFlapDetector(store flapStore, cfg config.FlappingConfig) *FlapDetector {
	return &FlapDetector{store: store, cfg: cfg}
}

// Enabled - 기능이 꺼져 있거나 기준값이 0 이면 flapping 판정하지 않음
func (d *FlapDetector) Enabled() bool {
	return d.cfg.Enabled && d.cfg.Count > 0 && d.cfg.Window > 0
}

// Evaluate - flapping 상태를 계산하고 attributes 에 반영한 뒤 저장소에 저장
//
// 저장소 조회 실패 시 flapping 아님으로 처리 (정상 알림 흐름이 막히지 않도록)
// 저장 실패는 로그만 남기고 결정은 그대로 사용
func (d *FlapDetector) Evaluate(ctx context.Context, alert *model.Alert) FlapDecision {
	if !d.Enabled() {
		return FlapDecision{Notify: true}
	}

	log := logrus.WithFields(logrus.Fields{"alert_id": alert.ID, "event": alert.Event})

	flappingNow, err := d.store.IsFlapping(ctx, alert.ID, d.cfg.Window, d.cfg.Count)
	if err != nil {
		log.Warnf("Failed to query flapping state: %v", err)
		flappingNow = false
	}

	attrs := alert.EnsureAttributes()
	wasFlapping := attrs.Flapping()
	recovered := strings.EqualFold(alert.Severity, d.cfg.NormalSeverity)

	decision := NextFlapState(flappingNow, recovered, wasFlapping)
	attrs.SetFlapping(decision.Flapping)

	// 다음 평가가 최신 상태를 보도록 알림 여부를 확정하기 전에 저장
	if err := d.store.UpdateAttributes(ctx, alert.ID, model.Attributes{
		model.AttrFlapping: attrs[model.AttrFlapping],
	}); err != nil {
		log.Warnf("Failed to persist flapping attribute: %v", err)
	}

	switch {
	case decision.Flapping && !wasFlapping:
		metrics.FlapTransitionsTotal.WithLabelValues("flapping").Inc()
		log.Infof("Flapping detected (count=%d, window=%s)", d.cfg.Count, d.cfg.Window)
	case !decision.Flapping && wasFlapping:
		metrics.FlapTransitionsTotal.WithLabelValues("stable").Inc()
		log.Infof("Flapping cleared (severity=%s)", alert.Severity)
	case decision.Suppress():
		log.Debugf("Still flapping, notification suppressed")
	}

	return decision
}
