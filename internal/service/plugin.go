// 알림 서버(호스트)의 lifecycle hook 처리 로직
//
// 처리 흐름:
//  1. pre-receive: severity 매핑 -> 대시보드 링크 -> (Grafana) service 라우팅 -> 보강된 알림 반환
//  2. 호스트가 알림 저장
//  3. post-receive: 중복(repeat) 확인 -> 저장소 스냅샷 -> flapping 판정 -> Slack payload 생성 -> 전송
//  4. status-change: SLACK_SEND_ON_ACK 이고 ack/assign 인 경우에만 전송

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/atnf/askap-notifier/internal/client"
	"github.com/atnf/askap-notifier/internal/config"
	"github.com/atnf/askap-notifier/internal/metrics"
	"github.com/atnf/askap-notifier/internal/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	HookPreReceive   = "pre-receive"
	HookPostReceive  = "post-receive"
	HookStatusChange = "status-change"
)

// Plugin - 호스트가 호출하는 lifecycle hook
type Plugin interface {
	PreReceive(ctx context.Context, alert *model.Alert) (*model.Alert, error)
	PostReceive(ctx context.Context, alert *model.Alert) (model.Outcome, error)
	StatusChange(ctx context.Context, alert *model.Alert, status, text string) (model.Outcome, error)
}

// AlertStore - 알림 저장소 인터페이스 (db.Postgres, db.Memory)
type AlertStore interface {
	SaveAlert(ctx context.Context, alert *model.Alert) error
	UpdateAttributes(ctx context.Context, alertID string, attrs model.Attributes) error
	IsFlapping(ctx context.Context, alertID string, window time.Duration, count int) (bool, error)
}

type payloadRenderer interface {
	Render(alert *model.Alert, status, text string) (client.Payload, error)
}

type dispatcher interface {
	Send(ctx context.Context, payload client.Payload) error
}

// 전송 대상 status-change
var notifyStatuses = map[string]bool{"ack": true, "assign": true}

// Notifier 구조체 정의
type Notifier struct {
	severities    *SeverityMapper
	dashboards    *DashboardResolver
	grafanaOrigin string
	flapping      *FlapDetector
	store         AlertStore
	renderer      payloadRenderer
	dispatcher    dispatcher
	sendOnAck     bool
}

var _ Plugin = (*Notifier)(nil)

// Notifier 객체 생성
func NewNotifier(cfg config.Config, store AlertStore, renderer payloadRenderer, dispatcher dispatcher) *Notifier {
	return &Notifier{
		severities:    NewSeverityMapper(cfg.Alert.SeverityMap),
		dashboards:    NewDashboardResolver(cfg.Grafana.URL, cfg.Alert.KapacitorOrigin),
		grafanaOrigin: cfg.Alert.GrafanaOrigin,
		flapping:      NewFlapDetector(store, cfg.Flapping),
		store:         store,
		renderer:      renderer,
		dispatcher:    dispatcher,
		sendOnAck:     cfg.Slack.SendOnAck,
	}
}

// PreReceive - 저장 전에 알림 보강
func (n *Notifier) PreReceive(ctx context.Context, alert *model.Alert) (*model.Alert, error) {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	attrs := alert.EnsureAttributes()

	severity := n.severities.Map(alert.Severity)
	if severity != alert.Severity {
		logrus.WithField("alert_id", alert.ID).Debugf("Mapped severity %s -> %s", alert.Severity, severity)
		alert.Severity = severity
	}

	if link, ok := n.dashboards.Resolve(alert.Origin, alert.Event, alert.Tags); ok {
		attrs.SetDashboard(link)
	}

	if alert.Origin == n.grafanaOrigin {
		// Grafana 는 이미 deep link 를 주므로 그대로 사용
		if ruleURL, ok := attrs.String(model.AttrRuleURL); ok {
			attrs[model.AttrDashboard] = ruleURL
			delete(attrs, model.AttrRuleURL)
		}
		if svc, ok := ExtractService(alert.Text); ok {
			alert.Service = []string{svc}
		}
	}

	metrics.NotificationsTotal.WithLabelValues(HookPreReceive, "enriched").Inc()
	return alert, nil
}

// PostReceive - 저장 후 flapping 판정 및 Slack 전송
func (n *Notifier) PostReceive(ctx context.Context, alert *model.Alert) (model.Outcome, error) {
	log := logrus.WithFields(logrus.Fields{"alert_id": alert.ID, "event": alert.Event, "origin": alert.Origin})

	if alert.Repeat {
		return n.record(HookPostReceive, model.OutcomeRepeat), nil
	}

	// flapping 계산용 상태 이력 저장 (실패해도 알림 흐름은 계속)
	if err := n.store.SaveAlert(ctx, alert); err != nil {
		log.Warnf("Failed to save alert snapshot: %v", err)
	}

	decision := n.flapping.Evaluate(ctx, alert)
	if decision.Suppress() {
		log.Infof("Skipping Slack notification for flapping alert")
		return n.record(HookPostReceive, model.OutcomeSuppressed), nil
	}

	return n.notify(ctx, HookPostReceive, alert, "", "")
}

// StatusChange - ack/assign 상태 변경 알림
func (n *Notifier) StatusChange(ctx context.Context, alert *model.Alert, status, text string) (model.Outcome, error) {
	if !n.sendOnAck || !notifyStatuses[status] {
		return n.record(HookStatusChange, model.OutcomeIgnored), nil
	}
	return n.notify(ctx, HookStatusChange, alert, status, text)
}

func (n *Notifier) notify(ctx context.Context, hook string, alert *model.Alert, status, text string) (model.Outcome, error) {
	log := logrus.WithFields(logrus.Fields{"alert_id": alert.ID, "hook": hook})

	payload, err := n.renderer.Render(alert, status, text)
	if err != nil {
		// payload 를 만들 수 없으면 이번 알림은 버림 (알림 저장에는 영향 없음)
		log.Errorf("Failed to format payload: %v", err)
		return n.record(hook, model.OutcomeDropped), nil
	}

	if err := n.dispatcher.Send(ctx, payload); err != nil {
		metrics.NotificationsTotal.WithLabelValues(hook, "failed").Inc()
		return "", fmt.Errorf("failed to send alert %s to slack: %w", alert.ID, err)
	}

	log.Infof("Sent alert to Slack (severity=%s, status=%s, flapping=%v)",
		alert.Severity, alert.Status, alert.Attributes.Flapping())
	return n.record(hook, model.OutcomeSent), nil
}

func (n *Notifier) record(hook string, outcome model.Outcome) model.Outcome {
	metrics.NotificationsTotal.WithLabelValues(hook, string(outcome)).Inc()
	return outcome
}
