package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/atnf/askap-notifier/internal/model"
)

// EnsureAlertSchema - alerts, alert_state_transitions 테이블 생성
func (db *Postgres) EnsureAlertSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS alerts (
			alert_id TEXT PRIMARY KEY,
			event TEXT NOT NULL DEFAULT '',
			resource TEXT NOT NULL DEFAULT '',
			environment TEXT NOT NULL DEFAULT '',
			origin TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			service JSONB NOT NULL DEFAULT '[]',
			tags JSONB NOT NULL DEFAULT '[]',
			attributes JSONB NOT NULL DEFAULT '{}',
			text TEXT NOT NULL DEFAULT '',
			value TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS alert_state_transitions (
			id BIGSERIAL PRIMARY KEY,
			alert_id TEXT NOT NULL,
			from_severity TEXT NOT NULL,
			to_severity TEXT NOT NULL,
			transitioned_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS alert_state_transitions_alert_idx ON alert_state_transitions(alert_id, transitioned_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to ensure alert schema: %w", err)
		}
	}
	return nil
}

// SaveAlert - 알림 스냅샷 저장, severity 가 바뀌었으면 상태 전환 기록
//
// 같은 알림이 동시에 들어와도 전환이 중복 기록되지 않도록 FOR UPDATE 로 잠금
// attributes 는 기존 값에 병합하되 flapping 은 저장된 값이 우선이며 alert 에 다시 반영
func (db *Postgres) SaveAlert(ctx context.Context, alert *model.Alert) error {
	service, err := json.Marshal(nonNil(alert.Service))
	if err != nil {
		return fmt.Errorf("failed to marshal service: %w", err)
	}
	tags, err := json.Marshal(nonNil(alert.Tags))
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	attrs, err := marshalAttributes(alert.Attributes)
	if err != nil {
		return err
	}

	transitionedAt := alert.LastReceiveTime
	if transitionedAt.IsZero() {
		transitionedAt = time.Now()
	}

	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		var prevSeverity string
		found := true
		err := tx.QueryRow(ctx, `SELECT severity FROM alerts WHERE alert_id = $1 FOR UPDATE`, alert.ID).Scan(&prevSeverity)
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
		} else if err != nil {
			return fmt.Errorf("failed to lock alert: %w", err)
		}

		query := `
			INSERT INTO alerts (
				alert_id, event, resource, environment, origin, severity, status,
				service, tags, attributes, text, value, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
			ON CONFLICT (alert_id) DO UPDATE SET
				event = EXCLUDED.event,
				resource = EXCLUDED.resource,
				environment = EXCLUDED.environment,
				origin = EXCLUDED.origin,
				severity = EXCLUDED.severity,
				status = EXCLUDED.status,
				service = EXCLUDED.service,
				tags = EXCLUDED.tags,
				attributes = alerts.attributes || (EXCLUDED.attributes - 'flapping'),
				text = EXCLUDED.text,
				value = EXCLUDED.value,
				updated_at = NOW()
			RETURNING attributes->>'flapping'
		`
		var storedFlapping *string
		if err := tx.QueryRow(ctx, query,
			alert.ID,
			alert.Event,
			alert.Resource,
			alert.Environment,
			alert.Origin,
			alert.Severity,
			alert.Status,
			service,
			tags,
			attrs,
			alert.Text,
			alert.Value,
		).Scan(&storedFlapping); err != nil {
			return fmt.Errorf("failed to upsert alert: %w", err)
		}
		if storedFlapping != nil {
			alert.EnsureAttributes()[model.AttrFlapping] = *storedFlapping
		}

		if !found || prevSeverity == alert.Severity {
			return nil
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO alert_state_transitions (alert_id, from_severity, to_severity, transitioned_at)
			VALUES ($1, $2, $3, $4)
		`, alert.ID, prevSeverity, alert.Severity, transitionedAt); err != nil {
			return fmt.Errorf("failed to record state transition: %w", err)
		}
		return nil
	})
}

// UpdateAttributes - attributes 에 주어진 키만 원자적으로 병합
// 다른 키를 동시에 쓰는 요청과 서로 덮어쓰지 않음
func (db *Postgres) UpdateAttributes(ctx context.Context, alertID string, attrs model.Attributes) error {
	raw, err := marshalAttributes(attrs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO alerts (alert_id, attributes, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (alert_id) DO UPDATE SET
			attributes = alerts.attributes || EXCLUDED.attributes,
			updated_at = NOW()
	`
	if _, err := db.Pool.Exec(ctx, query, alertID, raw); err != nil {
		return fmt.Errorf("failed to update attributes: %w", err)
	}
	return nil
}

// IsFlapping - window 안에 count 번 이상 상태가 바뀌었는지 확인
func (db *Postgres) IsFlapping(ctx context.Context, alertID string, window time.Duration, count int) (bool, error) {
	var transitions int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM alert_state_transitions
		WHERE alert_id = $1 AND transitioned_at >= $2
	`, alertID, time.Now().Add(-window)).Scan(&transitions)
	if err != nil {
		return false, fmt.Errorf("failed to count state transitions: %w", err)
	}
	return transitions >= count, nil
}

// GetAttributes - 저장된 attributes 조회
func (db *Postgres) GetAttributes(ctx context.Context, alertID string) (model.Attributes, error) {
	var raw []byte
	err := db.Pool.QueryRow(ctx, `SELECT attributes FROM alerts WHERE alert_id = $1`, alertID).Scan(&raw)
	if err != nil {
		return nil, err
	}
	attrs := model.Attributes{}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
	}
	return attrs, nil
}

func marshalAttributes(attrs model.Attributes) ([]byte, error) {
	if attrs == nil {
		attrs = model.Attributes{}
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}
	return raw, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
