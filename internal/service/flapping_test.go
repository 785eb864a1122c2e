package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atnf/askap-notifier/internal/config"
	"github.com/atnf/askap-notifier/internal/model"
)

// fakeStore - IsFlapping 결과를 고정하고 UpdateAttributes 호출을 기록
type fakeStore struct {
	flapping   bool
	flapErr    error
	updateErr  error
	saveErr    error
	saved      []model.Alert
	updates    []model.Attributes
	flapChecks int
}

func (f *fakeStore) SaveAlert(ctx context.Context, alert *model.Alert) error {
	f.saved = append(f.saved, *alert)
	return f.saveErr
}

func (f *fakeStore) UpdateAttributes(ctx context.Context, alertID string, attrs model.Attributes) error {
	f.updates = append(f.updates, attrs)
	return f.updateErr
}

func (f *fakeStore) IsFlapping(ctx context.Context, alertID string, window time.Duration, count int) (bool, error) {
	f.flapChecks++
	return f.flapping, f.flapErr
}

func flapConfig() config.FlappingConfig {
	return config.FlappingConfig{
		Enabled:        true,
		Window:         time.Hour,
		Count:          5,
		NormalSeverity: "OK",
	}
}

func TestNextFlapState(t *testing.T) {
	tests := []struct {
		name                                string
		flappingNow, recovered, wasFlapping bool
		want                                FlapDecision
	}{
		{"starts flapping", true, false, false, FlapDecision{Flapping: true, Notify: true}},
		{"still flapping", true, false, true, FlapDecision{Flapping: true, Notify: false}},
		{"recovered to normal", true, true, true, FlapDecision{Flapping: false, Notify: true}},
		{"window cleared", false, false, true, FlapDecision{Flapping: false, Notify: true}},
		{"never flapping", false, false, false, FlapDecision{Flapping: false, Notify: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NextFlapState(tt.flappingNow, tt.recovered, tt.wasFlapping))
		})
	}
}

func TestEvaluateTransitionIdempotent(t *testing.T) {
	store := &fakeStore{flapping: true}
	d := NewFlapDetector(store, flapConfig())
	alert := &model.Alert{ID: "a1", Severity: "MAJOR"}

	first := d.Evaluate(context.Background(), alert)
	require.True(t, first.Flapping)
	require.True(t, first.Notify)
	require.False(t, first.Suppress())
	require.Equal(t, "true", alert.Attributes[model.AttrFlapping])

	second := d.Evaluate(context.Background(), alert)
	require.True(t, second.Flapping)
	require.False(t, second.Notify)
	require.True(t, second.Suppress())
	require.Equal(t, "true", alert.Attributes[model.AttrFlapping])

	// 매 평가마다 flapping 키만 저장
	require.Len(t, store.updates, 2)
	require.Equal(t, model.Attributes{model.AttrFlapping: "true"}, store.updates[1])
}

func TestEvaluateRecoveryAlwaysNotifies(t *testing.T) {
	store := &fakeStore{flapping: false}
	d := NewFlapDetector(store, flapConfig())
	alert := &model.Alert{ID: "a1", Severity: "MAJOR", Attributes: model.Attributes{model.AttrFlapping: "true"}}

	decision := d.Evaluate(context.Background(), alert)
	require.False(t, decision.Flapping)
	require.True(t, decision.Notify)
	require.Equal(t, "false", alert.Attributes[model.AttrFlapping])
}

func TestEvaluateNormalSeverityClearsFlapping(t *testing.T) {
	store := &fakeStore{flapping: true}
	d := NewFlapDetector(store, flapConfig())
	alert := &model.Alert{ID: "a1", Severity: "ok", Attributes: model.Attributes{model.AttrFlapping: "true"}}

	decision := d.Evaluate(context.Background(), alert)
	require.False(t, decision.Flapping)
	require.True(t, decision.Notify)
}

func TestEvaluateStoreErrors(t *testing.T) {
	store := &fakeStore{flapErr: errors.New("db down"), updateErr: errors.New("db down")}
	d := NewFlapDetector(store, flapConfig())
	alert := &model.Alert{ID: "a1", Severity: "MAJOR", Attributes: model.Attributes{model.AttrFlapping: "true"}}

	// 조회 실패는 flapping 아님으로 처리하고 알림은 계속
	decision := d.Evaluate(context.Background(), alert)
	require.False(t, decision.Flapping)
	require.True(t, decision.Notify)
}

func TestEvaluateDisabled(t *testing.T) {
	for _, cfg := range []config.FlappingConfig{
		{Enabled: false, Window: time.Hour, Count: 5},
		{Enabled: true, Window: 0, Count: 5},
		{Enabled: true, Window: time.Hour, Count: 0},
	} {
		store := &fakeStore{flapping: true}
		d := NewFlapDetector(store, cfg)
		alert := &model.Alert{ID: "a1", Severity: "MAJOR"}

		decision := d.Evaluate(context.Background(), alert)
		require.Equal(t, FlapDecision{Notify: true}, decision)
		require.Zero(t, store.flapChecks)
		require.Empty(t, store.updates)
	}
}
