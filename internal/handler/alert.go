// 알림 서버(호스트)의 lifecycle hook 요청을 처리하는 핸들러
//
// 요청 흐름:
//  1. 호스트가 POST /api/v1/hooks/{pre-receive,post-receive,status-change} 로 알림 전송
//  2. JSON 본문을 model.Alert (status-change 는 model.StatusChangeRequest) 로 파싱
//  3. service 레이어(Plugin)로 전달하고 결과를 HookResponse 로 반환

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/atnf/askap-notifier/internal/db"
	"github.com/atnf/askap-notifier/internal/model"
	"github.com/atnf/askap-notifier/internal/service"
)

// AttributeReader - 저장된 attributes 조회 (db.Postgres, db.Memory)
type AttributeReader interface {
	GetAttributes(ctx context.Context, alertID string) (model.Attributes, error)
}

// Alert 핸들러 구조체 정의
type AlertHandler struct {
	plugin service.Plugin
	store  AttributeReader
}

// Alert 핸들러 객체 생성
func NewAlertHandler(plugin service.Plugin, store AttributeReader) *AlertHandler {
	return &AlertHandler{
		plugin: plugin,
		store:  store,
	}
}

// PreReceive godoc
// @Summary Enrich an alert before the host stores it
// @Tags hooks
// @Accept json
// @Produce json
// @Param request body model.Alert true "Alert"
// @Success 200 {object} model.Alert
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/hooks/pre-receive [post]
func (h *AlertHandler) PreReceive(c *gin.Context) {
	var alert model.Alert
	if err := c.ShouldBindJSON(&alert); err != nil {
		logrus.Warnf("Failed to parse pre-receive payload: %v", err)
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid payload"})
		return
	}

	enriched, err := h.plugin.PreReceive(c.Request.Context(), &alert)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, enriched)
}

// PostReceive godoc
// @Summary Evaluate flapping and notify Slack after the host stored an alert
// @Tags hooks
// @Accept json
// @Produce json
// @Param request body model.Alert true "Alert"
// @Success 200 {object} model.HookResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/hooks/post-receive [post]
func (h *AlertHandler) PostReceive(c *gin.Context) {
	var alert model.Alert
	if err := c.ShouldBindJSON(&alert); err != nil {
		logrus.Warnf("Failed to parse post-receive payload: %v", err)
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid payload"})
		return
	}

	outcome, err := h.plugin.PostReceive(c.Request.Context(), &alert)
	h.respond(c, alert.ID, outcome, err)
}

// StatusChange godoc
// @Summary Notify Slack when an alert is acknowledged or assigned
// @Tags hooks
// @Accept json
// @Produce json
// @Param request body model.StatusChangeRequest true "Status change"
// @Success 200 {object} model.HookResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/hooks/status-change [post]
func (h *AlertHandler) StatusChange(c *gin.Context) {
	var req model.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Warnf("Failed to parse status-change payload: %v", err)
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid payload"})
		return
	}

	outcome, err := h.plugin.StatusChange(c.Request.Context(), &req.Alert, req.Status, req.Text)
	h.respond(c, req.Alert.ID, outcome, err)
}

func (h *AlertHandler) respond(c *gin.Context, alertID string, outcome model.Outcome, err error) {
	if err != nil {
		// Slack 전송 실패: 호스트가 실패를 기록하도록 502 반환
		logrus.WithField("alert_id", alertID).Errorf("Notification failed: %v", err)
		c.JSON(http.StatusBadGateway, model.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.HookResponse{
		Status:  "ok",
		Outcome: outcome,
		AlertID: alertID,
	})
}

// GetAttributes godoc
// @Summary Get stored alert attributes (dashboard link, flapping state)
// @Tags alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/alerts/{id}/attributes [get]
func (h *AlertHandler) GetAttributes(c *gin.Context) {
	id := c.Param("id")

	attrs, err := h.store.GetAttributes(c.Request.Context(), id)
	if errors.Is(err, db.ErrAlertNotFound) || errors.Is(err, pgx.ErrNoRows) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "alert not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, attrs)
}
