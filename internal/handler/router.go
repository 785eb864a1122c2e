package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter - 라우트 등록
func NewRouter(alerts *AlertHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger("/ping", "/metrics"))

	// 건강 체크 및 문서
	router.GET("/ping", Ping)
	router.GET("/", Root)
	router.GET("/openapi.json", OpenAPIDoc)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		hooks := v1.Group("/hooks")
		hooks.POST("/pre-receive", alerts.PreReceive)
		hooks.POST("/post-receive", alerts.PostReceive)
		hooks.POST("/status-change", alerts.StatusChange)

		v1.GET("/alerts/:id/attributes", alerts.GetAttributes)
	}

	return router
}
