package handler

import (
	"net/http"
	"strconv"

	"giftshop/internal/middleware"
	"giftshop/internal/model"
	"giftshop/internal/service"
	"giftshop/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReallocationHandler struct {
	reallocationService service.ReallocationService
}

func NewReallocationHandler(reallocationService service.ReallocationService) *ReallocationHandler {
	return &ReallocationHandler{reallocationService: reallocationService}
}

func (h *ReallocationHandler) RegisterRoutes(router *gin.RouterGroup) {
	reallocation := router.Group("/api/reallocation")
	reallocation.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager))
	{
		reallocation.GET("/metrics", h.GetMetrics)
		reallocation.GET("/recommendations", h.GetRecommendations)
	}
}

// GetMetrics returns performance metrics for every assigned product
// @Summary      Performance metrics
// @Tags         reallocation
// @Produce      json
// @Security     BearerAuth
// @Param        window_days  query     int  false  "Analysis window in days (default 90)"
// @Success      200          {object}  response.Response{data=[]model.PerformanceMetric}
// @Failure      500          {object}  response.Response
// @Router       /api/reallocation/metrics [get]
func (h *ReallocationHandler) GetMetrics(c *gin.Context) {
	windowDays, _ := strconv.Atoi(c.DefaultQuery("window_days", "0"))

	metrics, err := h.reallocationService.AnalyzePerformance(c.Request.Context(), windowDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, metrics))
}

// GetRecommendations returns the ranked reallocation candidate report
// @Summary      Reallocation recommendations
// @Description  Advisory report only; reassignment remains a manual operation
// @Tags         reallocation
// @Produce      json
// @Security     BearerAuth
// @Param        window_days                   query     int  false  "Analysis window in days"
// @Param        max_days_inactive             query     int  false  "Staleness threshold"
// @Param        min_performance_score         query     int  false  "Weak-performance threshold"
// @Param        high_performer_rotation_days  query     int  false  "Rotation threshold for high performers"
// @Success      200                           {object}  response.Response{data=model.ReallocationReport}
// @Failure      500                           {object}  response.Response
// @Router       /api/reallocation/recommendations [get]
func (h *ReallocationHandler) GetRecommendations(c *gin.Context) {
	criteria := service.ReallocationCriteria{}
	criteria.WindowDays, _ = strconv.Atoi(c.DefaultQuery("window_days", "0"))
	criteria.MaxDaysInactive, _ = strconv.Atoi(c.DefaultQuery("max_days_inactive", "0"))
	criteria.MinPerformanceScore, _ = strconv.Atoi(c.DefaultQuery("min_performance_score", "0"))
	criteria.HighPerformerRotationDays, _ = strconv.Atoi(c.DefaultQuery("high_performer_rotation_days", "0"))

	report, err := h.reallocationService.GetRecommendations(c.Request.Context(), criteria)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
