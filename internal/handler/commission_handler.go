package handler

import (
	"errors"
	"net/http"

	"giftshop/internal/middleware"
	"giftshop/internal/model"
	"giftshop/internal/service"
	"giftshop/pkg/pagination"
	"giftshop/pkg/response"

	"github.com/gin-gonic/gin"
)

type CommissionHandler struct {
	commissionService service.CommissionService
}

func NewCommissionHandler(commissionService service.CommissionService) *CommissionHandler {
	return &CommissionHandler{commissionService: commissionService}
}

func (h *CommissionHandler) RegisterRoutes(router *gin.RouterGroup) {
	commission := router.Group("/api/commission")
	{
		// Rule management is restricted to admin/manager
		rules := commission.Group("/rules")
		rules.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager))
		{
			rules.GET("", h.ListRules)
			rules.POST("", h.CreateRule)
			rules.PATCH("/:id/deactivate", h.DeactivateRule)
		}

		// Any authenticated role may preview and read earnings
		all := commission.Group("")
		all.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleSalesperson))
		{
			all.POST("/resolve", h.Resolve)
			all.GET("/earnings", h.ListEarnings)
		}

		// Order calculation, status transitions and summary reporting
		manage := commission.Group("")
		manage.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager))
		{
			manage.POST("/orders/:id/calculate", h.CalculateForOrder)
			manage.PATCH("/earnings/:id/status", h.UpdateEarningStatus)
			manage.GET("/summary", h.GetSummary)
		}
	}
}

// CreateRule registers a new commission rule
// @Summary      Create commission rule
// @Tags         commission
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateCommissionRuleRequest  true  "Rule definition"
// @Success      201      {object}  response.Response{data=service.CommissionRuleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/commission/rules [post]
func (h *CommissionHandler) CreateRule(c *gin.Context) {
	var req service.CreateCommissionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, _ := c.Get("userID")
	actorStr, _ := actorID.(string)

	rule, err := h.commissionService.CreateRule(c.Request.Context(), req, actorStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// ListRules returns paginated commission rules
// @Summary      List commission rules
// @Tags         commission
// @Produce      json
// @Security     BearerAuth
// @Param        page         query     int   false  "Page number (default 1)"
// @Param        limit        query     int   false  "Items per page (default 20)"
// @Param        active_only  query     bool  false  "Only active rules"
// @Success      200          {object}  response.Response{data=object}
// @Failure      500          {object}  response.Response
// @Router       /api/commission/rules [get]
func (h *CommissionHandler) ListRules(c *gin.Context) {
	params := pagination.Parse(c)
	activeOnly := c.DefaultQuery("active_only", "false") == "true"

	rules, total, err := h.commissionService.ListRules(c.Request.Context(), params.Page, params.Limit, activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.List(http.StatusOK, gin.H{"rules": rules}, params.Meta(total)))
}

// DeactivateRule soft-disables a rule
// @Summary      Deactivate commission rule
// @Tags         commission
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/commission/rules/{id}/deactivate [patch]
func (h *CommissionHandler) DeactivateRule(c *gin.Context) {
	actorID, _ := c.Get("userID")
	actorStr, _ := actorID.(string)

	err := h.commissionService.DeactivateRule(c.Request.Context(), c.Param("id"), actorStr)
	if err != nil {
		if errors.Is(err, service.ErrRuleNotFound) {
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Rule deactivated"))
}

// Resolve previews the rule and amount a sale would earn
// @Summary      Resolve commission
// @Description  Returns the single applicable rule for a (user, product, amount) tuple without recording anything
// @Tags         commission
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ResolveCommissionRequest  true  "Resolution query"
// @Success      200      {object}  response.Response{data=service.ResolveCommissionResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/commission/resolve [post]
func (h *CommissionHandler) Resolve(c *gin.Context) {
	var req service.ResolveCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	res, err := h.commissionService.Resolve(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// CalculateForOrder records pending earnings for a completed order
// @Summary      Calculate order commissions
// @Description  Resolves a rule per order item and persists pending earnings; repeat calls skip items already recorded
// @Tags         commission
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=[]service.EarningResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/commission/orders/{id}/calculate [post]
func (h *CommissionHandler) CalculateForOrder(c *gin.Context) {
	actorID, _ := c.Get("userID")
	actorStr, _ := actorID.(string)

	earnings, err := h.commissionService.ConfirmOrderCommissions(c.Request.Context(), c.Param("id"), actorStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, earnings))
}

// ListEarnings returns paginated earnings, filterable by user and status
// @Summary      List commission earnings
// @Tags         commission
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  query     string  false  "Filter by user"
// @Param        status   query     string  false  "Filter by status"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Items per page (default 20)"
// @Success      200      {object}  response.Response{data=object}
// @Failure      500      {object}  response.Response
// @Router       /api/commission/earnings [get]
func (h *CommissionHandler) ListEarnings(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.EarningFilter{
		UserID: c.Query("user_id"),
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	// Salespersons only see their own earnings
	if role, _ := c.Get("userRole"); role == model.RoleSalesperson {
		if userID, ok := c.Get("userID"); ok {
			filter.UserID, _ = userID.(string)
		}
	}

	earnings, total, err := h.commissionService.ListEarnings(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.List(http.StatusOK, gin.H{"earnings": earnings}, params.Meta(total)))
}

// UpdateEarningStatus transitions an earning through its lifecycle
// @Summary      Update earning status
// @Description  Moves an earning pending→approved, pending→cancelled or approved→paid
// @Tags         commission
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Earning ID"
// @Param        payload  body      service.EarningStatusRequest  true  "Target status"
// @Success      200      {object}  response.Response{data=service.EarningResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/commission/earnings/{id}/status [patch]
func (h *CommissionHandler) UpdateEarningStatus(c *gin.Context) {
	var req service.EarningStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, _ := c.Get("userID")
	actorStr, _ := actorID.(string)

	earning, err := h.commissionService.UpdateEarningStatus(c.Request.Context(), c.Param("id"), req, actorStr)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEarningNotFound):
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		case errors.Is(err, service.ErrInvalidEarningTransition):
			c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
		default:
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, earning))
}

// GetSummary returns aggregated earnings per user per period
// @Summary      Commission summary
// @Tags         commission
// @Produce      json
// @Security     BearerAuth
// @Param        group_by    query     string  false  "day, week or month (default month)"
// @Param        start_date  query     string  false  "YYYY-MM-DD"
// @Param        end_date    query     string  false  "YYYY-MM-DD"
// @Success      200         {object}  response.Response{data=object}
// @Failure      400         {object}  response.Response
// @Router       /api/commission/summary [get]
func (h *CommissionHandler) GetSummary(c *gin.Context) {
	groupBy := c.DefaultQuery("group_by", "month")

	rows, err := h.commissionService.GetSummary(c.Request.Context(), groupBy, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"group_by": groupBy,
		"rows":     rows,
	}))
}
