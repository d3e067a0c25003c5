package handler

import (
	"net/http"

	"giftshop/internal/middleware"
	"giftshop/internal/model"
	"giftshop/internal/service"
	"giftshop/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	taxService service.TaxService
}

func NewTaxHandler(taxService service.TaxService) *TaxHandler {
	return &TaxHandler{taxService: taxService}
}

func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup) {
	tax := router.Group("/api/tax")
	{
		// Any authenticated role may quote tax
		calc := tax.Group("")
		calc.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleSalesperson))
		{
			calc.POST("/calculate", h.CalculateOrderTax)
			calc.GET("/slabs", h.ListTaxSlabs)
			calc.GET("/slabs/:category", h.GetTaxSlab)
			calc.GET("/configurations", h.ListTaxConfigurations)
		}

		// Configuration changes are restricted
		admin := tax.Group("")
		admin.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager))
		{
			admin.PUT("/configurations/:category", h.UpsertTaxConfiguration)
		}
	}
}

// CalculateOrderTax quotes the GST breakdown for a set of order items
// @Summary      Calculate order tax
// @Description  Computes per-item and order-level GST, splitting CGST/SGST for intra-state and IGST for inter-state sales
// @Tags         tax
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CalculateOrderTaxRequest  true  "Order items and states"
// @Success      200      {object}  response.Response{data=service.OrderTaxBreakdown}
// @Failure      400      {object}  response.Response
// @Router       /api/tax/calculate [post]
func (h *TaxHandler) CalculateOrderTax(c *gin.Context) {
	var req service.CalculateOrderTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	breakdown, err := h.taxService.CalculateOrderTax(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, breakdown))
}

// ListTaxSlabs returns the active slab for every tax category
// @Summary      List tax slabs
// @Tags         tax
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.TaxSlabResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/tax/slabs [get]
func (h *TaxHandler) ListTaxSlabs(c *gin.Context) {
	slabs, err := h.taxService.ListTaxSlabs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, slabs))
}

// GetTaxSlab returns the active slab for one category
// @Summary      Get tax slab by category
// @Tags         tax
// @Produce      json
// @Security     BearerAuth
// @Param        category  path      string  true  "Tax category"
// @Success      200       {object}  response.Response{data=service.TaxSlabResponse}
// @Failure      400       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Router       /api/tax/slabs/{category} [get]
func (h *TaxHandler) GetTaxSlab(c *gin.Context) {
	category := c.Param("category")

	slab, err := h.taxService.GetTaxSlab(c.Request.Context(), category)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	if slab == nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "No active tax slab for category '"+category+"'"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, slab))
}

// UpsertTaxConfiguration replaces the active calculation-mode configuration
// for a category
// @Summary      Upsert tax configuration
// @Description  Deactivates any existing configuration for the category and activates the new one
// @Tags         tax
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        category  path      string                           true  "Tax category"
// @Param        payload   body      service.UpsertTaxConfigRequest  true  "Configuration"
// @Success      200       {object}  response.Response{data=service.TaxConfigResponse}
// @Failure      400       {object}  response.Response
// @Router       /api/tax/configurations/{category} [put]
func (h *TaxHandler) UpsertTaxConfiguration(c *gin.Context) {
	category := c.Param("category")

	var req service.UpsertTaxConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, _ := c.Get("userID")
	actorStr, _ := actorID.(string)

	cfg, err := h.taxService.UpsertTaxConfiguration(c.Request.Context(), category, req, actorStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, cfg))
}

// ListTaxConfigurations returns every active calculation-mode configuration
// @Summary      List tax configurations
// @Tags         tax
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.TaxConfigResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/tax/configurations [get]
func (h *TaxHandler) ListTaxConfigurations(c *gin.Context) {
	configs, err := h.taxService.ListTaxConfigurations(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, configs))
}
