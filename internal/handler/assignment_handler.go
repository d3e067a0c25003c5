package handler

import (
	"errors"
	"net/http"

	"giftshop/internal/middleware"
	"giftshop/internal/model"
	"giftshop/internal/service"
	"giftshop/pkg/response"

	"github.com/gin-gonic/gin"
)

type AssignmentHandler struct {
	assignmentService service.AssignmentService
}

func NewAssignmentHandler(assignmentService service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

func (h *AssignmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	assignments := router.Group("/api/assignments")
	{
		manage := assignments.Group("")
		manage.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager))
		{
			manage.POST("", h.Assign)
			manage.POST("/products/:id/reassign", h.Reassign)
			manage.DELETE("/products/:id", h.Revoke)
			manage.GET("/assignees", h.ListAssignees)
		}

		read := assignments.Group("")
		read.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleSalesperson))
		{
			read.GET("/products/:id", h.GetActive)
			read.GET("/products/:id/history", h.GetHistory)
		}
	}
}

// Assign gives a product to a sales-capable user
// @Summary      Assign product
// @Description  Closes any active assignment for the product and opens a new one
// @Tags         assignments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.AssignProductRequest  true  "Assignment"
// @Success      201      {object}  response.Response{data=service.AssignmentResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/assignments [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req service.AssignProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, _ := c.Get("userID")
	actorStr, _ := actorID.(string)

	assignment, err := h.assignmentService.Assign(c.Request.Context(), req, actorStr)
	if err != nil {
		writeAssignmentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, assignment))
}

// Reassign moves a product to a new assignee
// @Summary      Reassign product
// @Tags         assignments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Product ID"
// @Param        payload  body      service.ReassignProductRequest  true  "Reassignment"
// @Success      200      {object}  response.Response{data=service.AssignmentResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/assignments/products/{id}/reassign [post]
func (h *AssignmentHandler) Reassign(c *gin.Context) {
	var req service.ReassignProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, _ := c.Get("userID")
	actorStr, _ := actorID.(string)

	assignment, err := h.assignmentService.Reassign(c.Request.Context(), c.Param("id"), req, actorStr)
	if err != nil {
		writeAssignmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, assignment))
}

// Revoke ends a product's active assignment
// @Summary      Revoke assignment
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/assignments/products/{id} [delete]
func (h *AssignmentHandler) Revoke(c *gin.Context) {
	actorID, _ := c.Get("userID")
	actorStr, _ := actorID.(string)

	if err := h.assignmentService.Revoke(c.Request.Context(), c.Param("id"), actorStr); err != nil {
		writeAssignmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Assignment revoked"))
}

// GetActive returns the product's current active assignment
// @Summary      Get active assignment
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.AssignmentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/assignments/products/{id} [get]
func (h *AssignmentHandler) GetActive(c *gin.Context) {
	assignment, err := h.assignmentService.GetActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAssignmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, assignment))
}

// GetHistory returns the full assignment trail for a product
// @Summary      Assignment history
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=[]service.AssignmentResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/assignments/products/{id}/history [get]
func (h *AssignmentHandler) GetHistory(c *gin.Context) {
	history, err := h.assignmentService.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

// ListAssignees returns the users a product can be (re)assigned to
// @Summary      List assignable users
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.AssigneeOption}
// @Failure      500  {object}  response.Response
// @Router       /api/assignments/assignees [get]
func (h *AssignmentHandler) ListAssignees(c *gin.Context) {
	options, err := h.assignmentService.ListAssignableUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, options))
}

// writeAssignmentError maps service sentinels onto HTTP statuses
func writeAssignmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrAssigneeNotFound),
		errors.Is(err, service.ErrAssignmentNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, service.ErrAssignmentConflict):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, service.ErrInvalidAssigneeRole):
		c.JSON(http.StatusUnprocessableEntity, response.Error(http.StatusUnprocessableEntity, err.Error()))
	default:
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	}
}
