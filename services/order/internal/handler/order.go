// Package handler содержит HTTP обработчики Order Service.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/credit-saga/pkg/httpapi"
	"example.com/credit-saga/services/order/internal/domain"
	"example.com/credit-saga/services/order/internal/service"
)

// OrderHandler - обработчик заказов.
type OrderHandler struct {
	service service.OrderService
}

// NewOrderHandler создаёт обработчик заказов.
func NewOrderHandler(svc service.OrderService) *OrderHandler {
	return &OrderHandler{service: svc}
}

// RegisterRoutes регистрирует маршруты /orders.
func (h *OrderHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:id", h.GetOrder)
	r.POST("/orders", h.CreateOrder)
	r.POST("/orders/:id/cancel", h.CancelOrder)
}

// === Request/Response DTOs ===

// CreateOrderRequest - запрос на создание заказа.
type CreateOrderRequest struct {
	CustomerID *int64 `json:"customer_id" binding:"required"`
	OrderTotal *int64 `json:"order_total" binding:"required"`
}

// OrderResponse - заказ в ответе.
type OrderResponse struct {
	ID              int64   `json:"id"`
	State           string  `json:"state"`
	RejectionReason *string `json:"rejection_reason"`
}

func toOrderResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{ID: o.ID, State: string(o.State)}
	if o.RejectionReason != nil {
		r := string(*o.RejectionReason)
		resp.RejectionReason = &r
	}
	return resp
}

// === Handlers ===

// ListOrders возвращает все заказы.
// GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.service.ListOrders(c.Request.Context())
	if err != nil {
		httpapi.HandleError(c, err)
		return
	}

	resp := make([]OrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	c.JSON(http.StatusOK, resp)
}

// GetOrder возвращает заказ.
// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		httpapi.HandleError(c, err, domain.ErrOrderNotFound)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// CreateOrder создаёт заказ. Решение по кредиту приходит асинхронно,
// в ответе заказ всегда в PENDING.
// POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BadRequest(c, "Некорректный формат запроса: "+err.Error())
		return
	}

	order, err := h.service.CreateOrder(c.Request.Context(), *req.CustomerID, *req.OrderTotal)
	if err != nil {
		httpapi.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

// CancelOrder отменяет заказ.
// POST /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.CancelOrder(c.Request.Context(), id); err != nil {
		httpapi.HandleError(c, err, domain.ErrOrderNotFound)
		return
	}

	c.Status(http.StatusNoContent)
}
