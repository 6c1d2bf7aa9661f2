// Package handler содержит HTTP обработчики OrderHistory Service.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/credit-saga/pkg/httpapi"
	"example.com/credit-saga/services/orderhistory/internal/domain"
	"example.com/credit-saga/services/orderhistory/internal/service"
)

// HistoryHandler отдаёт историю заказов клиента.
type HistoryHandler struct {
	service service.HistoryService
}

// NewHistoryHandler создаёт обработчик.
func NewHistoryHandler(svc service.HistoryService) *HistoryHandler {
	return &HistoryHandler{service: svc}
}

// RegisterRoutes регистрирует маршрут истории.
func (h *HistoryHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/customers/:id/orderhistory", h.GetHistory)
}

// OrderEntryResponse - заказ в истории.
type OrderEntryResponse struct {
	ID              int64   `json:"_id"`
	OrderTotal      int64   `json:"order_total"`
	State           string  `json:"state"`
	RejectionReason *string `json:"rejection_reason"`
}

// HistoryResponse - документ истории клиента.
type HistoryResponse struct {
	ID         int64                `json:"_id"`
	Name       string               `json:"name"`
	MoneyLimit int64                `json:"money_limit"`
	Orders     []OrderEntryResponse `json:"orders"`
}

func toHistoryResponse(h *domain.CustomerHistory) HistoryResponse {
	orders := make([]OrderEntryResponse, len(h.Orders))
	for i, o := range h.Orders {
		orders[i] = OrderEntryResponse{
			ID:         o.ID,
			OrderTotal: o.OrderTotal,
			State:      string(o.State),
		}
		if o.RejectionReason != nil {
			r := string(*o.RejectionReason)
			orders[i].RejectionReason = &r
		}
	}
	return HistoryResponse{
		ID:         h.ID,
		Name:       h.Name,
		MoneyLimit: h.MoneyLimit,
		Orders:     orders,
	}
}

// GetHistory возвращает историю заказов клиента.
// GET /customers/:id/orderhistory
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id")
	if !ok {
		return
	}

	history, err := h.service.GetHistory(c.Request.Context(), id)
	if err != nil {
		httpapi.HandleError(c, err, domain.ErrCustomerNotFound)
		return
	}

	c.JSON(http.StatusOK, toHistoryResponse(history))
}
