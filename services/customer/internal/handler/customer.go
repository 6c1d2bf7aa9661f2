// Package handler содержит HTTP обработчики Customer Service.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/credit-saga/pkg/httpapi"
	"example.com/credit-saga/services/customer/internal/domain"
	"example.com/credit-saga/services/customer/internal/service"
)

// CustomerHandler - обработчик клиентов.
type CustomerHandler struct {
	service service.CustomerService
}

// NewCustomerHandler создаёт обработчик клиентов.
func NewCustomerHandler(svc service.CustomerService) *CustomerHandler {
	return &CustomerHandler{service: svc}
}

// RegisterRoutes регистрирует маршруты /customers.
func (h *CustomerHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/customers", h.ListCustomers)
	r.GET("/customers/:id", h.GetCustomer)
	r.POST("/customers", h.CreateCustomer)
}

// === Request/Response DTOs ===

// CreateCustomerRequest - запрос на создание клиента.
type CreateCustomerRequest struct {
	Name       string `json:"name" binding:"required"`
	MoneyLimit *int64 `json:"money_limit" binding:"required"`
}

// CustomerResponse - клиент в списке и в ответе на создание.
type CustomerResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	MoneyLimit int64  `json:"money_limit"`
}

// CustomerDetailResponse - клиент с активными резервами.
type CustomerDetailResponse struct {
	ID                 int64                       `json:"id"`
	Name               string                      `json:"name"`
	MoneyLimit         int64                       `json:"money_limit"`
	CreditReservations []CreditReservationResponse `json:"credit_reservations"`
}

// CreditReservationResponse - резерв в ответе.
type CreditReservationResponse struct {
	Amount int64 `json:"amount"`
}

func toCustomerResponse(c *domain.Customer) CustomerResponse {
	return CustomerResponse{ID: c.ID, Name: c.Name, MoneyLimit: c.MoneyLimit}
}

func toCustomerDetailResponse(c *domain.Customer) CustomerDetailResponse {
	active := c.ActiveReservations()
	reservations := make([]CreditReservationResponse, len(active))
	for i := range active {
		reservations[i] = CreditReservationResponse{Amount: active[i].Amount}
	}
	return CustomerDetailResponse{
		ID:                 c.ID,
		Name:               c.Name,
		MoneyLimit:         c.MoneyLimit,
		CreditReservations: reservations,
	}
}

// === Handlers ===

// ListCustomers возвращает всех клиентов.
// GET /customers
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	customers, err := h.service.ListCustomers(c.Request.Context())
	if err != nil {
		httpapi.HandleError(c, err)
		return
	}

	resp := make([]CustomerResponse, len(customers))
	for i, cust := range customers {
		resp[i] = toCustomerResponse(cust)
	}
	c.JSON(http.StatusOK, resp)
}

// GetCustomer возвращает клиента с резервами.
// GET /customers/:id
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := httpapi.ParseID(c, "id")
	if !ok {
		return
	}

	customer, err := h.service.GetCustomer(c.Request.Context(), id)
	if err != nil {
		httpapi.HandleError(c, err, domain.ErrCustomerNotFound)
		return
	}

	c.JSON(http.StatusOK, toCustomerDetailResponse(customer))
}

// CreateCustomer создаёт клиента.
// POST /customers
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BadRequest(c, "Некорректный формат запроса: "+err.Error())
		return
	}

	customer, err := h.service.CreateCustomer(c.Request.Context(), req.Name, *req.MoneyLimit)
	if err != nil {
		httpapi.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toCustomerResponse(customer))
}
