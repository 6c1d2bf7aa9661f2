package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"example.com/credit-saga/services/order/internal/domain"
	"example.com/credit-saga/services/order/internal/testutil"
)

// setupTestRouter создаёт Gin router для тестов.
func setupTestRouter(svc *testutil.MockOrderService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewOrderHandler(svc).RegisterRoutes(r)
	return r
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func rejected(id int64, reason domain.RejectionReason) *domain.Order {
	return &domain.Order{ID: id, State: domain.StateRejected, RejectionReason: &reason}
}

// =====================================
// Тесты GET /orders
// =====================================

func TestOrderHandler_ListOrders(t *testing.T) {
	svc := new(testutil.MockOrderService)
	svc.On("ListOrders", mock.Anything).Return([]*domain.Order{
		{ID: 1, State: domain.StateApproved},
		rejected(2, domain.RejectionInsufficientCredit),
	}, nil)

	w := doRequest(setupTestRouter(svc), http.MethodGet, "/orders", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"id":1,"state":"APPROVED","rejection_reason":null},
		{"id":2,"state":"REJECTED","rejection_reason":"INSUFFICIENT_CREDIT"}
	]`, w.Body.String())
}

// =====================================
// Тесты GET /orders/:id
// =====================================

func TestOrderHandler_GetOrder(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		mockSetup    func(svc *testutil.MockOrderService)
		expectedCode int
		expectedBody string
	}{
		{
			name: "заказ отклонён - неизвестный клиент",
			path: "/orders/5",
			mockSetup: func(svc *testutil.MockOrderService) {
				svc.On("GetOrder", mock.Anything, int64(5)).Return(rejected(5, domain.RejectionUnknownCustomer), nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"id":5,"state":"REJECTED","rejection_reason":"UNKNOWN_CUSTOMER"}`,
		},
		{
			name: "заказ не найден",
			path: "/orders/9",
			mockSetup: func(svc *testutil.MockOrderService) {
				svc.On("GetOrder", mock.Anything, int64(9)).Return(nil, domain.ErrOrderNotFound)
			},
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "отрицательный id",
			path:         "/orders/-1",
			mockSetup:    func(*testutil.MockOrderService) {},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(testutil.MockOrderService)
			tt.mockSetup(svc)

			w := doRequest(setupTestRouter(svc), http.MethodGet, tt.path, "")

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}

// =====================================
// Тесты POST /orders
// =====================================

func TestOrderHandler_CreateOrder(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		mockSetup    func(svc *testutil.MockOrderService)
		expectedCode int
		expectedBody string
	}{
		{
			name: "заказ создан в PENDING",
			body: `{"customer_id":3,"order_total":40}`,
			mockSetup: func(svc *testutil.MockOrderService) {
				svc.On("CreateOrder", mock.Anything, int64(3), int64(40)).
					Return(&domain.Order{ID: 5, CustomerID: 3, OrderTotal: 40, State: domain.StatePending}, nil)
			},
			expectedCode: http.StatusCreated,
			expectedBody: `{"id":5,"state":"PENDING","rejection_reason":null}`,
		},
		{
			name:         "нет order_total",
			body:         `{"customer_id":3}`,
			mockSetup:    func(*testutil.MockOrderService) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "customer_id не число",
			body:         `{"customer_id":"три","order_total":40}`,
			mockSetup:    func(*testutil.MockOrderService) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "ошибка сервиса",
			body: `{"customer_id":3,"order_total":40}`,
			mockSetup: func(svc *testutil.MockOrderService) {
				svc.On("CreateOrder", mock.Anything, int64(3), int64(40)).Return(nil, errors.New("db down"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(testutil.MockOrderService)
			tt.mockSetup(svc)

			w := doRequest(setupTestRouter(svc), http.MethodPost, "/orders", tt.body)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}

// =====================================
// Тесты POST /orders/:id/cancel
// =====================================

func TestOrderHandler_CancelOrder(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{name: "отменён", expectedCode: http.StatusNoContent},
		{name: "не найден", err: fmt.Errorf("ошибка отмены заказа 5: %w", domain.ErrOrderNotFound), expectedCode: http.StatusNotFound},
		{name: "конфликт версий", err: domain.ErrConcurrencyConflict, expectedCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(testutil.MockOrderService)
			svc.On("CancelOrder", mock.Anything, int64(5)).Return(tt.err)

			w := doRequest(setupTestRouter(svc), http.MethodPost, "/orders/5/cancel", "")

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusNoContent {
				assert.Empty(t, w.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}
