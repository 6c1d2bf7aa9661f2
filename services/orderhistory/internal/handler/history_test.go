package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"example.com/credit-saga/services/orderhistory/internal/domain"
	"example.com/credit-saga/services/orderhistory/internal/testutil"
)

func setupTestRouter(svc *testutil.MockHistoryService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHistoryHandler(svc).RegisterRoutes(r)
	return r
}

// =====================================
// Тесты GET /customers/:id/orderhistory
// =====================================

func TestHistoryHandler_GetHistory(t *testing.T) {
	reason := domain.RejectionInsufficientCredit

	tests := []struct {
		name         string
		path         string
		mockSetup    func(svc *testutil.MockHistoryService)
		expectedCode int
		expectedBody string
	}{
		{
			name: "история клиента",
			path: "/customers/3/orderhistory",
			mockSetup: func(svc *testutil.MockHistoryService) {
				svc.On("GetHistory", mock.Anything, int64(3)).Return(&domain.CustomerHistory{
					ID:         3,
					Name:       "Иван",
					MoneyLimit: 60,
					Orders: []domain.OrderEntry{
						{ID: 5, OrderTotal: 40, State: domain.StateApproved},
						{ID: 6, OrderTotal: 90, State: domain.StateRejected, RejectionReason: &reason},
					},
				}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"_id":3,"name":"Иван","money_limit":60,"orders":[
				{"_id":5,"order_total":40,"state":"APPROVED","rejection_reason":null},
				{"_id":6,"order_total":90,"state":"REJECTED","rejection_reason":"INSUFFICIENT_CREDIT"}
			]}`,
		},
		{
			name: "без заказов - пустой массив",
			path: "/customers/4/orderhistory",
			mockSetup: func(svc *testutil.MockHistoryService) {
				svc.On("GetHistory", mock.Anything, int64(4)).
					Return(&domain.CustomerHistory{ID: 4, Name: "Анна", MoneyLimit: 10}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"_id":4,"name":"Анна","money_limit":10,"orders":[]}`,
		},
		{
			name: "клиент не найден",
			path: "/customers/9/orderhistory",
			mockSetup: func(svc *testutil.MockHistoryService) {
				svc.On("GetHistory", mock.Anything, int64(9)).Return(nil, domain.ErrCustomerNotFound)
			},
			expectedCode: http.StatusNotFound,
		},
		{
			name: "ошибка Redis",
			path: "/customers/9/orderhistory",
			mockSetup: func(svc *testutil.MockHistoryService) {
				svc.On("GetHistory", mock.Anything, int64(9)).Return(nil, errors.New("redis down"))
			},
			expectedCode: http.StatusInternalServerError,
		},
		{
			name:         "id не число",
			path:         "/customers/abc/orderhistory",
			mockSetup:    func(*testutil.MockHistoryService) {},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(testutil.MockHistoryService)
			tt.mockSetup(svc)

			w := httptest.NewRecorder()
			setupTestRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}
