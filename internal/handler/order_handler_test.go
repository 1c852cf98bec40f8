package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shopcore/internal/model"
	"shopcore/internal/order"
)

// MockLifecycle is a mock implementation of order.Lifecycle.
type MockLifecycle struct {
	mock.Mock
}

func (m *MockLifecycle) Create(ctx context.Context, userID string, req order.CreateRequest) (*model.Order, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockLifecycle) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockLifecycle) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockLifecycle) Transition(ctx context.Context, id uuid.UUID, next model.OrderStatus) (*model.Order, error) {
	args := m.Called(ctx, id, next)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockLifecycle) SetTracking(ctx context.Context, id uuid.UUID, tracking string) (*model.Order, error) {
	args := m.Called(ctx, id, tracking)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func testOrder(id uuid.UUID) *model.Order {
	return &model.Order{
		ID:     id,
		UserID: "user-1",
		Items: []model.OrderItem{
			{ProductID: "P001", Name: "Hoodie", UnitPrice: decimal.RequireFromString("100.00"), Quantity: 2},
		},
		Pricing: model.PriceBreakdown{
			Subtotal:    decimal.RequireFromString("200.00"),
			ShippingFee: decimal.RequireFromString("99.99"),
			Tax:         decimal.RequireFromString("30.00"),
			Total:       decimal.RequireFromString("329.99"),
		},
		Status:    model.StatusPending,
		Version:   1,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// newOrderRouter mounts the handler's routes so chi URL params resolve.
func newOrderRouter(h *OrderHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/orders", h.Create)
	r.Get("/api/orders", h.List)
	r.Get("/api/orders/{id}", h.Get)
	r.Post("/api/admin/orders/{id}/status", h.Transition)
	r.Put("/api/admin/orders/{id}/tracking", h.SetTracking)
	return r
}

func TestOrderHandler_Create(t *testing.T) {
	logger := zerolog.Nop()
	orderID := uuid.New()

	tests := []struct {
		name           string
		userHeader     string
		requestBody    interface{}
		mockReturn     *model.Order
		mockError      error
		expectedStatus int
		expectedCode   string
		expectService  bool
	}{
		{
			name:           "Success",
			userHeader:     "user-1",
			requestBody:    order.CreateRequest{ShippingAddress: "1 Main St", PaymentMethod: "card-1"},
			mockReturn:     testOrder(orderID),
			expectedStatus: http.StatusCreated,
			expectService:  true,
		},
		{
			name:           "Missing user header",
			userHeader:     "",
			requestBody:    order.CreateRequest{PaymentMethod: "card-1"},
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
		{
			name:           "Missing payment method",
			userHeader:     "user-1",
			requestBody:    order.CreateRequest{ShippingAddress: "1 Main St"},
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
		{
			name:           "Empty cart",
			userHeader:     "user-1",
			requestBody:    order.CreateRequest{PaymentMethod: "card-1"},
			mockError:      model.ErrEmptyCart,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeEmptyCart,
			expectService:  true,
		},
		{
			name:           "Insufficient stock",
			userHeader:     "user-1",
			requestBody:    order.CreateRequest{PaymentMethod: "card-1"},
			mockError:      &model.InsufficientStockError{ProductID: "P001", Requested: 5, Available: 2},
			expectedStatus: http.StatusConflict,
			expectedCode:   model.ErrCodeInsufficientStock,
			expectService:  true,
		},
		{
			name:           "Payment declined",
			userHeader:     "user-1",
			requestBody:    order.CreateRequest{PaymentMethod: "card-1"},
			mockError:      model.ErrPaymentDeclined,
			expectedStatus: http.StatusPaymentRequired,
			expectedCode:   model.ErrCodePaymentDeclined,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockLifecycle)
			if tt.expectService {
				mockService.On("Create", mock.Anything, tt.userHeader, mock.Anything).
					Return(tt.mockReturn, tt.mockError)
			}

			h := NewOrderHandler(mockService, logger)
			body, err := json.Marshal(tt.requestBody)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
			if tt.userHeader != "" {
				req.Header.Set("X-User-ID", tt.userHeader)
			}
			w := httptest.NewRecorder()

			newOrderRouter(h).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.expectedCode, resp.Code)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_Get(t *testing.T) {
	logger := zerolog.Nop()
	orderID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockLifecycle)
		mockService.On("Get", mock.Anything, orderID).Return(testOrder(orderID), nil)

		h := NewOrderHandler(mockService, logger)
		req := httptest.NewRequest(http.MethodGet, "/api/orders/"+orderID.String(), nil)
		w := httptest.NewRecorder()

		newOrderRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Not found", func(t *testing.T) {
		mockService := new(MockLifecycle)
		mockService.On("Get", mock.Anything, orderID).Return(nil, nil)

		h := NewOrderHandler(mockService, logger)
		req := httptest.NewRequest(http.MethodGet, "/api/orders/"+orderID.String(), nil)
		w := httptest.NewRecorder()

		newOrderRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Invalid ID format", func(t *testing.T) {
		mockService := new(MockLifecycle)
		h := NewOrderHandler(mockService, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/orders/not-a-uuid", nil)
		w := httptest.NewRecorder()

		newOrderRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "Get")
	})
}

func TestOrderHandler_Transition(t *testing.T) {
	logger := zerolog.Nop()
	orderID := uuid.New()

	tests := []struct {
		name           string
		status         string
		mockReturn     *model.Order
		mockError      error
		expectedStatus int
		expectedCode   string
		expectService  bool
	}{
		{
			name:           "Success",
			status:         "PROCESSING",
			mockReturn:     testOrder(orderID),
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Unknown status",
			status:         "ON_HOLD",
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
		{
			name:           "Invalid transition",
			status:         "CANCELLED",
			mockError:      &model.InvalidTransitionError{From: model.StatusShipped, To: model.StatusCancelled},
			expectedStatus: http.StatusConflict,
			expectedCode:   model.ErrCodeInvalidTransition,
			expectService:  true,
		},
		{
			name:           "Concurrent modification surfaces as conflict",
			status:         "PROCESSING",
			mockError:      model.ErrConcurrentModification,
			expectedStatus: http.StatusConflict,
			expectedCode:   model.ErrCodeConcurrentModification,
			expectService:  true,
		},
		{
			name:           "Order not found",
			status:         "PROCESSING",
			mockError:      model.ErrOrderNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   model.ErrCodeOrderNotFound,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockLifecycle)
			if tt.expectService {
				mockService.On("Transition", mock.Anything, orderID, model.OrderStatus(tt.status)).
					Return(tt.mockReturn, tt.mockError)
			}

			h := NewOrderHandler(mockService, logger)
			body, err := json.Marshal(map[string]string{"status": tt.status})
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/api/admin/orders/"+orderID.String()+"/status", bytes.NewReader(body))
			w := httptest.NewRecorder()

			newOrderRouter(h).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.expectedCode, resp.Code)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_SetTracking(t *testing.T) {
	logger := zerolog.Nop()
	orderID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		tracking := "TRACK-123"
		o := testOrder(orderID)
		o.TrackingNumber = &tracking

		mockService := new(MockLifecycle)
		mockService.On("SetTracking", mock.Anything, orderID, tracking).Return(o, nil)

		h := NewOrderHandler(mockService, logger)
		body, _ := json.Marshal(map[string]string{"trackingNumber": tracking})

		req := httptest.NewRequest(http.MethodPut, "/api/admin/orders/"+orderID.String()+"/tracking", bytes.NewReader(body))
		w := httptest.NewRecorder()

		newOrderRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Missing tracking number", func(t *testing.T) {
		mockService := new(MockLifecycle)
		h := NewOrderHandler(mockService, logger)

		body, _ := json.Marshal(map[string]string{})
		req := httptest.NewRequest(http.MethodPut, "/api/admin/orders/"+orderID.String()+"/tracking", bytes.NewReader(body))
		w := httptest.NewRecorder()

		newOrderRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "SetTracking")
	})
}
