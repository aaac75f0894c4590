package router

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/pulperia/internal/domain/model"
	pkgAuth "github.com/polkiloo/pulperia/internal/pkg/auth"
	"github.com/polkiloo/pulperia/internal/server/http/handlers"
	testhelpers "github.com/polkiloo/pulperia/internal/test"
)

func newFacade() testhelpers.FacadeStub {
	return testhelpers.FacadeStub{
		StrategyStub: testhelpers.TokenTable(map[string]pkgAuth.Principal{
			"vendor":   {ID: "v1", Role: model.RoleVendor},
			"customer": {ID: "c1", Role: model.RoleCustomer},
		}),
		OrderFacadeStub: testhelpers.OrderFacadeStub{
			OrdersFn: func(context.Context, model.Actor) ([]model.Order, error) {
				return []model.Order{{ID: "o1", VendorID: "v1", CustomerID: "c1", Status: model.OrderStatusPending}}, nil
			},
		},
	}
}

func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := Setup(newFacade(), slog.New(slog.NewJSONHandler(io.Discard, nil)))

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		status int
	}{
		{name: "health is public", method: http.MethodGet, path: "/api/healthz", status: http.StatusOK},
		{name: "orders need auth", method: http.MethodGet, path: "/api/orders", status: http.StatusUnauthorized},
		{name: "list orders", method: http.MethodGet, path: "/api/orders", token: "vendor", status: http.StatusOK},
		{name: "place order", method: http.MethodPost, path: "/api/orders", token: "customer", body: `{"vendor_id":"v1"}`, status: http.StatusCreated},
		{name: "transition", method: http.MethodPost, path: "/api/orders/o1/transition", token: "vendor", body: `{"status":"ACCEPTED"}`, status: http.StatusOK},
		{name: "set status", method: http.MethodPut, path: "/api/pulperias/me/status", token: "vendor", body: `{"open":true}`, status: http.StatusOK},
		{name: "read status", method: http.MethodGet, path: "/api/pulperias/v1/status", token: "customer", status: http.StatusOK},
		{name: "ws needs auth", method: http.MethodGet, path: "/api/ws", status: http.StatusUnauthorized},
		{name: "ws with query token", method: http.MethodGet, path: "/api/ws?token=vendor", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = bytes.NewReader([]byte(tt.body))
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			req.Header.Set("Content-Type", "application/json")
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp := httptest.NewRecorder()
			engine.ServeHTTP(resp, req)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestSetupCompressesAPIResponses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := Setup(newFacade(), slog.New(slog.NewJSONHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer vendor")
	req.Header.Set("Accept-Encoding", "gzip")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip response, got %q", resp.Header().Get("Content-Encoding"))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/ws?token=vendor", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Header().Get("Content-Encoding") == "gzip" {
		t.Fatal("expected websocket path to bypass compression")
	}
}

var _ handlers.Facade = testhelpers.FacadeStub{}
