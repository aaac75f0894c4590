package middleware

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/pulperia/internal/domain/model"
	pkgAuth "github.com/polkiloo/pulperia/internal/pkg/auth"
	testhelpers "github.com/polkiloo/pulperia/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuthRequired(t *testing.T) {
	vendor := pkgAuth.Principal{ID: "v1", Role: model.RoleVendor}
	tests := []struct {
		name   string
		parser TokenParser
		header string
		query  string
		status int
	}{
		{name: "no token", parser: testhelpers.StrategyStub{}, status: http.StatusUnauthorized},
		{name: "invalid token", parser: testhelpers.StrategyStub{}, header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "parser failure", parser: testhelpers.StrategyStub{ParseFn: func(string) (pkgAuth.Principal, error) {
			return pkgAuth.Principal{}, context.DeadlineExceeded
		}}, header: "Bearer token", status: http.StatusInternalServerError},
		{name: "header token", parser: testhelpers.TokenTable(map[string]pkgAuth.Principal{"good": vendor}), header: "Bearer good", status: http.StatusOK},
		{name: "query token", parser: testhelpers.TokenTable(map[string]pkgAuth.Principal{"good": vendor}), query: "?token=good", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stored model.Actor
			router := gin.New()
			router.Use(AuthRequired(tt.parser))
			router.GET("/", func(c *gin.Context) {
				if v, ok := c.Get(ActorContextKey); ok {
					stored = v.(model.Actor)
				}
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.Code)
			}
			if tt.status == http.StatusOK && stored != vendor {
				t.Fatalf("expected vendor actor in context, got %+v", stored)
			}
		})
	}
}

func TestExtractToken(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	if token := extractToken(c); token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
	c.Request.Header.Set("Authorization", "Bearer abc")
	if token := extractToken(c); token != "abc" {
		t.Fatalf("expected token from header, got %q", token)
	}
	c.Request, _ = http.NewRequest(http.MethodGet, "/?token=query", nil)
	if token := extractToken(c); token != "query" {
		t.Fatalf("expected token from query, got %q", token)
	}
}

func TestDecompressRequest(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write([]byte("payload"))
	_ = gz.Close()

	router := gin.New()
	router.Use(DecompressRequest())
	var body string
	router.POST("/", func(c *gin.Context) {
		data, _ := io.ReadAll(c.Request.Body)
		body = string(data)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(bytes.NewReader(buf.Bytes())))
	req.Header.Set("Content-Encoding", "gzip")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if body != "payload" {
		t.Fatalf("expected decompressed payload, got %q", body)
	}

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("not gzip")))
	req.Header.Set("Content-Encoding", "gzip")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for corrupt gzip, got %d", resp.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.GET("/orders", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/orders", nil))
	if !bytes.Contains(buf.Bytes(), []byte(`"path":"/orders"`)) || !bytes.Contains(buf.Bytes(), []byte(`"status":204`)) {
		t.Fatalf("expected request to be logged, got %s", buf.String())
	}
}

func TestRequestLoggerLevelsAndActor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.GET(HealthPath, func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/boom", func(c *gin.Context) {
		c.Set(ActorContextKey, pkgAuth.Principal{ID: "v1", Role: model.RoleVendor})
		c.Status(http.StatusInternalServerError)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, HealthPath, nil))
	if buf.Len() != 0 {
		t.Fatalf("expected probe below info level, got %s", buf.String())
	}

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	for _, want := range []string{`"level":"ERROR"`, `"actor":"v1"`, `"role":"vendor"`} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("expected %s in %s", want, buf.String())
		}
	}
}

func TestDecompressRequestCapsBody(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write(bytes.Repeat([]byte("a"), MaxDecodedBody+1))
	_ = gz.Close()

	router := gin.New()
	router.Use(DecompressRequest())
	var readErr error
	router.POST("/", func(c *gin.Context) {
		_, readErr = io.ReadAll(c.Request.Body)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(buf.Bytes()))
	req.Header.Set("Content-Encoding", "gzip")
	router.ServeHTTP(httptest.NewRecorder(), req)
	if readErr == nil {
		t.Fatal("expected oversized body to fail")
	}
}
