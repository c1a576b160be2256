package presence

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"dialdesk/internal/auth"
)

func presenceRouter(h *HTTPHandler, workerID, email string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if workerID != "" {
			c.Request = c.Request.WithContext(auth.WithWorker(c.Request.Context(), workerID, email))
		}
		c.Next()
	})
	r.GET("/v1/presence", h.HandleGet)
	r.POST("/v1/presence", h.HandleSet)
	r.POST("/v1/presence/heartbeat", h.HandleHeartbeat)
	return r
}

func TestPresenceAPI_SetThenGet(t *testing.T) {
	svc, _ := testService(&scriptedRegistry{}, NewMemoryStore())
	r := presenceRouter(&HTTPHandler{Service: svc}, "w1", "w1@example.com")

	req := httptest.NewRequest(http.MethodPost, "/v1/presence", strings.NewReader(`{"activity":"available"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/presence", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp presenceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Activity != "available" || !resp.HasWorker {
		t.Fatalf("unexpected presence: %+v", resp)
	}
}

func TestPresenceAPI_RejectsUnknownActivity(t *testing.T) {
	svc, _ := testService(&scriptedRegistry{}, NewMemoryStore())
	r := presenceRouter(&HTTPHandler{Service: svc}, "w1", "w1@example.com")

	req := httptest.NewRequest(http.MethodPost, "/v1/presence", strings.NewReader(`{"activity":"lunch"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPresenceAPI_UnauthenticatedRejected(t *testing.T) {
	svc, _ := testService(&scriptedRegistry{}, NewMemoryStore())
	r := presenceRouter(&HTTPHandler{Service: svc}, "", "")

	req := httptest.NewRequest(http.MethodGet, "/v1/presence", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestPresenceAPI_HeartbeatAcks(t *testing.T) {
	svc, _ := testService(&scriptedRegistry{}, NewMemoryStore())
	r := presenceRouter(&HTTPHandler{Service: svc}, "w1", "w1@example.com")

	req := httptest.NewRequest(http.MethodPost, "/v1/presence/heartbeat", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}
