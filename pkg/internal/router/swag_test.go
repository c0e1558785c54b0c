package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/router"
)

func TestSwaggerRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := configs.Defaults()

	off := gin.New()
	router.RegisterSwaggerRoute(off, &cfg)

	w := httptest.NewRecorder()
	off.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("swagger without debug status = %d, want 404", w.Code)
	}

	cfg.Server.Debug = true

	on := gin.New()
	router.RegisterSwaggerRoute(on, &cfg)

	w = httptest.NewRecorder()
	on.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("doc.json status = %d", w.Code)
	}

	var doc struct {
		Info  struct{ Version string } `json:"info"`
		Host  string                   `json:"host"`
		Paths map[string]any           `json:"paths"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not valid JSON: %v", err)
	}

	if doc.Info.Version != configs.AppVersion || doc.Host != "0.0.0.0:8080" {
		t.Errorf("info = %+v, host = %q", doc.Info, doc.Host)
	}

	for _, p := range []string{"/api/v1/files", "/api/v1/shares/{shareId}", "/api/v1/trash", "/blob/{container}/{key}"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("doc.json missing path %s", p)
		}
	}
}
