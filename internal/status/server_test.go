package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/e7canasta/camsens/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticProvider struct {
	status session.Status
}

func (p staticProvider) Snapshot() session.Status { return p.status }

func running(sources ...session.SourceStatus) session.Status {
	return session.Status{RunID: "run-1", State: "recording_and_sensing", Mode: "motion", Sources: sources}
}

func TestEvaluate(t *testing.T) {
	primaryOK := session.SourceStatus{Camera: "Cam1", Required: true, Active: true, Health: "healthy"}
	secondaryOK := session.SourceStatus{Camera: "Cam2", Active: true, Health: "healthy"}

	tests := []struct {
		name   string
		status session.Status
		want   string
	}{
		{"all healthy", running(primaryOK, secondaryOK), Healthy},
		{"optional degraded", running(primaryOK, session.SourceStatus{Camera: "Cam2", Active: true, Health: "degraded"}), Degraded},
		{"optional dropped", running(primaryOK, session.SourceStatus{Camera: "Cam2", Health: "lost", Dropped: "source lost"}), Degraded},
		{"required lost", running(session.SourceStatus{Camera: "Cam1", Required: true, Active: true, Health: "lost"}), Unhealthy},
		{"fatal error", session.Status{State: "terminated", Error: "session: required source lost"}, Unhealthy},
		{"stopped cleanly", session.Status{State: "terminated", Sources: []session.SourceStatus{
			{Camera: "Cam1", Required: true, Health: "healthy"},
		}}, Healthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.status); got != tt.want {
				t.Errorf("Evaluate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEndpoints(t *testing.T) {
	provider := staticProvider{status: running(
		session.SourceStatus{Camera: "Cam1", Required: true, Active: true, Health: "healthy", FramesWritten: 42},
	)}
	srv := New("127.0.0.1:0", provider)

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"health", "/health", http.StatusOK},
		{"status", "/status", http.StatusOK},
		{"unknown", "/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			srv.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantCode)
			}
		})
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var got session.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.RunID != "run-1" || len(got.Sources) != 1 || got.Sources[0].FramesWritten != 42 {
		t.Errorf("status body = %+v", got)
	}
}

func TestHealth_Unhealthy(t *testing.T) {
	srv := New("", staticProvider{status: session.Status{State: "terminated", Error: "boom"}})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", rec.Code)
	}
	var body HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != Unhealthy {
		t.Errorf("status = %s", body.Status)
	}
}

func TestStartAndShutdown(t *testing.T) {
	srv := New("127.0.0.1:0", staticProvider{status: running()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/health", srv.Addr()))
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("code = %d", resp.StatusCode)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
