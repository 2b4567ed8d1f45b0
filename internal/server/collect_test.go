package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/textaudit/collector/internal/models"
	"github.com/textaudit/collector/internal/repositories"
	"github.com/textaudit/collector/internal/shared"
	"github.com/textaudit/collector/internal/sources"
	"github.com/textaudit/collector/internal/tasks"
)

func setupServer(t *testing.T) (*httptest.Server, *repositories.Store, *tasks.Orchestrator) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	store := repositories.NewStore(db)
	logger := shared.NewLogger(os.Stderr)
	orchestrator := tasks.NewOrchestrator(store, sources.NewRegistry(sources.NewFileSource()), tasks.Options{Logger: logger})

	router := NewBasicRouter()
	router.Use(RequestID())
	router.Handler(NewCollectHandler(orchestrator, logger))
	router.Handler(NewHealthHandler(store))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, store, orchestrator
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestCollectHandler(t *testing.T) {
	t.Run("submit returns a task id", func(t *testing.T) {
		server, store, _ := setupServer(t)

		path := filepath.Join(t.TempDir(), "data.txt")
		if err := os.WriteFile(path, []byte("a line of collectable text\nanother collectable line\n"), 0644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}

		resp := postJSON(t, server.URL+"/api/v1/collect", CollectRequest{
			Source: models.Source{Kind: models.SourceKindFile, Locator: path},
			Config: models.CollectionConfig{MaxItems: 2},
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		body := decodeBody[CollectResponse](t, resp)
		if body.TaskID == "" {
			t.Fatal("expected a task id in the response")
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Error("expected a request id header")
		}

		// The task row exists immediately, before the run finishes.
		if _, err := store.GetTask(context.Background(), body.TaskID); err != nil {
			t.Errorf("task should be durable at submit time: %v", err)
		}
	})

	t.Run("unknown kind returns 400 invalid_source", func(t *testing.T) {
		server, _, _ := setupServer(t)

		resp := postJSON(t, server.URL+"/api/v1/collect", CollectRequest{
			Source: models.Source{Kind: "ftp", Locator: "ftp://host/file"},
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}

		body := decodeBody[ErrorResponse](t, resp)
		if body.Code != "invalid_source" {
			t.Errorf("expected invalid_source code, got %q", body.Code)
		}
	})

	t.Run("negative config returns 400 invalid_config", func(t *testing.T) {
		server, _, _ := setupServer(t)

		resp := postJSON(t, server.URL+"/api/v1/collect", CollectRequest{
			Source: models.Source{Kind: models.SourceKindFile, Locator: "/tmp/x.txt"},
			Config: models.CollectionConfig{MaxItems: -1},
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}

		body := decodeBody[ErrorResponse](t, resp)
		if body.Code != "invalid_config" {
			t.Errorf("expected invalid_config code, got %q", body.Code)
		}
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		server, _, _ := setupServer(t)

		resp, err := http.Post(server.URL+"/api/v1/collect", "application/json", strings.NewReader("{not json"))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("status returns a snapshot and eventually completes", func(t *testing.T) {
		server, _, _ := setupServer(t)

		path := filepath.Join(t.TempDir(), "data.txt")
		if err := os.WriteFile(path, []byte("a line of collectable text\nanother collectable line\n"), 0644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}

		submitted := decodeBody[CollectResponse](t, postJSON(t, server.URL+"/api/v1/collect", CollectRequest{
			Source: models.Source{Kind: models.SourceKindFile, Locator: path},
		}))

		var snap models.TaskSnapshot
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			resp, err := http.Get(server.URL + "/api/v1/status/" + submitted.TaskID)
			if err != nil {
				t.Fatalf("status request failed: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			snap = decodeBody[models.TaskSnapshot](t, resp)
			if snap.Status.Terminal() {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}

		if snap.Status != models.StatusCompleted {
			t.Fatalf("expected completed task, got %s (%s)", snap.Status, snap.ErrorMessage)
		}
		if snap.CollectedCount != 2 || snap.Progress != 100 {
			t.Errorf("unexpected counters: %+v", snap)
		}
	})

	t.Run("unknown task returns 404", func(t *testing.T) {
		server, _, _ := setupServer(t)

		resp, err := http.Get(server.URL + "/api/v1/status/no-such-task")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}

		body := decodeBody[ErrorResponse](t, resp)
		if body.Code != "task_not_found" {
			t.Errorf("expected task_not_found code, got %q", body.Code)
		}
	})

	t.Run("list paginates and clamps", func(t *testing.T) {
		server, store, _ := setupServer(t)
		ctx := context.Background()

		for i := 0; i < 30; i++ {
			task := models.NewCollectionTask(0, models.SourceKindFile, fmt.Sprintf("/tmp/%d.txt", i), models.CollectionConfig{})
			if err := store.CreateTask(ctx, task); err != nil {
				t.Fatalf("failed to seed task: %v", err)
			}
		}

		resp, err := http.Get(server.URL + "/api/v1/tasks?page=2&page_size=10")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		result := decodeBody[tasks.ListResult](t, resp)
		if len(result.Tasks) != 10 || result.Page != 2 || result.Total != 30 || result.TotalPages != 3 {
			t.Errorf("unexpected page: tasks=%d page=%d total=%d pages=%d",
				len(result.Tasks), result.Page, result.Total, result.TotalPages)
		}

		resp, err = http.Get(server.URL + "/api/v1/tasks?page=0&page_size=100000")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		clamped := decodeBody[tasks.ListResult](t, resp)
		if clamped.Page != 1 || clamped.PageSize != 100 {
			t.Errorf("expected clamped pagination, got page=%d size=%d", clamped.Page, clamped.PageSize)
		}
	})

	t.Run("wrong method returns 405", func(t *testing.T) {
		server, _, _ := setupServer(t)

		resp, err := http.Get(server.URL + "/api/v1/collect")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", resp.StatusCode)
		}
	})
}
