package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/textaudit/collector/internal/models"
)

func TestAPISource(t *testing.T) {
	t.Run("pages through next_url envelopes", func(t *testing.T) {
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page := r.URL.Query().Get("page")
			switch page {
			case "", "1":
				json.NewEncoder(w).Encode(map[string]any{
					"data":     []string{"first page item one", "first page item two"},
					"has_more": true,
					"next_url": server.URL + "/?page=2",
				})
			case "2":
				json.NewEncoder(w).Encode(map[string]any{
					"data":     []string{"second page item one"},
					"has_more": false,
				})
			default:
				http.NotFound(w, r)
			}
		}))
		defer server.Close()

		source := NewAPISource(server.Client(), 1000, "test-agent")
		items := collectAll(t, source, models.Source{Kind: models.SourceKindAPI, Locator: server.URL}, models.CollectionConfig{})

		if len(items) != 3 {
			t.Fatalf("expected 3 items across pages, got %d", len(items))
		}
		if items[2].Content != "second page item one" {
			t.Errorf("unexpected last item: %q", items[2].Content)
		}
		if items[0].Metadata["page"] != "1" || items[2].Metadata["page"] != "2" {
			t.Errorf("expected page metadata, got %+v and %+v", items[0].Metadata, items[2].Metadata)
		}
	})

	t.Run("pages via page_param when has_more is set", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page := r.URL.Query().Get("p")
			if page == "" {
				page = "1"
			}
			hasMore := page == "1"
			json.NewEncoder(w).Encode(map[string]any{
				"data":     []string{fmt.Sprintf("item from page %s of the feed", page)},
				"has_more": hasMore,
			})
		}))
		defer server.Close()

		source := NewAPISource(server.Client(), 1000, "")
		items := collectAll(t, source, models.Source{Kind: models.SourceKindAPI, Locator: server.URL}, models.CollectionConfig{
			Options: map[string]string{"page_param": "p"},
		})

		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
	})

	t.Run("accepts a bare JSON array", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]string{"bare array entry one", "bare array entry two"})
		}))
		defer server.Close()

		source := NewAPISource(server.Client(), 1000, "")
		items := collectAll(t, source, models.Source{Kind: models.SourceKindAPI, Locator: server.URL}, models.CollectionConfig{})

		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
	})

	t.Run("extracts text from object entries", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{"id": 1, "content": "object content text"},
					{"id": 2, "comment": "object comment text"},
				},
			})
		}))
		defer server.Close()

		source := NewAPISource(server.Client(), 1000, "")
		items := collectAll(t, source, models.Source{Kind: models.SourceKindAPI, Locator: server.URL}, models.CollectionConfig{})

		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		if items[0].Content != "object content text" {
			t.Errorf("unexpected first item: %q", items[0].Content)
		}
	})

	t.Run("stops at max items mid page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"data": []string{"entry number one", "entry number two", "entry number three"},
			})
		}))
		defer server.Close()

		source := NewAPISource(server.Client(), 1000, "")
		items := collectAll(t, source, models.Source{Kind: models.SourceKindAPI, Locator: server.URL}, models.CollectionConfig{MaxItems: 2})

		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
	})

	t.Run("server error returns adapter failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		source := NewAPISource(server.Client(), 1000, "")
		out := make(chan models.RawItem, 10)
		err := source.Collect(context.Background(), models.Source{Kind: models.SourceKindAPI, Locator: server.URL}, models.CollectionConfig{}, out)
		if err == nil {
			t.Fatal("expected error for 500 response")
		}
	})

	t.Run("invalid locator returns adapter failure", func(t *testing.T) {
		source := NewAPISource(nil, 1000, "")
		out := make(chan models.RawItem, 1)
		err := source.Collect(context.Background(), models.Source{Kind: models.SourceKindAPI, Locator: "://bad"}, models.CollectionConfig{}, out)
		if err == nil {
			t.Fatal("expected error for invalid URL")
		}
	})

	t.Run("sends configured user agent", func(t *testing.T) {
		var gotAgent string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAgent = r.Header.Get("User-Agent")
			json.NewEncoder(w).Encode(map[string]any{"data": []string{}})
		}))
		defer server.Close()

		source := NewAPISource(server.Client(), 1000, "collector-test/1.0")
		collectAll(t, source, models.Source{Kind: models.SourceKindAPI, Locator: server.URL}, models.CollectionConfig{})

		if gotAgent != "collector-test/1.0" {
			t.Errorf("expected user agent header, got %q", gotAgent)
		}
	})
}

func TestClientCredentials(t *testing.T) {
	t.Run("nil without full options", func(t *testing.T) {
		if clientCredentials(map[string]string{"client_id": "x"}) != nil {
			t.Error("expected nil config without secret and token url")
		}
	})

	t.Run("builds config with scopes", func(t *testing.T) {
		cc := clientCredentials(map[string]string{
			"client_id":     "id",
			"client_secret": "secret",
			"token_url":     "https://auth.example.com/token",
			"scopes":        "read,write",
		})
		if cc == nil {
			t.Fatal("expected config")
		}
		if cc.ClientID != "id" || cc.TokenURL != "https://auth.example.com/token" {
			t.Errorf("unexpected config: %+v", cc)
		}
		if len(cc.Scopes) != 2 {
			t.Errorf("expected 2 scopes, got %v", cc.Scopes)
		}
	})
}
