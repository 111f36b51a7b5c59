package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bountyboard/internal/config"
	"bountyboard/internal/models"
	"bountyboard/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Mock user middleware for testing
func mockAuthMiddleware(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	}
}

// newTestApp mirrors the server's fiber config so handler errors render
// as the same JSON shape.
func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
}

func testCategories(t *testing.T) *config.Categories {
	t.Helper()
	path := filepath.Join(t.TempDir(), "categories.yaml")
	yaml := `categories:
  - slug: errands
    name: Errands
  - slug: tech
    name: Tech Help
fees:
  platform_fee_percent: 7.5
  min_fee_cents: 50
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write categories file: %v", err)
	}
	cats, err := config.LoadCategories(path)
	if err != nil {
		t.Fatalf("LoadCategories: %v", err)
	}
	return cats
}

func testCache(t *testing.T, online bool) (*services.CacheService, *services.SQLiteStore, *services.NetworkMonitor) {
	t.Helper()
	store, err := services.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	network := services.NewNetworkMonitor("http://127.0.0.1:1/health", time.Hour)
	network.SetOnline(online)
	return services.NewCacheService(store, network, time.Hour), store, network
}

func TestBountyHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name           string
		userID         string
		body           interface{}
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "missing user ID",
			userID:         "",
			body:           models.CreateBountyRequest{Title: "Walk my dog", Category: "errands"},
			expectedStatus: fiber.StatusUnauthorized,
			expectedError:  "Authentication required",
		},
		{
			name:           "invalid JSON body",
			userID:         "user-123",
			body:           "not json",
			expectedStatus: fiber.StatusBadRequest,
			expectedError:  "Invalid request body",
		},
		{
			name:           "unknown category",
			userID:         "user-123",
			body:           models.CreateBountyRequest{Title: "Walk my dog", Category: "plumbing"},
			expectedStatus: fiber.StatusBadRequest,
			expectedError:  "Unknown category: plumbing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp()
			app.Use(mockAuthMiddleware(tt.userID))

			// Validation runs before any service call, so nil services are safe here
			handler := &BountyHandler{categories: testCategories(t)}
			app.Post("/bounties", handler.Create)

			var body []byte
			var err error
			if str, ok := tt.body.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.body)
				if err != nil {
					t.Fatalf("Failed to marshal body: %v", err)
				}
			}

			req := httptest.NewRequest("POST", "/bounties", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, resp.StatusCode)
			}

			respBody, _ := io.ReadAll(resp.Body)
			var result map[string]string
			json.Unmarshal(respBody, &result)

			if result["error"] != tt.expectedError {
				t.Errorf("Expected error %q, got %q", tt.expectedError, result["error"])
			}
		})
	}
}

func TestBountyHandler_List_OfflineNoCache(t *testing.T) {
	cache, _, _ := testCache(t, false)

	app := newTestApp()
	handler := &BountyHandler{cache: cache}
	app.Get("/bounties", handler.List)

	req := httptest.NewRequest("GET", "/bounties", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", fiber.StatusServiceUnavailable, resp.StatusCode)
	}
}

func TestBountyHandler_List_OfflineServesCachedFeed(t *testing.T) {
	cache, store, _ := testCache(t, false)

	// Stale cached feed; offline still serves it without a backend
	now := time.Now()
	cached := []byte(`[{"id":"1","title":"Walk my dog","status":"open"}]`)
	err := store.Set(&services.CacheEntry{
		Key:       "bounties:open",
		Data:      cached,
		Timestamp: now.Add(-48 * time.Hour),
		ExpiresAt: now.Add(-47 * time.Hour),
	})
	if err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	app := newTestApp()
	handler := &BountyHandler{cache: cache}
	app.Get("/bounties", handler.List)

	req := httptest.NewRequest("GET", "/bounties", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	respBody, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(respBody, cached) {
		t.Errorf("Expected cached feed bytes, got %s", respBody)
	}
}

func TestBountyHandler_Categories(t *testing.T) {
	app := newTestApp()
	handler := &BountyHandler{categories: testCategories(t)}
	app.Get("/categories", handler.Categories)

	resp, err := app.Test(httptest.NewRequest("GET", "/categories", nil), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	// Decode into loose maps so the wire key casing is asserted too
	var result struct {
		Categories []map[string]interface{} `json:"categories"`
		Fees       map[string]interface{}   `json:"fees"`
	}
	respBody, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(respBody, &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(result.Categories) != 2 {
		t.Fatalf("Expected 2 categories, got %d", len(result.Categories))
	}
	if result.Categories[0]["slug"] != "errands" {
		t.Errorf("Expected snake_case slug key, got %v", result.Categories[0])
	}
	if _, ok := result.Fees["platform_fee_percent"]; !ok {
		t.Errorf("Expected snake_case fee keys, got %v", result.Fees)
	}
}
