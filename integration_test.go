package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/barkbox/walkmarket/availability"
	"github.com/barkbox/walkmarket/config"
	"github.com/barkbox/walkmarket/core"
	"github.com/barkbox/walkmarket/geo"
	"github.com/barkbox/walkmarket/redisclient"
	"github.com/barkbox/walkmarket/router"
	"github.com/barkbox/walkmarket/storage/sqlite"
	"github.com/barkbox/walkmarket/store"
	"github.com/barkbox/walkmarket/tenant"
	"github.com/barkbox/walkmarket/travelcache"
)

// Integration tests require a running Redis and are skipped by default.
// To run them locally set RUN_WALKMARKET_INTEGRATION=1 and start Redis via docker-compose.
func TestIntegrationMigrateRedisAndHTTPBoot(t *testing.T) {
	if os.Getenv("RUN_WALKMARKET_INTEGRATION") != "1" {
		t.Skip("integration tests skipped; set RUN_WALKMARKET_INTEGRATION=1 to run")
	}

	cfg := config.Load()
	log := zerolog.New(io.Discard)
	ctx := context.Background()

	rc, err := redisclient.New(cfg)
	if err != nil {
		t.Fatalf("redisclient.New: %v", err)
	}
	if err := redisclient.Ping(rc); err != nil {
		t.Fatalf("redis ping failed — is Redis running via docker-compose? %v", err)
	}

	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("sqlite.Open (applies embedded migrations): %v", err)
	}
	defer db.Close()

	org := uuid.New()
	walker := uuid.New()
	location := uuid.New()

	monday := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	if err := db.UpsertWorkingHours(ctx, org, walker, monday.Weekday(), availability.DayHours{
		StartHour: 9, StartMinute: 0, EndHour: 17, EndMinute: 0,
	}); err != nil {
		t.Fatalf("seeding working hours: %v", err)
	}
	coords, err := geo.NewCoordinates(39.74, -104.99)
	if err != nil {
		t.Fatalf("building coordinates: %v", err)
	}
	if err := db.UpsertLocation(ctx, org, location, coords); err != nil {
		t.Fatalf("seeding location: %v", err)
	}

	pool := tenant.NewPoolCache(func(orgID uuid.UUID) (store.Store, error) { return db, nil })
	travelCache := travelcache.New(travelcache.DefaultConfig(), rc)
	registry := core.NewRegistry(pool, travelCache, nil, log, core.DefaultConfig())

	srv := httptest.NewServer(router.NewRouter(cfg, log, registry, nil, nil))
	defer srv.Close()

	healthResp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer healthResp.Body.Close()
	if healthResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /healthz, got %d", healthResp.StatusCode)
	}

	url := fmt.Sprintf("%s/v1/availability?walker_id=%s&location_id=%s&date=%s&service_minutes=30",
		srv.URL, walker, location, monday.Format("2006-01-02"))
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Authorization", org.String()+".integration-test-secret")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /v1/availability: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200 from /v1/availability, got %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Slots []availability.Slot `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(payload.Slots) == 0 {
		t.Fatal("expected at least one bookable slot from the seeded working hours")
	}
}
