package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"sameday-dispatch-service/internal/domain"
)

func newTestRouteService(t *testing.T, handler http.Handler) *ORSRouteService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &ORSRouteService{client: &orsClient{
		session: srv.Client(),
		apiKey:  "test-key",
		baseURL: srv.URL,
		profile: "driving-car",
	}}
}

func TestOptimizeWaypointsDecodesJobOrder(t *testing.T) {
	svc := newTestRouteService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/optimization" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req optimizationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Jobs) != 3 || req.Jobs[0].ID != 1 {
			t.Errorf("jobs = %+v", req.Jobs)
		}
		if len(req.Vehicles) != 1 || req.Vehicles[0].Profile != "driving-car" {
			t.Errorf("vehicles = %+v", req.Vehicles)
		}

		w.Write([]byte(`{"routes":[{"distance":8421.6,"duration":1310.2,"steps":[
			{"type":"start"},
			{"type":"job","job":3,"distance":2000,"duration":300},
			{"type":"job","job":1,"distance":3000,"duration":450},
			{"type":"job","job":2,"distance":3400,"duration":560},
			{"type":"end"}
		]}]}`))
	}))

	waypoints := []domain.Coordinates{
		{Lon: -112.01, Lat: 33.01},
		{Lon: -112.02, Lat: 33.02},
		{Lon: -112.03, Lat: 33.03},
	}
	metrics, err := svc.OptimizeWaypoints(context.Background(),
		domain.Coordinates{Lon: -112, Lat: 33}, domain.Coordinates{Lon: -112, Lat: 33}, waypoints)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{2, 0, 1}
	if len(metrics.WaypointOrder) != len(want) {
		t.Fatalf("order = %v, want %v", metrics.WaypointOrder, want)
	}
	for i := range want {
		if metrics.WaypointOrder[i] != want[i] {
			t.Fatalf("order = %v, want %v", metrics.WaypointOrder, want)
		}
	}
	if metrics.DistanceMeters != 8422 || metrics.DurationSeconds != 1310 {
		t.Errorf("metrics = %d/%d, want 8422/1310", metrics.DistanceMeters, metrics.DurationSeconds)
	}
	if len(metrics.Legs) != 3 || metrics.Legs[0].DistanceMeters != 2000 {
		t.Errorf("legs = %+v", metrics.Legs)
	}
}

func TestOptimizeWaypointsRejectsUnassigned(t *testing.T) {
	svc := newTestRouteService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"routes":[{"steps":[{"type":"job","job":1}]}],"unassigned":[{"id":2}]}`))
	}))

	_, err := svc.OptimizeWaypoints(context.Background(),
		domain.Coordinates{}, domain.Coordinates{},
		[]domain.Coordinates{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 2}})
	if domain.KindOf(err) != domain.KindCollaborator {
		t.Fatalf("error kind = %v, want collaborator", domain.KindOf(err))
	}
}

func TestComputeFixedRouteDecodesSummary(t *testing.T) {
	svc := newTestRouteService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/directions/driving-car" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"routes":[{
			"summary":{"distance":5120.4,"duration":940.7},
			"segments":[{"distance":2120.4,"duration":400.7},{"distance":3000,"duration":540}],
			"geometry":"encoded-polyline"
		}]}`))
	}))

	metrics, err := svc.ComputeFixedRoute(context.Background(),
		domain.Coordinates{Lon: -112, Lat: 33}, domain.Coordinates{Lon: -112.05, Lat: 33.05},
		[]domain.Coordinates{{Lon: -112.01, Lat: 33.01}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if metrics.DistanceMeters != 5120 || metrics.DurationSeconds != 941 {
		t.Errorf("metrics = %d/%d, want 5120/941", metrics.DistanceMeters, metrics.DurationSeconds)
	}
	if metrics.Polyline != "encoded-polyline" {
		t.Errorf("polyline = %q", metrics.Polyline)
	}
	if len(metrics.Legs) != 2 {
		t.Errorf("legs = %+v", metrics.Legs)
	}
	for i, idx := range metrics.WaypointOrder {
		if idx != i {
			t.Errorf("fixed route order must be identity, got %v", metrics.WaypointOrder)
		}
	}
}

func TestDoWithRetryRecoversFromServerErrors(t *testing.T) {
	var hits int64
	client := &orsClient{
		apiKey:  "test-key",
		profile: "driving-car",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	client.session = srv.Client()
	client.baseURL = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.doWithRetry(ctx, func() (*http.Request, error) {
		return client.newRequest(ctx, http.MethodGet, client.baseURL+"/geocode/search", nil)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if got := atomic.LoadInt64(&hits); got != 3 {
		t.Fatalf("upstream hits = %d, want 3", got)
	}
}

func TestDoWithRetryGivesUpOnClientErrors(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	client := &orsClient{session: srv.Client(), apiKey: "bad-key", baseURL: srv.URL, profile: "driving-car"}

	_, err := client.doWithRetry(context.Background(), func() (*http.Request, error) {
		return client.newRequest(context.Background(), http.MethodGet, client.baseURL+"/geocode/search", nil)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt64(&hits); got != 1 {
		t.Fatalf("upstream hits = %d, want 1 (no retry on 401)", got)
	}
}
