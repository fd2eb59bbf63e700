package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"sameday-dispatch-service/internal/domain"
	"sameday-dispatch-service/internal/platform/obs"
	"sameday-dispatch-service/internal/ports"
)

// ORSRouteService implements the RouteOptimizer port: waypoint
// reordering via the ORS optimization endpoint and fixed-sequence
// metrics via the directions endpoint.
type ORSRouteService struct {
	client *orsClient
}

func NewORSRouteService(apiKey string) (*ORSRouteService, error) {
	client, err := newORSClient(apiKey)
	if err != nil {
		return nil, err
	}
	return &ORSRouteService{client: client}, nil
}

type optimizationRequest struct {
	Jobs     []optimizationJob     `json:"jobs"`
	Vehicles []optimizationVehicle `json:"vehicles"`
}

type optimizationJob struct {
	ID       int       `json:"id"`
	Location []float64 `json:"location"`
}

type optimizationVehicle struct {
	ID      int       `json:"id"`
	Profile string    `json:"profile"`
	Start   []float64 `json:"start"`
	End     []float64 `json:"end"`
}

type optimizationResponse struct {
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Steps    []struct {
			Type     string  `json:"type"`
			Job      int     `json:"job"`
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"steps"`
	} `json:"routes"`
	Unassigned []struct {
		ID int `json:"id"`
	} `json:"unassigned"`
}

// OptimizeWaypoints asks the optimization endpoint to reorder the
// waypoints between origin and destination for shortest travel. Job
// ids are waypoint indices shifted by one (the endpoint requires
// positive ids).
func (o *ORSRouteService) OptimizeWaypoints(
	ctx context.Context,
	origin, destination domain.Coordinates,
	waypoints []domain.Coordinates,
) (_ ports.RouteMetrics, err error) {
	defer obs.Time(ctx, "ors.OptimizeWaypoints")(&err)

	if len(waypoints) == 0 {
		return ports.RouteMetrics{}, nil
	}

	jobs := make([]optimizationJob, len(waypoints))
	for i, wp := range waypoints {
		jobs[i] = optimizationJob{ID: i + 1, Location: wp.CoordsToList()}
	}

	bodyObj := optimizationRequest{
		Jobs: jobs,
		Vehicles: []optimizationVehicle{{
			ID:      1,
			Profile: o.client.profile,
			Start:   origin.CoordsToList(),
			End:     destination.CoordsToList(),
		}},
	}

	payload, err := json.Marshal(bodyObj)
	if err != nil {
		return ports.RouteMetrics{}, fmt.Errorf("marshal optimization request: %w", err)
	}

	endpoint := o.client.baseURL + "/optimization"
	resp, err := o.client.doWithRetry(ctx, func() (*http.Request, error) {
		return o.client.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return ports.RouteMetrics{}, domain.CollaboratorErr("optimization request failed", err)
	}
	defer resp.Body.Close()

	var decoded optimizationResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.RouteMetrics{}, domain.CollaboratorErr("decode optimization response", err)
	}

	if len(decoded.Routes) != 1 {
		return ports.RouteMetrics{}, domain.CollaboratorErr(
			fmt.Sprintf("expected 1 optimized route, got %d", len(decoded.Routes)), nil)
	}
	if len(decoded.Unassigned) > 0 {
		return ports.RouteMetrics{}, domain.CollaboratorErr(
			fmt.Sprintf("optimizer left %d waypoints unassigned", len(decoded.Unassigned)), nil)
	}

	route := decoded.Routes[0]
	order := make([]int, 0, len(waypoints))
	legs := make([]ports.RouteLeg, 0, len(route.Steps))
	for _, step := range route.Steps {
		if step.Type != "job" {
			continue
		}
		idx := step.Job - 1
		if idx < 0 || idx >= len(waypoints) {
			return ports.RouteMetrics{}, domain.CollaboratorErr(
				fmt.Sprintf("optimizer returned unknown job id %d", step.Job), nil)
		}
		order = append(order, idx)
		legs = append(legs, ports.RouteLeg{
			DistanceMeters:  int(math.Round(step.Distance)),
			DurationSeconds: int(math.Round(step.Duration)),
		})
	}

	if len(order) != len(waypoints) {
		return ports.RouteMetrics{}, domain.CollaboratorErr(
			fmt.Sprintf("optimizer returned %d of %d waypoints", len(order), len(waypoints)), nil)
	}

	return ports.RouteMetrics{
		WaypointOrder:   order,
		Legs:            legs,
		DistanceMeters:  int(math.Round(route.Distance)),
		DurationSeconds: int(math.Round(route.Duration)),
	}, nil
}

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
		Segments []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"segments"`
		Geometry string `json:"geometry"`
	} `json:"routes"`
}

// ComputeFixedRoute returns aggregate metrics and geometry for an
// already-decided visiting sequence.
func (o *ORSRouteService) ComputeFixedRoute(
	ctx context.Context,
	origin, destination domain.Coordinates,
	waypoints []domain.Coordinates,
) (_ ports.RouteMetrics, err error) {
	defer obs.Time(ctx, "ors.ComputeFixedRoute")(&err)

	coords := make([][]float64, 0, len(waypoints)+2)
	coords = append(coords, origin.CoordsToList())
	for _, wp := range waypoints {
		coords = append(coords, wp.CoordsToList())
	}
	coords = append(coords, destination.CoordsToList())

	payload, err := json.Marshal(directionsRequest{Coordinates: coords})
	if err != nil {
		return ports.RouteMetrics{}, fmt.Errorf("marshal directions request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/directions/%s", o.client.baseURL, o.client.profile)
	resp, err := o.client.doWithRetry(ctx, func() (*http.Request, error) {
		return o.client.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return ports.RouteMetrics{}, domain.CollaboratorErr("directions request failed", err)
	}
	defer resp.Body.Close()

	var decoded directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.RouteMetrics{}, domain.CollaboratorErr("decode directions response", err)
	}

	if len(decoded.Routes) == 0 {
		return ports.RouteMetrics{}, domain.CollaboratorErr("directions returned no routes", nil)
	}

	route := decoded.Routes[0]
	order := make([]int, len(waypoints))
	for i := range order {
		order[i] = i
	}
	legs := make([]ports.RouteLeg, 0, len(route.Segments))
	for _, seg := range route.Segments {
		legs = append(legs, ports.RouteLeg{
			DistanceMeters:  int(math.Round(seg.Distance)),
			DurationSeconds: int(math.Round(seg.Duration)),
		})
	}

	return ports.RouteMetrics{
		WaypointOrder:   order,
		Legs:            legs,
		DistanceMeters:  int(math.Round(route.Summary.Distance)),
		DurationSeconds: int(math.Round(route.Summary.Duration)),
		Polyline:        route.Geometry,
	}, nil
}
