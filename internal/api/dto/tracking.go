package dto

import "time"

type TrackingRequest struct {
	RouteID string  `json:"route_id"`
	StopID  string  `json:"stop_id"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type TrackingPingResponse struct {
	ID         int64     `json:"id"`
	RouteID    string    `json:"route_id"`
	StopID     string    `json:"stop_id,omitempty"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	RecordedAt time.Time `json:"recorded_at"`
}

type ListTrackingResponse struct {
	Pings []TrackingPingResponse `json:"pings"`
}
