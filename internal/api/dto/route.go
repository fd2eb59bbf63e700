package dto

import "time"

type OptimizeRequest struct {
	Date        string         `json:"date"`
	ManualOrder map[string]int `json:"manual_order"`
}

type SequenceEntryResponse struct {
	StopID   string `json:"stop_id"`
	Kind     string `json:"kind"`
	Position int    `json:"position"`
}

type RouteResponse struct {
	ID                   string                  `json:"id"`
	RouteDate            string                  `json:"route_date"`
	Status               string                  `json:"status"`
	TotalDistanceMeters  int                     `json:"total_distance_meters"`
	TotalDurationSeconds int                     `json:"total_duration_seconds"`
	EstimatedPriceCents  int                     `json:"estimated_price_cents"`
	Stops                []SequenceEntryResponse `json:"stops"`
	Archived             bool                    `json:"archived"`
	ArchivedAt           *time.Time              `json:"archived_at,omitempty"`
}

type ArchiveSweepResponse struct {
	Archived int `json:"archived"`
}
