package dto

import "time"

type CreateStopRequest struct {
	ScheduledDate string `json:"scheduled_date"`
	CustomerName  string `json:"customer_name"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Product       string `json:"product"`
	Category      string `json:"category"`
	ParcelSize    string `json:"parcel_size"`
	Priority      *int   `json:"priority"`
	WindowStart   string `json:"window_start"`
	WindowEnd     string `json:"window_end"`
	Kind          string `json:"kind"`
}

type StopResponse struct {
	ID              string    `json:"id"`
	ExternalOrderID string    `json:"external_order_id,omitempty"`
	ScheduledDate   string    `json:"scheduled_date"`
	CustomerName    string    `json:"customer_name"`
	Phone           string    `json:"phone,omitempty"`
	Address         string    `json:"address"`
	Lat             float64   `json:"lat"`
	Lon             float64   `json:"lon"`
	Product         string    `json:"product,omitempty"`
	Category        string    `json:"category,omitempty"`
	ParcelSize      string    `json:"parcel_size"`
	Priority        int       `json:"priority"`
	WindowStart     string    `json:"window_start,omitempty"`
	WindowEnd       string    `json:"window_end,omitempty"`
	Kind            string    `json:"kind"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ListStopsResponse struct {
	Stops []StopResponse `json:"stops"`
}

type ClearDateResponse struct {
	Notifications int `json:"notifications_removed"`
	TrackingPings int `json:"tracking_pings_removed"`
	Stops         int `json:"stops_removed"`
	Routes        int `json:"routes_removed"`
}
