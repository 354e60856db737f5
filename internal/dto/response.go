package dto

import (
	"time"

	"github.com/proteus100/acme-training/internal/models"
)

type ReceivedResponse struct {
	Received bool   `json:"received"`
	Status   string `json:"status"`
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type StaleEventResponse struct {
	ID        uint      `json:"id"`
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

type StaleEventsResponse struct {
	Count  int                  `json:"count"`
	Events []StaleEventResponse `json:"events"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToStaleEventsResponse(events []models.WebhookEvent) StaleEventsResponse {
	resp := StaleEventsResponse{
		Count:  len(events),
		Events: make([]StaleEventResponse, len(events)),
	}
	for i, e := range events {
		resp.Events[i] = StaleEventResponse{
			ID:        e.ID,
			EventID:   e.EventID,
			Type:      e.Type,
			CreatedAt: e.CreatedAt,
		}
	}
	return resp
}
