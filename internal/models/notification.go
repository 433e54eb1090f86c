// internal/models/notification.go
package models

import "time"

// Notification priorities.
const (
	NotificationPriorityNormal = "normal"
	NotificationPriorityHigh   = "high"
)

// Notification types dispatched by the marketplace core.
const (
	NotificationTypeNewApplication    = "new_application"
	NotificationTypeOpportunityClosed = "opportunity_closed"
	NotificationTypeStatusChanged     = "application_status_changed"
)

type Notification struct {
	ID            string     `json:"id"`
	RecipientID   string     `json:"recipientId"`
	Type          string     `json:"type"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	Priority      string     `json:"priority"`
	OpportunityID string     `json:"opportunityId,omitempty"`
	ApplicationID string     `json:"applicationId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	ReadAt        *time.Time `json:"readAt,omitempty"`
}
