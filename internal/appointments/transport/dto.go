package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateAvailabilityRuleRequest opens a weekly window on a calendar resource.
type CreateAvailabilityRuleRequest struct {
	ResourceID string `json:"resourceId" validate:"required,max=200"`
	Weekday    int    `json:"weekday" validate:"min=0,max=6"`
	StartTime  string `json:"startTime" validate:"required"`
	EndTime    string `json:"endTime" validate:"required"`
	Timezone   string `json:"timezone,omitempty" validate:"max=64"`
}

// ListAvailabilityRulesRequest filters rules by resource.
type ListAvailabilityRulesRequest struct {
	ResourceID string `form:"resourceId"`
}

// AvailabilityRuleResponse is one weekly window.
type AvailabilityRuleResponse struct {
	ID         uuid.UUID `json:"id"`
	ResourceID string    `json:"resourceId"`
	Weekday    int       `json:"weekday"`
	StartTime  string    `json:"startTime"`
	EndTime    string    `json:"endTime"`
	Timezone   string    `json:"timezone"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FreeSlotsRequest asks for open consult windows on a resource.
type FreeSlotsRequest struct {
	ResourceID string    `form:"resourceId" validate:"required"`
	From       time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00" validate:"required"`
	To         time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00" validate:"required,gtfield=From"`
	Minutes    int       `form:"minutes" validate:"omitempty,min=5,max=480"`
}

// TimeSlot is one open window.
type TimeSlot struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// FreeSlotsResponse lists open windows.
type FreeSlotsResponse struct {
	ResourceID string     `json:"resourceId"`
	Slots      []TimeSlot `json:"slots"`
}
