package appointments

import (
	"context"
	"strings"

	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/platform/apperr"

	"github.com/google/uuid"
)

var roomNamespace = uuid.MustParse("6f1c1a52-8d7e-4b0f-9b55-3f4c2f7a9e10")

// MeetingLinks builds video-room links for appointment consults. The room id
// is derived from the appointment so asking twice returns the same link.
type MeetingLinks struct {
	baseURL string
}

// NewMeetingLinks returns nil when no video base URL is configured.
func NewMeetingLinks(baseURL string) *MeetingLinks {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	return &MeetingLinks{baseURL: baseURL}
}

var _ ports.VideoLinks = (*MeetingLinks)(nil)

func (m *MeetingLinks) CreateMeetingLink(_ context.Context, appointmentID string) (string, error) {
	if strings.TrimSpace(appointmentID) == "" {
		return "", apperr.Validation("appointment id is required")
	}
	room := uuid.NewSHA1(roomNamespace, []byte(appointmentID))
	return m.baseURL + "/consult-" + room.String(), nil
}
