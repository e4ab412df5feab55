package appointments

import (
	"context"
	"strings"
	"testing"
)

func TestMeetingLinksAreStablePerAppointment(t *testing.T) {
	links := NewMeetingLinks("https://meet.studio.test/")
	first, err := links.CreateMeetingLink(context.Background(), "appt-1")
	if err != nil {
		t.Fatalf("CreateMeetingLink: %v", err)
	}
	again, _ := links.CreateMeetingLink(context.Background(), "appt-1")
	other, _ := links.CreateMeetingLink(context.Background(), "appt-2")

	if first != again || first == other {
		t.Fatalf("links: %s %s %s", first, again, other)
	}
	if !strings.HasPrefix(first, "https://meet.studio.test/consult-") {
		t.Fatalf("link = %s", first)
	}
	if _, err := links.CreateMeetingLink(context.Background(), " "); err == nil {
		t.Fatal("expected an error without appointment id")
	}
}

func TestMeetingLinksDisabledWithoutBaseURL(t *testing.T) {
	if NewMeetingLinks("  ") != nil {
		t.Fatal("expected nil without a base URL")
	}
}
