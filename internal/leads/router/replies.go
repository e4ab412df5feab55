package router

import (
	"fmt"
	"strings"

	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/studio"
)

const (
	fallbackReply          = "Thanks for your message! Someone from the studio will get back to you shortly."
	busyReply              = "Got it, give me just a moment and I'll get right back to you."
	cancelFailedReply      = "Sorry, I couldn't update your booking just now. Someone from the studio will confirm the change with you shortly."
	nothingToCancelReply   = "You don't have anything booked with us right now, so there's nothing to cancel."
	holdFailedReply        = "Sorry, I couldn't lock that time in just now. Someone from the studio will follow up to get you booked."
	noSlotsReply           = "I don't have open consult times that match right now. Someone from the studio will reach out with more options."
	rescheduleReleased     = "No problem, I've released your previous time."
	rescheduleNothingHeld  = "No problem."
	depositPaidBookedReply = "Your deposit is already on file and your consult is booked, so there's nothing else to pay right now."
	depositPaidPrefix      = "Your deposit is already on file, so no new link is needed."
	depositNoHoldPrefix    = "The deposit link comes as soon as you pick a consult time."
	depositPendingReply    = "Your deposit link is on its way, I'll send it over shortly."
)

func cancelledReply(depositPaid bool) string {
	msg := "Done, your consult has been cancelled."
	if depositPaid {
		msg += " Your deposit stays on file for when you're ready to rebook."
	}
	return msg + " Just message us whenever you'd like to pick a new time."
}

func offerReply(offered []domain.Slot, roster *studio.Roster) string {
	var b strings.Builder
	b.WriteString("Here are the next openings:")
	writeSlots(&b, offered, roster)
	b.WriteString("\nReply with the option number that works best.")
	return b.String()
}

func clarifyReply(offered []domain.Slot, roster *studio.Roster) string {
	var b strings.Builder
	b.WriteString("Just to make sure I book the right one, which of these works for you?")
	writeSlots(&b, offered, roster)
	b.WriteString("\nReply with the option number, or tell me another day and I'll look.")
	return b.String()
}

func writeSlots(b *strings.Builder, offered []domain.Slot, roster *studio.Roster) {
	for i, s := range offered {
		display := s.Display
		if display == "" {
			display = domain.FormatSlot(s.Start, s.Start.Location())
		}
		fmt.Fprintf(b, "\n%d) %s", i+1, display)
		if roster == nil {
			continue
		}
		if a, ok := roster.Artist(s.ArtistID); ok && a.Name != "" {
			fmt.Fprintf(b, " with %s", a.Name)
		}
		if t, ok := roster.Translator(s.TranslatorID); ok && t.Name != "" {
			fmt.Fprintf(b, " (interpreter: %s)", t.Name)
		}
	}
}

func holdAlreadyOpenReply(display, depositURL string) string {
	msg := fmt.Sprintf("You're already holding %s.", display)
	if depositURL != "" {
		msg += " You can lock it in with the deposit here: " + depositURL
	}
	return msg + " If you'd rather change it, just say reschedule."
}

func depositResendReply(amount, url string) string {
	return fmt.Sprintf("Here's your %s deposit link again: %s", amount, url)
}

func depositLinkReply(amount, url string) string {
	return fmt.Sprintf("Here's your %s deposit link to lock in your consult: %s", amount, url)
}

func consultChoiceReply(mode domain.ConsultMode) string {
	if mode == domain.ConsultModeMessage {
		return "Perfect, we'll do your consult over messages."
	}
	return "Perfect, we'll set up a video consult."
}

// nextIntakeQuestion returns the question for the first missing intake answer.
func nextIntakeQuestion(s domain.CanonicalState) (string, bool) {
	switch {
	case !s.Summary.IsSet():
		return "What tattoo do you have in mind?", true
	case !s.Placement.IsSet():
		return "Where on your body are you thinking of placing it?", true
	case !s.HasSize():
		return "Roughly how big would you like it? It's fine if you'd rather the artist guide the size.", true
	case !s.Timeline.IsSet():
		return "When are you hoping to get tattooed?", true
	}
	return "", false
}

func processFAQReply(amount string) string {
	return fmt.Sprintf("Here's how it works: you start with a short consult with your artist, over messages or video. "+
		"A %s deposit secures your consult time and goes toward your tattoo. "+
		"Pricing depends on size, placement and detail, and your artist will give you a quote at the consult.", amount)
}
