package holds

import (
	"fmt"
	"strings"
	"time"
)

// FormatAmount renders a deposit amount for a message, e.g. "$100" or "75.50 EUR".
func FormatAmount(cents int64, currency string) string {
	major := fmt.Sprintf("%d", cents/100)
	if cents%100 != 0 {
		major = fmt.Sprintf("%d.%02d", cents/100, cents%100)
	}
	if strings.EqualFold(currency, "usd") || currency == "" {
		return "$" + major
	}
	return major + " " + strings.ToUpper(currency)
}

func withArtist(display, artist string) string {
	if artist == "" {
		return display
	}
	return display + " with " + artist
}

func holdMessage(display, artist, videoLink, depositURL, amount string, ttl time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Great, I'm holding %s for you.", withArtist(display, artist))
	if depositURL != "" {
		fmt.Fprintf(&b, " To lock it in, please pay the %s consult deposit here: %s", amount, depositURL)
		fmt.Fprintf(&b, " The hold lasts %d minutes.", int(ttl.Minutes()))
	} else {
		fmt.Fprintf(&b, " Your %s deposit link is coming shortly.", amount)
	}
	if videoLink != "" {
		fmt.Fprintf(&b, " Video link for the consult: %s", videoLink)
	}
	return b.String()
}

func bookedMessage(display, artist, videoLink string) string {
	msg := fmt.Sprintf("You're booked for %s. Your deposit is already on file, so nothing else is needed.", withArtist(display, artist))
	if videoLink != "" {
		msg += " Video link: " + videoLink
	}
	return msg
}

func confirmedMessage(display, artist, videoLink string) string {
	msg := fmt.Sprintf("Deposit received, thank you! Your consult on %s is confirmed.", withArtist(display, artist))
	if videoLink != "" {
		msg += " Video link: " + videoLink
	}
	return msg
}

func depositNoHoldMessage() string {
	return "Deposit received, thank you! Let me know which day works and I'll send you some consult times."
}

func warningMessage(display string, remaining time.Duration, depositURL string) string {
	minutes := int(remaining.Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	msg := fmt.Sprintf("Just a heads up: your hold for %s expires in %d minutes.", display, minutes)
	if depositURL != "" {
		msg += " You can secure it with the deposit here: " + depositURL
	}
	return msg
}

func expiredMessage(display string) string {
	return fmt.Sprintf("Your hold for %s has expired and the time has been released. Reply anytime and I'll find you new options.", display)
}

func retriedLinkMessage(amount, url string) string {
	return fmt.Sprintf("Here is your %s deposit link to lock in your consult: %s", amount, url)
}
