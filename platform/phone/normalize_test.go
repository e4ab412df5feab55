package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := map[string]string{
		"(415) 555-2671":  "+14155552671",
		"+44 20 7946 0958": "+442079460958",
		"  ":               "",
		"not a number":     "not a number",
	}
	for in, want := range cases {
		if got := NormalizeE164(in); got != want {
			t.Errorf("NormalizeE164(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMessageableAndJID(t *testing.T) {
	if Messageable("12") {
		t.Fatal("short input must not be messageable")
	}
	if !Messageable("415-555-2671") {
		t.Fatal("valid US number must be messageable")
	}
	if got := WhatsAppJID("415-555-2671"); got != "14155552671@s.whatsapp.net" {
		t.Fatalf("unexpected jid %q", got)
	}
}
