package email

import (
	"strings"
	"testing"
)

func TestParagraphs(t *testing.T) {
	got := paragraphs("Here are the next openings:\n1) Tue\n2) Wed\n\n\nReply with a number.  ")
	if len(got) != 2 {
		t.Fatalf("paragraphs = %q", got)
	}
	if got[0] != "Here are the next openings:\n1) Tue\n2) Wed" || got[1] != "Reply with a number." {
		t.Fatalf("paragraphs = %q", got)
	}
}

func TestRenderMessageEscapesAndBreaksLines(t *testing.T) {
	html, err := renderEmailTemplate("message.html", messageEmailData{
		baseEmailData: baseEmailData{Title: "A message from Ink", Heading: "Ink"},
		Greeting:      greeting("Ana"),
		Paragraphs:    []string{"1) Tue <b>11am</b>\n2) Wed"},
		Signature:     "Ink",
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Hi Ana,", "1) Tue &lt;b&gt;11am&lt;/b&gt;<br>2) Wed", "<title>A message from Ink</title>"} {
		if !strings.Contains(html, want) {
			t.Errorf("missing %q in\n%s", want, html)
		}
	}
}

func TestSubjectFallsBackWithoutName(t *testing.T) {
	if got := (&SMTPSender{}).subject(); got != subjectFallback {
		t.Fatalf("subject = %q", got)
	}
	if got := (&SMTPSender{fromName: "Ink"}).subject(); got != "A message from Ink" {
		t.Fatalf("subject = %q", got)
	}
}

func TestBuildMessageRejectsBadAddress(t *testing.T) {
	s := &SMTPSender{fromName: "Ink", fromEmail: "studio@ink.test"}
	if _, err := s.buildMessage("not-an-address", "", "hi"); err == nil {
		t.Fatal("expected error for invalid recipient")
	}
	if _, err := s.buildMessage("ana@example.com", "Ana", "hi"); err != nil {
		t.Fatal(err)
	}
}
