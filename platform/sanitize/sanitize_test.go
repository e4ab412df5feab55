package sanitize

import "testing"

func TestMessage(t *testing.T) {
	cases := map[string]string{
		"Video call this week—what times?": "Video call this week - what times?",
		"<b>Option</b>   1\n":                    "Option 1",
		"I’ll take it":                       "I'll take it",
		"&lt;script&gt;x&lt;/script&gt;ok":        "xok",
	}
	for in, want := range cases {
		if got := Message(in); got != want {
			t.Errorf("Message(%q) = %q, want %q", in, got, want)
		}
	}
}
