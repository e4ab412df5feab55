package email

const (
	subjectMessageFmt = "A message from %s"
	subjectFallback   = "A message from the studio"
)
