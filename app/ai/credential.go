package ai

import "strings"

// Credential authorizes one call to the AI service. It is passed per call
// and never stored by the client.
type Credential string

func (c Credential) Empty() bool {
	return strings.TrimSpace(string(c)) == ""
}

// String keeps credentials out of logs.
func (c Credential) String() string {
	if c.Empty() {
		return ""
	}
	return "[redacted]"
}
