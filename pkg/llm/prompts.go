package llm

import (
	"errors"
	"strings"
)

var (
	// ErrNotConfigured is returned when a provider lacks credentials
	ErrNotConfigured = errors.New("provider not configured")
	// ErrEmptyResponse is returned when the provider answered without any text
	ErrEmptyResponse = errors.New("empty response from provider")
)

const (
	systemPreamble = "You are a helpful test automation assistant. "
	userPreamble   = "Create a complete test for: "
)

// SystemPrompt wraps a framework prompt into the system message
func SystemPrompt(frameworkPrompt string) string {
	return systemPreamble + frameworkPrompt
}

// UserPrompt builds the user message for a requirement
func UserPrompt(requirement string) string {
	return userPreamble + requirement
}

// ExtractCode returns the body of the first fenced code block in an LLM
// response, whatever its language tag. Responses without a complete fence
// are returned trimmed.
func ExtractCode(response string) string {
	start := strings.Index(response, "```")
	if start < 0 {
		return strings.TrimSpace(response)
	}

	rest := response[start+3:]
	// Skip the language tag line
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return strings.TrimSpace(response)
	}
	body := rest[nl+1:]

	end := strings.Index(body, "```")
	if end < 0 {
		return strings.TrimSpace(response)
	}
	return strings.TrimSpace(body[:end])
}

var signupWords = []string{"sign up", "signup", "sign-up", "register", "registration", "create account", "create an account"}

// MentionsSignup reports whether a requirement is about a sign-up flow
func MentionsSignup(requirement string) bool {
	r := strings.ToLower(requirement)
	for _, w := range signupWords {
		if strings.Contains(r, w) {
			return true
		}
	}
	return false
}
