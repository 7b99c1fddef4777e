package types

import "time"

// Role identifies who produced a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single turn in a conversation
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// StudentContext carries the caller-owned profile attached to a request.
// The core reads it but never mutates it.
type StudentContext struct {
	FullName         string    `json:"fullName"`
	ClassLevel       string    `json:"classLevel"` // "10th" or "12th"
	District         string    `json:"district"`
	Interests        []string  `json:"interests"`
	PreviousMessages []Message `json:"previousMessages"`
	SessionID        string    `json:"sessionId,omitempty"`
}

// FirstName returns the first token of the student's full name
func (c *StudentContext) FirstName() string {
	for i := 0; i < len(c.FullName); i++ {
		if c.FullName[i] == ' ' {
			return c.FullName[:i]
		}
	}
	return c.FullName
}

// Source identifies which backend produced a result
type Source string

const (
	SourceGemini      Source = "gemini"
	SourceHuggingFace Source = "huggingface"
	SourceOffline     Source = "offline"
	SourceFallback    Source = "fallback"
)

// Result is a single response produced for a request
type Result struct {
	Text         string        `json:"text"`
	Source       Source        `json:"source"`
	Confidence   float64       `json:"confidence"`
	ResponseTime time.Duration `json:"responseTime"`
	TokensUsed   int           `json:"tokensUsed,omitempty"`
	HasCitation  bool          `json:"hasCitation"`
}

// ProcessingMode records which path the router took for a request
type ProcessingMode string

const (
	ModeCloudPrimary    ProcessingMode = "cloud-primary"
	ModeCloudFallback   ProcessingMode = "cloud-fallback"
	ModeOfflinePrimary  ProcessingMode = "offline-primary"
	ModeOfflineFallback ProcessingMode = "offline-fallback"
)

// RoutedResult is a Result annotated with routing metadata
type RoutedResult struct {
	Result
	Network        NetworkInfo    `json:"network"`
	Mode           ProcessingMode `json:"mode"`
	FallbackReason string         `json:"fallbackReason,omitempty"`
}
