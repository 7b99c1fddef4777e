package cloud

import (
	"fmt"
	"strings"

	"github.com/muqeet1001/shikshasetu/pkg/types"
)

// historyTurns is how many previous messages are replayed into the prompt
const historyTurns = 4

// buildPrompt assembles the full text prompt sent to a cloud provider:
// counselor instructions, the student's profile, a short tail of the
// conversation, and the new message.
func buildPrompt(message string, sctx *types.StudentContext) string {
	var sb strings.Builder

	sb.WriteString("You are a friendly career counselor for school students in Jammu & Kashmir, India. ")
	sb.WriteString("Give practical, encouraging guidance about streams, entrance exams (NEET, JEE, CUET), ")
	sb.WriteString("colleges and scholarships. Prefer government sources and local options (GMC Srinagar, ")
	sb.WriteString("NIT Srinagar, University of Jammu/Kashmir) where relevant. Keep answers short and concrete.\n")

	if sctx != nil {
		sb.WriteString("\nStudent profile:\n")
		if sctx.FullName != "" {
			fmt.Fprintf(&sb, "- Name: %s\n", sctx.FullName)
		}
		if sctx.ClassLevel != "" {
			fmt.Fprintf(&sb, "- Class: %s\n", sctx.ClassLevel)
		}
		if sctx.District != "" {
			fmt.Fprintf(&sb, "- District: %s\n", sctx.District)
		}
		if len(sctx.Interests) > 0 {
			fmt.Fprintf(&sb, "- Interests: %s\n", strings.Join(sctx.Interests, ", "))
		}

		history := sctx.PreviousMessages
		if len(history) > historyTurns {
			history = history[len(history)-historyTurns:]
		}
		if len(history) > 0 {
			sb.WriteString("\nConversation so far:\n")
			for _, m := range history {
				speaker := "Student"
				if m.Role == types.RoleAssistant {
					speaker = "Counselor"
				}
				fmt.Fprintf(&sb, "%s: %s\n", speaker, m.Content)
			}
		}
	}

	fmt.Fprintf(&sb, "\nStudent: %s\nCounselor:", message)
	return sb.String()
}

// citation markers recognized in provider output
var citationMarkers = []string{
	"according to",
	"as per",
	"source:",
	"ministry of",
	"gov.in",
	"nta.ac.in",
}

// hasCitation reports whether a response references a source
func hasCitation(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range citationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
