package llm

import (
	"fmt"
	"strings"

	"github.com/hyperjump/voxkb/internal/models"
)

const (
	contextHeader  = "Relevant Context:"
	historyHeader  = "Conversation History:"
	questionPrefix = "User Question: "
	answerCue      = "Assistant Response:"
)

// BuildPrompt lays out the system prompt, the retrieved chunks, the last
// historyTurns turns of history and the question.
func BuildPrompt(system, question string, rag *models.RAGContext, history []models.Turn, historyTurns int) string {
	var b strings.Builder
	b.WriteString(system)

	if rag.Len() > 0 {
		b.WriteString("\n\n" + contextHeader + "\n")
		for i, chunk := range rag.Chunks {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "Context %d:\n%s", i+1, chunk)
		}
	}

	if historyTurns > 0 && len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	if len(history) > 0 {
		b.WriteString("\n\n" + historyHeader + "\n")
		for i, turn := range history {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%s: %s", turn.Role, turn.Content)
		}
	}

	b.WriteString("\n\n" + questionPrefix + question)
	b.WriteString("\n\n" + answerCue)
	return b.String()
}
