package agent

import (
	"fmt"
	"strings"

	"github.com/bdobrica/termassist/internal/termassist/llm"
)

const basePrompt = `You are a terminal assistant that helps users by:
1. Using the provided tools to process their requests
2. Responding based only on the tool results
3. Always ending your response with a status line in this format:
   - If files or folders remain to be listed: "Remaining: <number>" (e.g. "Remaining: 10")
   - If nothing remains: "Remaining: 0"`

const rulesPrompt = `## Rules
- Always use the available tools to gather information; never guess at directory contents.
- Load a directory before listing it. Listings arrive in batches and each listing consumes its batch, so keep listing while remainingCount is above zero if the user wants everything.
- Destinations for moves must be paths containing "/", e.g. "archive/".
- Renames keep an entry in its directory; the new name must not contain "/".
- When a tool result starts with "error:", tell the user what failed instead of retrying blindly.
- Never forget the "Remaining:" line at the end.`

// BuildSystemPrompt assembles the operating instructions sent as the first
// message of every new thread: the role and response contract, the tool
// inventory, then the rules.
func BuildSystemPrompt(defs []llm.ToolDefinition) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)

	if len(defs) > 0 {
		sb.WriteString("\n\n## Tools\n")
		for _, d := range defs {
			fmt.Fprintf(&sb, "- %s: %s\n", d.Function.Name, d.Function.Description)
		}
	}

	sb.WriteString("\n")
	if len(defs) == 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(rulesPrompt)
	return sb.String()
}
