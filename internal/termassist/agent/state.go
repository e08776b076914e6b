package agent

import (
	"regexp"
	"strconv"

	"github.com/bdobrica/termassist/internal/termassist/llm"
)

// State is a phase of the per-thread turn state machine:
//
//	AwaitingUserInput -> ModelReasoning -> (ToolExecution -> ModelReasoning)* -> AwaitingUserInput
type State int

const (
	AwaitingUserInput State = iota
	ModelReasoning
	ToolExecution
)

func (s State) String() string {
	switch s {
	case AwaitingUserInput:
		return "awaiting_user_input"
	case ModelReasoning:
		return "model_reasoning"
	case ToolExecution:
		return "tool_execution"
	default:
		return "unknown"
	}
}

// ShouldContinue picks the state that follows a model answer: tool execution
// when the message requests at least one tool, otherwise the turn is over.
// The remaining counter plays no part in this decision.
func ShouldContinue(msg llm.Message) State {
	if msg.HasToolCalls() {
		return ToolExecution
	}
	return AwaitingUserInput
}

var trailingInt = regexp.MustCompile(`(\d+)\D*$`)

// ParseTrailingRemaining extracts the count a reply reports on its closing
// "Remaining: <n>" line, by taking the last integer in the text. A reply
// without any integer reports 0.
func ParseTrailingRemaining(reply string) int {
	m := trailingInt.FindStringSubmatch(reply)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
