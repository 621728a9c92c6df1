package crew

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dkoosis/recommender/internal/llm"
)

// Delegation tool names.
const (
	DelegateWork = "delegate_work_to_coworker"
	AskQuestion  = "ask_question_to_coworker"
)

// delegateArgs is what the model sends to either delegation tool. The
// "task" key is what surfaces as a notification in the live log.
type delegateArgs struct {
	Task     string `json:"task"`
	Question string `json:"question"`
	Context  string `json:"context"`
	Coworker string `json:"coworker"`
}

// delegationTool hands work to another agent of the same crew.
type delegationTool struct {
	name      string
	exec      *Executor
	coworkers []*Agent
}

func delegationTools(e *Executor, self *Agent) []Tool {
	var others []*Agent
	for _, a := range e.agents {
		if a != self {
			others = append(others, a)
		}
	}
	if len(others) == 0 {
		return nil
	}
	return []Tool{
		delegationTool{name: DelegateWork, exec: e, coworkers: others},
		delegationTool{name: AskQuestion, exec: e, coworkers: others},
	}
}

func (d delegationTool) roles() []string {
	roles := make([]string, len(d.coworkers))
	for i, a := range d.coworkers {
		roles[i] = a.Role
	}
	return roles
}

func (d delegationTool) Definition() llm.ToolDef {
	field, desc := "task", "Delegate a specific task to one of the following coworkers: "
	if d.name == AskQuestion {
		field, desc = "question", "Ask a specific question to one of the following coworkers: "
	}
	return llm.ToolDef{
		Name: d.name,
		Description: desc + strings.Join(d.roles(), ", ") +
			". Pass all the context they need; they know nothing about your work.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				field:      map[string]any{"type": "string", "description": "What the coworker should do or answer"},
				"context":  map[string]any{"type": "string", "description": "Everything the coworker needs to know"},
				"coworker": map[string]any{"type": "string", "description": "Role of the coworker"},
			},
			"required": []string{field, "context", "coworker"},
		},
	}
}

// Call runs the coworker without delegation so requests cannot bounce back.
func (d delegationTool) Call(ctx context.Context, args string) (string, error) {
	var a delegateArgs
	if err := json.Unmarshal([]byte(args), &a); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	work := a.Task
	if d.name == AskQuestion || work == "" {
		work = a.Question
	}
	if strings.TrimSpace(work) == "" {
		return "", fmt.Errorf("%s: nothing to delegate", d.name)
	}

	coworker := d.find(a.Coworker)
	if coworker == nil {
		return "", fmt.Errorf("coworker %q not found, choose one of: %s", a.Coworker, strings.Join(d.roles(), ", "))
	}
	return d.exec.run(ctx, coworker, Task{
		Description:    work,
		ExpectedOutput: "Your best answer to your coworker asking you this, accounting for the context shared.",
		Agent:          coworker,
		Context:        a.Context,
	}, false)
}

func (d delegationTool) find(role string) *Agent {
	role = strings.TrimSpace(strings.Trim(role, `"'`))
	for _, a := range d.coworkers {
		if strings.EqualFold(a.Role, role) {
			return a
		}
	}
	return nil
}
