package crew

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/dkoosis/recommender/internal/llm"
)

// DefaultMaxIterations bounds the tool-calling loop of one task.
const DefaultMaxIterations = 8

// Log lines. The escape sequences match what the agent framework prints
// so the output looks the same to anything downstream.
const (
	chainStart   = "\n\n\x1b[1m> Entering new CrewAgentExecutor chain...\x1b[0m\n"
	chainEnd     = "\n\x1b[1m> Finished chain.\x1b[0m\n"
	workingAgent = "\x1b[1m\x1b[95m [DEBUG]: == Working Agent: %s\x1b[00m\n"
	startingTask = "\x1b[1m\x1b[95m [INFO]: == Starting Task: %s\x1b[00m\n"
	taskOutput   = "\x1b[1m\x1b[92m [DEBUG]: == [%s] Task output: %s\n\n\x1b[00m\n"
	thought      = "\x1b[32;1m\x1b[1;3mThought: %s\x1b[0m\n"
	action       = "\x1b[32;1m\x1b[1;3mAction: %s\nAction Input: %s\n\x1b[0m"
	observation  = "\x1b[93m \n\n%s\n\x1b[00m\n"
	finalAnswer  = "\x1b[32;1m\x1b[1;3mFinal Answer: %s\x1b[0m\n"
)

const forceAnswer = "You have used all the tool calls you are allowed. " +
	"Give your best complete final answer now, using only what you already know."

// Executor runs tasks for the agents of one crew.
type Executor struct {
	out         io.Writer
	agents      []*Agent
	maxIter     int
	temperature float64
	log         *zap.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMaxIterations sets the per-task tool-calling budget.
func WithMaxIterations(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxIter = n
		}
	}
}

// WithTemperature sets the sampling temperature sent to the model.
func WithTemperature(t float64) ExecutorOption {
	return func(e *Executor) { e.temperature = t }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// NewExecutor returns an executor narrating to out. agents are the crew
// members available as delegation targets.
func NewExecutor(out io.Writer, agents []*Agent, opts ...ExecutorOption) *Executor {
	if out == nil {
		out = io.Discard
	}
	e := &Executor{out: out, agents: agents, maxIter: DefaultMaxIterations, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs task with its agent and returns the agent's final answer.
func (e *Executor) Execute(ctx context.Context, task Task) (string, error) {
	if task.Agent == nil {
		return "", fmt.Errorf("task has no agent")
	}
	w := e.writer(task.Agent)
	fmt.Fprintf(w, workingAgent, task.Agent.Role)
	fmt.Fprintf(w, startingTask, strings.TrimSpace(task.Description))

	answer, err := e.run(ctx, task.Agent, task, task.Agent.AllowDelegation)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(w, taskOutput, task.Agent.Role, answer)
	return answer, nil
}

func (e *Executor) writer(a *Agent) io.Writer {
	if a.Verbose {
		return e.out
	}
	return io.Discard
}

// run is one agent chain: model turns interleaved with tool calls until the
// model answers without calling a tool. The last turn offers no tools.
func (e *Executor) run(ctx context.Context, agent *Agent, task Task, delegate bool) (string, error) {
	if agent.LLM == nil {
		return "", fmt.Errorf("%s: no language model configured", agent.Role)
	}
	w := e.writer(agent)
	fmt.Fprint(w, chainStart)

	var coworkers []Tool
	if delegate {
		coworkers = delegationTools(e, agent)
	}
	tools := append(append([]Tool(nil), agent.Tools...), coworkers...)
	byName := make(map[string]Tool, len(tools))
	defs := make([]llm.ToolDef, 0, len(tools))
	for _, t := range tools {
		d := t.Definition()
		byName[d.Name] = t
		defs = append(defs, d)
	}

	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt(agent, tools, len(coworkers) > 0)},
		{Role: llm.RoleUser, Content: taskPrompt(task)},
	}

	for iter := 1; iter <= e.maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		last := iter == e.maxIter
		req := llm.Request{Messages: msgs, Tools: defs, Temperature: e.temperature}
		if last {
			req.Tools = nil
			req.Messages = append(msgs[:len(msgs):len(msgs)], llm.Message{Role: llm.RoleUser, Content: forceAnswer})
		}

		resp, err := agent.LLM.Chat(ctx, req)
		if err != nil {
			return "", fmt.Errorf("%s: %w", agent.Role, err)
		}
		e.log.Debug("agent turn",
			zap.String("agent", agent.Role),
			zap.Int("iteration", iter),
			zap.Int("tool_calls", len(resp.ToolCalls)))

		content := strings.TrimSpace(resp.Content)
		if len(resp.ToolCalls) == 0 || last {
			if content == "" {
				if last {
					break
				}
				msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: "Give your final answer."})
				continue
			}
			fmt.Fprintf(w, finalAnswer, content)
			fmt.Fprint(w, chainEnd)
			return content, nil
		}

		if content != "" {
			fmt.Fprintf(w, thought, content)
		}
		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, call := range resp.ToolCalls {
			fmt.Fprintf(w, action, call.Name, call.Arguments)
			obs := e.callTool(ctx, agent, byName, call)
			fmt.Fprintf(w, observation, obs)
			msgs = append(msgs, llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Name: call.Name, Content: obs})
		}
	}

	fmt.Fprint(w, chainEnd)
	return "", fmt.Errorf("%s: %w", agent.Role, ErrMaxIterations)
}

// callTool runs one tool call. Failures become the observation.
func (e *Executor) callTool(ctx context.Context, agent *Agent, byName map[string]Tool, call llm.ToolCall) string {
	t, ok := byName[call.Name]
	if !ok {
		names := make([]string, 0, len(byName))
		for n := range byName {
			names = append(names, n)
		}
		slices.Sort(names)
		return fmt.Sprintf("Error: %s is not a valid tool, try one of [%s].", call.Name, strings.Join(names, ", "))
	}
	out, err := t.Call(ctx, call.Arguments)
	if err != nil {
		e.log.Warn("tool call failed",
			zap.String("agent", agent.Role),
			zap.String("tool", call.Name),
			zap.Error(err))
		return "Error: " + err.Error()
	}
	return out
}

func systemPrompt(a *Agent, tools []Tool, delegate bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s.\n%s\n\nYour personal goal is: %s\n", a.Role, strings.TrimSpace(a.Backstory), strings.TrimSpace(a.Goal))
	if len(tools) > 0 {
		sb.WriteString("\nYou can call tools to gather current information. ")
		sb.WriteString("When you have everything you need, reply with your final answer and no tool call.\n")
	}
	if delegate {
		sb.WriteString("You may delegate work to, or ask questions of, your coworkers when it helps.\n")
	}
	return sb.String()
}

func taskPrompt(t Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current Task: %s\n\n", strings.TrimSpace(t.Description))
	fmt.Fprintf(&sb, "This is the expected criteria for your final answer: %s\n", t.ExpectedOutput)
	sb.WriteString("You MUST return the actual complete content as the final answer, not a summary.\n")
	if c := strings.TrimSpace(t.Context); c != "" {
		fmt.Fprintf(&sb, "\nThis is the context you're working with:\n%s\n", c)
	}
	return sb.String()
}
