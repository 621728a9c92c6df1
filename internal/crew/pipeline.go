package crew

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dkoosis/recommender/internal/llm"
	"github.com/dkoosis/recommender/internal/trip"
)

// Agent roles of the recommendation crew.
const (
	LocalCityExpert = "Local City Expert"
	TripMakerExpert = "Trip Maker Expert"
)

// Stage is one step of a Pipeline. Build receives the previous stage's
// output (empty for the first stage).
type Stage struct {
	Name  string
	Agent *Agent
	Build func(p trip.Params, prior string) Task
}

// Pipeline runs two stages in order; the second consumes the first's output.
type Pipeline struct {
	First  Stage
	Second Stage
	exec   *Executor
}

// NewPipeline wires two stages to a shared executor narrating to out.
func NewPipeline(first, second Stage, out io.Writer, opts ...ExecutorOption) *Pipeline {
	exec := NewExecutor(out, []*Agent{first.Agent, second.Agent}, opts...)
	return &Pipeline{First: first, Second: second, exec: exec}
}

// Run implements Invoker.
func (p *Pipeline) Run(ctx context.Context, params trip.Params) (string, error) {
	research, err := p.runStage(ctx, p.First, params, "")
	if err != nil {
		return "", err
	}
	return p.runStage(ctx, p.Second, params, research)
}

func (p *Pipeline) runStage(ctx context.Context, s Stage, params trip.Params, prior string) (string, error) {
	task := s.Build(params, prior)
	if task.Agent == nil {
		task.Agent = s.Agent
	}
	out, err := p.exec.Execute(ctx, task)
	if err != nil {
		return "", fmt.Errorf("%s stage: %w", s.Name, err)
	}
	return out, nil
}

// NewRecommendationPipeline returns the research-then-recommend crew: a local
// city expert gathers facts, then a trip maker turns them into the report.
// Both agents are built from the trip before the first stage starts.
func NewRecommendationPipeline(client llm.Client, tools []Tool, out io.Writer, opts ...ExecutorOption) Invoker {
	return InvokerFunc(func(ctx context.Context, p trip.Params) (string, error) {
		first, second := recommendationStages(client, tools, p)
		return NewPipeline(first, second, out, opts...).Run(ctx, p)
	})
}

func recommendationStages(client llm.Client, tools []Tool, p trip.Params) (first, second Stage) {
	expert := &Agent{
		Role:            LocalCityExpert,
		Goal:            cityExpertGoal,
		Backstory:       cityExpertBackstory,
		Tools:           tools,
		LLM:             client,
		AllowDelegation: true,
		Verbose:         true,
	}
	maker := &Agent{
		Role:            TripMakerExpert,
		Goal:            fmt.Sprintf(tripMakerGoal, p.Category, p.Budget, p.Headcount, p.Type, p.Month),
		Backstory:       fmt.Sprintf(tripMakerBackstory, p.Category, p.Budget, p.Headcount, p.Type, p.Month),
		Tools:           tools,
		LLM:             client,
		AllowDelegation: true,
		Verbose:         true,
	}

	first = Stage{
		Name:  "research",
		Agent: expert,
		Build: func(p trip.Params, _ string) Task {
			return Task{
				Description:    fmt.Sprintf(researchTask, p.Category, p.Type, p.Budget),
				ExpectedOutput: "Detailed information of the city.",
				Agent:          expert,
			}
		},
	}
	second = Stage{
		Name:  "recommendation",
		Agent: maker,
		Build: func(p trip.Params, prior string) Task {
			return Task{
				Description:    fmt.Sprintf(recommendTask, p.Category, p.Budget, p.Headcount, p.Type, p.Month),
				ExpectedOutput: "Detailed and clear report of recommendation.",
				Agent:          maker,
				Context:        prior,
			}
		},
	}
	return first, second
}

// Profile describes a crew member for display.
type Profile struct {
	Role      string
	Goal      string
	Backstory string
}

// Team lists the recommendation crew in the order they run.
func Team() []Profile {
	return []Profile{
		{Role: LocalCityExpert, Goal: firstLine(cityExpertGoal), Backstory: strings.Join(strings.Fields(cityExpertBackstory), " ")},
		{Role: TripMakerExpert, Goal: firstLine(tripMakerGoal), Backstory: "Expert at understanding the user's demands and recommending places in India they must visit."},
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

const cityExpertGoal = `Provide the BEST insights about the cities of India.
Important:
- Once you know the selected city, provide keenly researched insights of the city.
- Research local events, activities, food, transport, and accommodation information.
- Keep the information detailed.
- Avoid reusing the same input.
- Stop searching as soon as you get the results`

const cityExpertBackstory = `A knowledgeable local guide with extensive information
about every city of India, its attractions, customs and always updated
about current events in the city.`

const tripMakerGoal = `Recommend places in India for planning a trip, considering the category, budget per head, number of people traveling, type of trip and month of visit.
Category: %s
Budget: %d
Number of People: %d
Type: %s
Time: %s

Important:
- Final output must contain all the detailed key insights of the locations perfect for customs, culture
information, tourist attractions, activities, food.
- The final output must contain detailed reasoning why you are recommending those places.
- The final output must contain a proper breakdown of expenses.
- Avoid reusing the same input.`

const tripMakerBackstory = `Expert at understanding the user's demands like %s,
%d, %d, %s, %s and recommending places in India they must visit.
Skilled in recommending with detailed insights of the place.`

const researchTask = `Research about the recommended place and provide keen insights into the place,
including food, costs, accommodation, tourist attractions, transport, and dos and don'ts.

Helpful Tips:
- To find blog articles and Google results, perform searches on Google such as the following:
- "Trip to %s as %s in India under %d"

Important:
- Do not generate fake information or improper budget breakdown. Only return the information you find. Nothing else!`

const recommendTask = `Based on the factors like %s,
in budget of %d, number of people traveling are %d, and type of trip %s,
in the month of %s, use the results from the Local City Expert to compile all the information in a
well-formatted manner. The pointers should be detailed.`
