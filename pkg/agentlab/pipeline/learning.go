package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/brandonyhc/agentlab/pkg/agentlab"
	"github.com/brandonyhc/agentlab/pkg/agentlab/checkpoint"
	"github.com/brandonyhc/agentlab/pkg/agentlab/config"
	"github.com/brandonyhc/agentlab/pkg/agentlab/llm"
	"github.com/brandonyhc/agentlab/pkg/agentlab/state"
)

// PipelineType tag persisted on experiment records for this pipeline.
const LearningPipelineType = "learning"

// Default bounds for the learning loop.
const (
	defaultMaxIterations  = 3
	defaultRecursionLimit = 25
)

// LearningPipeline is the reference pipeline: an agent that analyzes a
// topic, plans what to learn, researches in a bounded loop, synthesizes
// findings into a knowledge graph, and validates the result.
//
// Graph shape:
//
//	analyze → plan → research → synthesize →(route)→ research | plan | validate
//	validate → END
//
// State is published after every node under a mutex, so a concurrent
// experiment runner can snapshot mid-run without stalling execution.
type LearningPipeline struct {
	graph  *agentlab.CompiledGraph
	client llm.Client

	maxIterations  int
	recursionLimit int
	model          string
	store          checkpoint.Store
	logger         *slog.Logger

	mu      sync.RWMutex
	current state.State
}

// Option configures a LearningPipeline.
type Option func(*LearningPipeline)

// WithMaxIterations bounds how many research passes run before
// validation. Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(p *LearningPipeline) {
		if n >= 1 {
			p.maxIterations = n
		}
	}
}

// WithRecursionLimit bounds total node executions per Run.
func WithRecursionLimit(n int) Option {
	return func(p *LearningPipeline) {
		if n >= 1 {
			p.recursionLimit = n
		}
	}
}

// WithModel sets the model requested on LLM completions.
func WithModel(model string) Option {
	return func(p *LearningPipeline) {
		p.model = model
	}
}

// WithCheckpointStore enables per-node checkpointing of runs.
func WithCheckpointStore(store checkpoint.Store) Option {
	return func(p *LearningPipeline) {
		p.store = store
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *LearningPipeline) {
		p.logger = logger
	}
}

// FromConfig derives options from a configuration section.
// Recognized keys: max_iterations, recursion_limit, model.
func FromConfig(cfg config.Config) []Option {
	var opts []Option
	if n := cfg.Int("max_iterations", 0); n >= 1 {
		opts = append(opts, WithMaxIterations(n))
	}
	if n := cfg.Int("recursion_limit", 0); n >= 1 {
		opts = append(opts, WithRecursionLimit(n))
	}
	if model := cfg.String("model", ""); model != "" {
		opts = append(opts, WithModel(model))
	}
	return opts
}

// NewLearningPipeline builds and compiles the learning graph.
// client may be nil; nodes then fall back to deterministic stub
// content, which keeps examples and tests runnable offline.
func NewLearningPipeline(client llm.Client, opts ...Option) (*LearningPipeline, error) {
	p := &LearningPipeline{
		client:         client,
		maxIterations:  defaultMaxIterations,
		recursionLimit: defaultRecursionLimit,
		logger:         slog.Default(),
		current:        defaultState(),
	}
	for _, opt := range opts {
		opt(p)
	}

	graph := agentlab.NewGraph().
		AddNode("analyze", p.publishing(p.analyze)).
		AddNode("plan", p.publishing(p.plan)).
		AddNode("research", p.publishing(p.research)).
		AddNode("synthesize", p.publishing(p.synthesize)).
		AddNode("validate", p.publishing(p.validate)).
		AddEdge("analyze", "plan").
		AddEdge("plan", "research").
		AddEdge("research", "synthesize").
		AddConditionalEdges("synthesize", p.route, map[string]string{
			"research": "research",
			"plan":     "plan",
			"validate": "validate",
		}).
		AddEdge("validate", agentlab.END).
		SetEntry("analyze")

	compiled, err := graph.Compile()
	if err != nil {
		return nil, fmt.Errorf("building learning pipeline: %w", err)
	}
	p.graph = compiled
	return p, nil
}

// defaultState is the field set every learning run starts from.
func defaultState() state.State {
	return state.State{
		"topic":      "",
		"analysis":   "",
		"plan":       "",
		"findings":   []any{},
		"synthesis":  "",
		"iterations": 0,
		"score":      0.0,
		"validated":  false,
		"knowledge_graph": map[string]any{
			"nodes": []any{},
			"edges": []any{},
		},
		state.MessagesKey: []any{},
	}
}

// Run executes the graph for the initial input. The input is deep
// merged over the default state; caller-provided fields win.
func (p *LearningPipeline) Run(ctx context.Context, initialInput state.State) (state.State, error) {
	initial, err := initialInput.WithDefaults(defaultState())
	if err != nil {
		return nil, fmt.Errorf("merging initial input: %w", err)
	}
	p.publish(initial)

	runCtx := agentlab.NewContext(ctx,
		agentlab.WithLogger(p.logger),
		agentlab.WithLLM(p.client),
	)

	runOpts := []agentlab.RunOption{
		agentlab.WithRecursionLimit(p.recursionLimit),
	}
	if p.store != nil {
		runOpts = append(runOpts, agentlab.WithCheckpointStore(p.store))
	}

	final, err := p.graph.Invoke(runCtx, initial, uuid.NewString(), runOpts...)
	if final != nil {
		p.publish(final)
	}
	return final, err
}

// GetCurrentState returns a deep copy of the live state.
func (p *LearningPipeline) GetCurrentState() state.State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.Clone()
}

// GetConfig returns the pipeline configuration, persisted on
// experiment records as pipeline_config.
func (p *LearningPipeline) GetConfig() map[string]any {
	return map[string]any{
		"pipeline_type":   LearningPipelineType,
		"max_iterations":  p.maxIterations,
		"recursion_limit": p.recursionLimit,
		"model":           p.model,
	}
}

// publish replaces the snapshot the runner reads. Stores a clone so
// later engine-side mutation never leaks through GetCurrentState.
func (p *LearningPipeline) publish(s state.State) {
	snapshot := s.Clone()
	p.mu.Lock()
	p.current = snapshot
	p.mu.Unlock()
}

// publishing wraps a node so the merged state is visible to
// GetCurrentState as soon as the node finishes.
func (p *LearningPipeline) publishing(fn agentlab.NodeFunc) agentlab.NodeFunc {
	return func(ctx agentlab.Context, s state.State) (state.State, error) {
		update, err := fn(ctx, s)
		if err != nil {
			return nil, err
		}
		p.publish(s.Clone().Apply(update))
		return update, nil
	}
}

// complete calls the LLM, or produces a stub when no client is bound.
func (p *LearningPipeline) complete(ctx context.Context, system, prompt string) (string, error) {
	if p.client == nil {
		return fmt.Sprintf("[offline] %s", prompt), nil
	}
	resp, err := p.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Model:        p.model,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (p *LearningPipeline) analyze(ctx agentlab.Context, s state.State) (state.State, error) {
	topic := s.String("topic")
	analysis, err := p.complete(ctx,
		"You analyze learning topics and identify what is already known.",
		fmt.Sprintf("Analyze the topic %q and list knowledge gaps.", topic))
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	return state.State{
		"analysis": analysis,
		state.MessagesKey: append(s.Slice(state.MessagesKey), map[string]any{
			"role":    "assistant",
			"content": analysis,
		}),
	}, nil
}

func (p *LearningPipeline) plan(ctx agentlab.Context, s state.State) (state.State, error) {
	plan, err := p.complete(ctx,
		"You turn a topic analysis into a short research plan.",
		fmt.Sprintf("Given this analysis, produce a research plan:\n%s", s.String("analysis")))
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	return state.State{"plan": plan}, nil
}

func (p *LearningPipeline) research(ctx agentlab.Context, s state.State) (state.State, error) {
	iteration := s.Int("iterations") + 1
	finding, err := p.complete(ctx,
		"You research one step of a plan and report a single finding.",
		fmt.Sprintf("Plan:\n%s\n\nReport finding #%d.", s.String("plan"), iteration))
	if err != nil {
		return nil, fmt.Errorf("research: %w", err)
	}
	return state.State{
		"findings":   append(s.Slice("findings"), finding),
		"iterations": iteration,
	}, nil
}

func (p *LearningPipeline) synthesize(ctx agentlab.Context, s state.State) (state.State, error) {
	findings := s.Slice("findings")
	parts := make([]string, 0, len(findings))
	for _, f := range findings {
		if text, ok := f.(string); ok {
			parts = append(parts, text)
		}
	}

	synthesis, err := p.complete(ctx,
		"You synthesize research findings into concepts and relations.",
		fmt.Sprintf("Synthesize these findings:\n%s", strings.Join(parts, "\n")))
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	// Grow the knowledge graph: one concept node per textual finding,
	// each linked to the topic. Non-string findings are skipped, so
	// the loop is bounded by parts, not findings.
	graph := s.Map("knowledge_graph")
	nodes, _ := graph["nodes"].([]any)
	edges, _ := graph["edges"].([]any)
	for i := len(nodes); i < len(parts); i++ {
		id := fmt.Sprintf("concept-%d", i+1)
		nodes = append(nodes, map[string]any{"id": id, "label": parts[i]})
		edges = append(edges, map[string]any{"from": s.String("topic"), "to": id})
	}

	return state.State{
		"synthesis": synthesis,
		"knowledge_graph": map[string]any{
			"nodes": nodes,
			"edges": edges,
		},
	}, nil
}

func (p *LearningPipeline) validate(ctx agentlab.Context, s state.State) (state.State, error) {
	// Coverage of the plan by findings, in [0, 1].
	score := float64(len(s.Slice("findings"))) / float64(p.maxIterations)
	if score > 1.0 {
		score = 1.0
	}
	return state.State{
		"score":     score,
		"validated": score >= 1.0,
	}, nil
}

// route decides what follows a synthesis pass. Pure read of state.
func (p *LearningPipeline) route(ctx agentlab.Context, s state.State) (string, error) {
	if s.String("plan") == "" {
		return "plan", nil
	}
	if s.Int("iterations") < p.maxIterations {
		return "research", nil
	}
	return "validate", nil
}
