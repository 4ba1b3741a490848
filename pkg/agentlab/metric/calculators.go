package metric

import "github.com/brandonyhc/agentlab/pkg/agentlab/state"

func init() {
	RegisterKind(KindMessageCount, func() Calculator { return messageCount{} })
	RegisterKind(KindKnowledgeNodeCount, func() Calculator { return knowledgeNodeCount{} })
	RegisterKind(KindKnowledgeEdgeCount, func() Calculator { return knowledgeEdgeCount{} })
	RegisterKind(KindAveragePerplexity, func() Calculator { return averagePerplexity{} })
	RegisterKind(KindIterationCount, func() Calculator { return iterationCount{} })
}

// messageCount counts entries in the ordered message log.
type messageCount struct{}

func (messageCount) Name() string        { return string(KindMessageCount) }
func (messageCount) Description() string { return "Number of messages in the conversation log" }
func (messageCount) Calculate(s state.State) float64 {
	return float64(len(s.Messages()))
}

// knowledgeNodeCount counts nodes in the accumulated knowledge graph.
type knowledgeNodeCount struct{}

func (knowledgeNodeCount) Name() string        { return string(KindKnowledgeNodeCount) }
func (knowledgeNodeCount) Description() string { return "Number of nodes in the knowledge graph" }
func (knowledgeNodeCount) Calculate(s state.State) float64 {
	kg := s.Map("knowledge_graph")
	if kg == nil {
		return 0
	}
	nodes, ok := kg["nodes"].([]any)
	if !ok {
		return 0
	}
	return float64(len(nodes))
}

// knowledgeEdgeCount counts edges in the accumulated knowledge graph.
type knowledgeEdgeCount struct{}

func (knowledgeEdgeCount) Name() string        { return string(KindKnowledgeEdgeCount) }
func (knowledgeEdgeCount) Description() string { return "Number of edges in the knowledge graph" }
func (knowledgeEdgeCount) Calculate(s state.State) float64 {
	kg := s.Map("knowledge_graph")
	if kg == nil {
		return 0
	}
	edges, ok := kg["edges"].([]any)
	if !ok {
		return 0
	}
	return float64(len(edges))
}

// averagePerplexity reads the pipeline's running perplexity estimate.
type averagePerplexity struct{}

func (averagePerplexity) Name() string        { return string(KindAveragePerplexity) }
func (averagePerplexity) Description() string { return "Average perplexity across generations" }
func (averagePerplexity) Calculate(s state.State) float64 {
	return s.Float("perplexity")
}

// iterationCount reads the pipeline's loop counter.
type iterationCount struct{}

func (iterationCount) Name() string        { return string(KindIterationCount) }
func (iterationCount) Description() string { return "Number of graph iterations completed" }
func (iterationCount) Calculate(s state.State) float64 {
	return float64(s.Int("iterations"))
}
