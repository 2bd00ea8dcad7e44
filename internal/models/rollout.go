package models

// AgentID names one participant in a training round.
type AgentID string

// BatchID names one training batch within an agent's data.
type BatchID string

// Completion is a single generated candidate output at a node.
type Completion string

// Metadata is per-node context handed to scorers untouched.
type Metadata map[string]any

// CompletionList is the candidate list of one node. The zero value is absent.
type CompletionList struct {
	items   []Completion
	present bool
}

// PresentCompletions wraps a list of completions produced at a node.
func PresentCompletions(items ...Completion) CompletionList {
	return CompletionList{items: items, present: true}
}

// AbsentCompletions marks a node whose completions are missing or malformed.
func AbsentCompletions() CompletionList {
	return CompletionList{}
}

// Items returns the completions and true only when the list is present and non-empty.
func (c CompletionList) Items() ([]Completion, bool) {
	if !c.present || len(c.items) == 0 {
		return nil, false
	}
	return c.items, true
}

// Len returns the number of completions, 0 when absent.
func (c CompletionList) Len() int {
	return len(c.items)
}

// Answer is the reference answer of a node. A node may accept several
// equivalent values. The zero value is absent.
type Answer struct {
	values []string
}

// PresentAnswer builds an answer from one or more accepted values.
func PresentAnswer(values ...string) Answer {
	return Answer{values: values}
}

// AbsentAnswer marks a node without a reference answer.
func AbsentAnswer() Answer {
	return Answer{}
}

// Values returns the accepted values and true when the answer is usable.
// An empty string on its own counts as absent.
func (a Answer) Values() ([]string, bool) {
	if len(a.values) == 0 {
		return nil, false
	}
	if len(a.values) == 1 && a.values[0] == "" {
		return nil, false
	}
	return a.values, true
}

// Nested is the agent → batch → node shape shared by all parsed structures.
type Nested[T any] map[AgentID]map[BatchID][]T

// Rollout is the parsed form of a GameState for one stage. The three
// structures must share the same shape.
type Rollout struct {
	Completions Nested[CompletionList]
	Answers     Nested[Answer]
	Metadata    Nested[Metadata]
}

// RewardMatrix maps each agent and batch to one reward list per node.
type RewardMatrix map[AgentID]map[BatchID][][]int
