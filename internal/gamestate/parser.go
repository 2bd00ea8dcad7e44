// Package gamestate turns raw rollout game state into the per-node
// completions, answers and metadata that the reward policy scores.
package gamestate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spachava753/swarmreward/internal/models"
)

// Parser extracts the three parallel nested structures for one stage.
// Implementations must return structures of identical shape.
type Parser interface {
	Parse(gs *models.GameState, stage int) (models.Rollout, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(gs *models.GameState, stage int) (models.Rollout, error)

func (f ParserFunc) Parse(gs *models.GameState, stage int) (models.Rollout, error) {
	return f(gs, stage)
}

// StageParser keeps, for every agent and batch, the nodes recorded at the
// requested stage in their original order.
type StageParser struct{}

// NewStageParser creates the default game state parser.
func NewStageParser() *StageParser {
	return &StageParser{}
}

// Parse implements Parser.
func (p *StageParser) Parse(gs *models.GameState, stage int) (models.Rollout, error) {
	if gs == nil {
		return models.Rollout{}, fmt.Errorf("%s: game state is nil", models.ErrGameStateInvalid)
	}

	out := models.Rollout{
		Completions: make(models.Nested[models.CompletionList], len(gs.Agents)),
		Answers:     make(models.Nested[models.Answer], len(gs.Agents)),
		Metadata:    make(models.Nested[models.Metadata], len(gs.Agents)),
	}

	for agent, record := range gs.Agents {
		out.Completions[agent] = make(map[models.BatchID][]models.CompletionList, len(record.Batches))
		out.Answers[agent] = make(map[models.BatchID][]models.Answer, len(record.Batches))
		out.Metadata[agent] = make(map[models.BatchID][]models.Metadata, len(record.Batches))

		for batch, nodes := range record.Batches {
			completions := []models.CompletionList{}
			answers := []models.Answer{}
			metadata := []models.Metadata{}

			for i, node := range nodes {
				if node.Stage != stage {
					continue
				}
				answer, err := DecodeAnswer(node.Answer)
				if err != nil {
					return models.Rollout{}, fmt.Errorf("%s: agent %q batch %q node %d: %w",
						models.ErrGameStateInvalid, agent, batch, i, err)
				}
				completions = append(completions, DecodeCompletions(node.Completions))
				answers = append(answers, answer)
				metadata = append(metadata, node.Metadata)
			}

			out.Completions[agent][batch] = completions
			out.Answers[agent][batch] = answers
			out.Metadata[agent][batch] = metadata
		}
	}

	return out, nil
}

// DecodeCompletions reads a raw completions field. Anything other than a
// JSON array of strings yields the absent variant; a null element counts as
// a non-string.
func DecodeCompletions(raw json.RawMessage) models.CompletionList {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return models.AbsentCompletions()
	}

	var elems []*models.Completion
	if err := json.Unmarshal(raw, &elems); err != nil {
		return models.AbsentCompletions()
	}
	items := make([]models.Completion, 0, len(elems))
	for _, elem := range elems {
		if elem == nil {
			return models.AbsentCompletions()
		}
		items = append(items, *elem)
	}
	return models.PresentCompletions(items...)
}

// DecodeAnswer reads a raw answer field. Null, "" and [] are absent; a
// string, a number or an array of those is present. Other shapes are errors.
func DecodeAnswer(raw json.RawMessage) (models.Answer, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return models.AbsentAnswer(), nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return models.Answer{}, fmt.Errorf("decoding answer: %w", err)
		}
		if s == "" {
			return models.AbsentAnswer(), nil
		}
		return models.PresentAnswer(s), nil
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return models.Answer{}, fmt.Errorf("decoding answer: %w", err)
		}
		if len(elems) == 0 {
			return models.AbsentAnswer(), nil
		}
		values := make([]string, 0, len(elems))
		for i, elem := range elems {
			v, err := scalarAnswer(elem)
			if err != nil {
				return models.Answer{}, fmt.Errorf("decoding answer[%d]: %w", i, err)
			}
			values = append(values, v)
		}
		return models.PresentAnswer(values...), nil
	default:
		v, err := scalarAnswer(raw)
		if err != nil {
			return models.Answer{}, fmt.Errorf("decoding answer: %w", err)
		}
		return models.PresentAnswer(v), nil
	}
}

func scalarAnswer(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("unsupported answer value %s", raw)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return "", fmt.Errorf("unsupported answer value %s", raw)
	}
	return n.String(), nil
}
