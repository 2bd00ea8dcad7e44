package gamestate

import (
	"fmt"

	"github.com/spachava753/swarmreward/internal/models"
)

// ValidateShape checks that completions, answers and metadata agree on
// agents, batches and node counts, so that node N is always scored against
// answer N.
func ValidateShape(r models.Rollout) error {
	if len(r.Answers) != len(r.Completions) || len(r.Metadata) != len(r.Completions) {
		return &models.ShapeError{Message: fmt.Sprintf(
			"agent counts differ: completions=%d answers=%d metadata=%d",
			len(r.Completions), len(r.Answers), len(r.Metadata))}
	}

	for agent, batches := range r.Completions {
		answerBatches, ok := r.Answers[agent]
		if !ok {
			return &models.ShapeError{Agent: agent, Message: "missing from answers"}
		}
		metaBatches, ok := r.Metadata[agent]
		if !ok {
			return &models.ShapeError{Agent: agent, Message: "missing from metadata"}
		}
		if len(answerBatches) != len(batches) || len(metaBatches) != len(batches) {
			return &models.ShapeError{Agent: agent, Message: fmt.Sprintf(
				"batch counts differ: completions=%d answers=%d metadata=%d",
				len(batches), len(answerBatches), len(metaBatches))}
		}

		for batch, nodes := range batches {
			answers, ok := answerBatches[batch]
			if !ok {
				return &models.ShapeError{Agent: agent, Batch: batch, Message: "missing from answers"}
			}
			meta, ok := metaBatches[batch]
			if !ok {
				return &models.ShapeError{Agent: agent, Batch: batch, Message: "missing from metadata"}
			}
			if len(answers) != len(nodes) || len(meta) != len(nodes) {
				return &models.ShapeError{Agent: agent, Batch: batch, Message: fmt.Sprintf(
					"node counts differ: completions=%d answers=%d metadata=%d",
					len(nodes), len(answers), len(meta))}
			}
		}
	}

	return nil
}
