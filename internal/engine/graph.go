package engine

import (
	"fmt"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
)

// ValidateWorkflowGraph checks the successor graph of one workflow: every
// non-nil successor pointer must reference a step in the same workflow, and
// following successors must never loop. Enforced when steps are written so a
// bad graph can't make Advance run forever.
func ValidateWorkflowGraph(steps []models.WorkflowStep) error {
	byID := make(map[int64]models.WorkflowStep, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}

	check := func(from models.WorkflowStep, next *int64) (*models.WorkflowStep, error) {
		if next == nil {
			return nil, nil
		}
		succ, ok := byID[*next]
		if !ok {
			return nil, fmt.Errorf("step %d: successor %d not in workflow %d: %w",
				from.ID, *next, from.WorkflowID, models.ErrDataIntegrity)
		}
		if succ.WorkflowID != from.WorkflowID {
			return nil, fmt.Errorf("step %d: successor %d belongs to workflow %d, not %d: %w",
				from.ID, succ.ID, succ.WorkflowID, from.WorkflowID, models.ErrDataIntegrity)
		}
		return &succ, nil
	}

	// White/grey/black DFS over both successor edges.
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[int64]int, len(steps))

	var visit func(s models.WorkflowStep) error
	visit = func(s models.WorkflowStep) error {
		switch state[s.ID] {
		case inStack:
			return fmt.Errorf("workflow %d: successor graph has a cycle through step %d: %w",
				s.WorkflowID, s.ID, models.ErrDataIntegrity)
		case done:
			return nil
		}
		state[s.ID] = inStack
		for _, next := range []*int64{s.NextStepOnSuccess, s.NextStepOnFailure} {
			succ, err := check(s, next)
			if err != nil {
				return err
			}
			if succ != nil {
				if err := visit(*succ); err != nil {
					return err
				}
			}
		}
		state[s.ID] = done
		return nil
	}

	for _, s := range steps {
		if err := visit(s); err != nil {
			return err
		}
	}
	return nil
}
