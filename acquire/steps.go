package acquire

import (
	"context"
	"fmt"
)

// Step is one named unit of an acquisition sequence.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Run executes steps in order and stops at the first failure, which is
// returned wrapped with the step's name. Cancellation is checked between
// steps.
func Run(ctx context.Context, steps ...Step) error {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		if err := s.Run(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return nil
}
