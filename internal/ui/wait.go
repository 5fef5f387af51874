package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/huh/spinner"
)

// WaitWithSpinner sleeps for d while showing a countdown title. It returns
// early with the context error when ctx is cancelled.
func WaitWithSpinner(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := spinner.New().
		Title(fmt.Sprintf("Waiting %s before the next archive request...", d)).
		Context(waitCtx).
		Action(func() {
			<-waitCtx.Done()
		}).
		Run()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil && waitCtx.Err() == nil {
		return fmt.Errorf("spinner error: %w", err)
	}
	return nil
}
