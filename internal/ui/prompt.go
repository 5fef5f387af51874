package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/thesavant42/sqlihunter/internal/scanner"
)

// HuhConfirmer asks on the terminal whether to run a composed scanner
// command. The prompt starts on Yes.
type HuhConfirmer struct {
	Theme *huh.Theme
}

// NewConfirmer returns a HuhConfirmer using the app theme
func NewConfirmer() *HuhConfirmer {
	return &HuhConfirmer{Theme: NewAppTheme()}
}

// Confirm implements scanner.Confirmer. Aborting the prompt (ctrl+c)
// returns scanner.ErrAborted so the remaining domains are skipped.
func (c *HuhConfirmer) Confirm(domain string, cmd scanner.Command, rawCount, cleanCount int) (bool, error) {
	run := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Run sqlmap against %s?", domain)).
				Description(confirmDescription(cmd, rawCount, cleanCount)).
				Affirmative("Yes, run it").
				Negative("No, just print it").
				Value(&run),
		),
	)
	if c.Theme != nil {
		form = form.WithTheme(c.Theme)
	}

	if err := form.Run(); err != nil {
		return false, confirmError(err)
	}

	return run, nil
}

func confirmError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return scanner.ErrAborted
	}
	return fmt.Errorf("prompt failed: %w", err)
}

func confirmDescription(cmd scanner.Command, rawCount, cleanCount int) string {
	return fmt.Sprintf("%d archived URLs, %d candidates\n%s", rawCount, cleanCount, cmd.String())
}
