package flight

import (
	"context"
	"slices"
)

// DefaultOption resolves the option for m's next attempt. option is the one
// chosen for the previous attempt and lastErr its outcome.
func (c *Controller) DefaultOption(m Maneuver, option Option, lastErr error) Option {
	options := OptionsOf(m)
	valid := func(o Option) bool { return slices.Contains(options, o) }

	if lastErr != nil && c.Retry >= 0 && m.Base().ErrorCount() > c.Retry && valid(ActionSkipUp) {
		return ActionSkipUp
	}
	if lastErr != nil && valid(ActionRepair) {
		return ActionRepair
	}
	if option.IsInteraction() && valid(option) {
		return option
	}
	if valid(c.mode) {
		return c.mode
	}
	for _, mode := range modes {
		if valid(mode) {
			return mode
		}
	}
	return ActionQuit
}

// SelectOption returns the default without asking when nothing went wrong
// and the default is the sticky mode, unless that mode stops for the
// operator anyway. Otherwise the operator picks from a menu.
func (c *Controller) SelectOption(ctx context.Context, m Maneuver, option Option, lastErr error, message string) (Option, error) {
	def := c.DefaultOption(m, option, lastErr)
	if lastErr == nil && def == c.mode && def != ModeStepNext && def != ModeManual {
		return def, nil
	}
	menu := OptionsOf(m)
	if !slices.Contains(menu, def) {
		menu = append(menu, def)
	}
	if !slices.Contains(menu, ActionQuit) {
		menu = append(menu, ActionQuit)
	}
	return c.Operator.PresentMenu(ctx, menu, def, message)
}
