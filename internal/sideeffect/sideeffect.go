// Package sideeffect models best-effort side effects: they run, and their
// failures are captured into a warning list on the operation's result
// instead of propagating. The primary operation's success must never depend
// on them.
package sideeffect

import "log"

type Warning struct {
	Effect  string `json:"effect"`
	Message string `json:"message"`
}

// Run executes fn and converts a failure into a logged warning.
func Run(effect string, fn func() error) *Warning {
	if err := fn(); err != nil {
		log.Printf("side effect %s failed: %v", effect, err)
		return &Warning{Effect: effect, Message: err.Error()}
	}
	return nil
}

// Collector accumulates warnings across a handler's side-effect fan-out.
type Collector struct {
	warnings []Warning
}

func (c *Collector) Run(effect string, fn func() error) {
	if w := Run(effect, fn); w != nil {
		c.warnings = append(c.warnings, *w)
	}
}

func (c *Collector) Add(effect, message string) {
	c.warnings = append(c.warnings, Warning{Effect: effect, Message: message})
}

// Warnings returns nil when everything succeeded, so JSON omits the field.
func (c *Collector) Warnings() []Warning {
	if len(c.warnings) == 0 {
		return nil
	}
	return c.warnings
}
