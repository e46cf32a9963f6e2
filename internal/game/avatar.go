package game

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// Avatar is the display metadata resolved from a client-supplied avatar id.
// Avatars are static assets loaded at startup; users reference them but
// never mutate them.
type Avatar struct {
	Name   string `json:"name"`
	Sprite string `json:"sprite"`
}

// Validate satisfies storage.ValidatingSpec.
func (a *Avatar) Validate() error {
	el := errors.NewErrorList()

	if a.Name == "" {
		el.Add(fmt.Errorf("avatar name is required"))
	}
	if a.Sprite == "" {
		el.Add(fmt.Errorf("sprite is required"))
	}

	return el.Err()
}
