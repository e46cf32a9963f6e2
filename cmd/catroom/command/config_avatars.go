package command

import (
	"fmt"

	"github.com/pixil98/catroom/internal/game"
	"github.com/pixil98/catroom/internal/storage"
	"github.com/pixil98/go-errors"
)

type AvatarConfig struct {
	Path    string `json:"path"`
	Default string `json:"default"`
}

func (c *AvatarConfig) validate() error {
	el := errors.NewErrorList()

	if c.Path == "" {
		el.Add(fmt.Errorf("path is required"))
	}
	if c.Default == "" {
		el.Add(fmt.Errorf("default is required"))
	}

	return el.Err()
}

// BuildStore loads the avatar assets and resolves the fallback used for
// unknown avatar ids.
func (c *AvatarConfig) BuildStore() (*storage.FileStore[*game.Avatar], *game.Avatar, error) {
	store, err := storage.NewFileStore[*game.Avatar](c.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading avatars: %w", err)
	}

	fallback := store.Get(c.Default)
	if fallback == nil {
		return nil, nil, fmt.Errorf("default avatar %q not found in %s", c.Default, c.Path)
	}

	return store, fallback, nil
}
