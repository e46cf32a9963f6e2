package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

type Config struct {
	GridSize     int              `json:"grid_size"`
	StepInterval string           `json:"step_interval"`
	Listeners    []ListenerConfig `json:"listeners"`
	Nats         NatsConfig       `json:"nats"`
	Web          WebConfig        `json:"web"`
	Avatars      AvatarConfig     `json:"avatars"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.GridSize <= 0 {
		el.Add(fmt.Errorf("grid_size must be a positive integer"))
	}

	d, err := time.ParseDuration(c.StepInterval)
	if err != nil {
		el.Add(fmt.Errorf("parsing step_interval: %w", err))
	} else if d <= 0 {
		el.Add(fmt.Errorf("step_interval must be positive"))
	}

	if len(c.Listeners) == 0 {
		el.Add(fmt.Errorf("at least one listener is required"))
	}
	for i, l := range c.Listeners {
		err := l.validate()
		if err != nil {
			el.Add(fmt.Errorf("listener %d: %w", i, err))
		}
	}

	el.Add(c.Nats.validate())
	el.Add(c.Web.validate())
	el.Add(c.Avatars.validate())

	return el.Err()
}

type WebConfig struct {
	Port uint16 `json:"port"`
}

func (c *WebConfig) validate() error {
	el := errors.NewErrorList()

	if c.Port == 0 {
		el.Add(fmt.Errorf("port must be set to a positive integer"))
	}

	return el.Err()
}
