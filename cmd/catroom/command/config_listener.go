package command

import (
	"fmt"

	"github.com/pixil98/catroom/internal/listener"
	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-service"
)

const defaultWsPath = "/ws"

type ListenerConfig struct {
	Port uint16 `json:"port"`
	Path string `json:"path,omitempty"`
}

func (cl *ListenerConfig) validate() error {
	el := errors.NewErrorList()

	if cl.Port == 0 {
		el.Add(fmt.Errorf("port must be set to a positive integer"))
	}

	return el.Err()
}

func (cl *ListenerConfig) BuildListener(cm *listener.ConnectionManager) (service.Worker, error) {
	path := cl.Path
	if path == "" {
		path = defaultWsPath
	}

	return listener.NewWsListener(cl.Port, path, cm), nil
}
