package command

import (
	"fmt"
	"time"

	"github.com/pixil98/catroom/internal/game"
	"github.com/pixil98/catroom/internal/listener"
	"github.com/pixil98/catroom/internal/messaging"
	"github.com/pixil98/catroom/internal/roomlist"
	"github.com/pixil98/catroom/internal/session"
	"github.com/pixil98/catroom/internal/web"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	stepInterval, err := time.ParseDuration(cfg.StepInterval)
	if err != nil {
		return nil, fmt.Errorf("parsing step_interval: %w", err)
	}

	// Broadcast bus
	bus, err := cfg.Nats.BuildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	// Static avatar assets
	avatars, fallback, err := cfg.Avatars.BuildStore()
	if err != nil {
		return nil, fmt.Errorf("creating avatar store: %w", err)
	}

	// Shared room state and its collaborators
	registry := game.NewRegistry()
	pub := messaging.NewRoomPublisher(bus)
	mover := game.NewMover(registry, pub, stepInterval, cfg.GridSize)
	rooms := roomlist.NewService(registry)
	sessions := session.NewManager(registry, mover, avatars, fallback, rooms, pub, cfg.GridSize)
	cm := listener.NewConnectionManager(sessions, bus)

	// Create Listeners
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		lst, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = lst
	}

	// Create a worker list
	return service.WorkerList{
		"nats":      bus,
		"listeners": &listeners,
		"web":       web.NewServer(cfg.Web.Port, rooms),
	}, nil
}
