package roomlist

import (
	"sort"

	"github.com/pixil98/catroom/internal/game"
)

// Summary is one room's entry in the public room list.
type Summary struct {
	Title   string `json:"title"`
	NumCats int    `json:"numCats"`
}

// Service projects the registry into room summaries. It never mutates
// anything and is safe to call concurrently with joins and leaves; each
// List call reflects a single registry read.
type Service struct {
	registry *game.Registry
}

func NewService(registry *game.Registry) *Service {
	return &Service{registry: registry}
}

// List returns every room with its live member count, sorted by title so
// callers see a stable order.
func (s *Service) List() []Summary {
	counts := s.registry.AllRooms()

	rooms := make([]Summary, 0, len(counts))
	for id, n := range counts {
		rooms = append(rooms, Summary{Title: id, NumCats: n})
	}

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Title < rooms[j].Title })
	return rooms
}
