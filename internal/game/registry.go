package game

import "sync"

// Registry is the single source of truth for room membership and user
// positions. All access goes through its methods; mutations are serialized
// behind the lock so concurrent connection handlers and movement ticks
// cannot violate membership invariants.
//
// Rooms exist implicitly: joining an absent room creates it, and a room is
// dropped as soon as its last member leaves. Absent rooms behave as empty.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string][]*User // members in join order
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string][]*User),
	}
}

// Join adds a user to a room, creating the room if it doesn't exist yet.
// Returns ErrUserExists if the user is already a member.
func (r *Registry) Join(roomId string, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.rooms[roomId] {
		if u.UserId == user.UserId {
			return ErrUserExists
		}
	}

	r.rooms[roomId] = append(r.rooms[roomId], user)
	return nil
}

// Leave removes a user from a room. Removing an absent user, or leaving an
// absent room, is a no-op. The room itself is dropped when it empties.
func (r *Registry) Leave(roomId string, userId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[roomId]
	for i, u := range members {
		if u.UserId == userId {
			r.rooms[roomId] = append(members[:i:i], members[i+1:]...)
			break
		}
	}

	if len(r.rooms[roomId]) == 0 {
		delete(r.rooms, roomId)
	}
}

// Get returns a snapshot of a single room member.
func (r *Registry) Get(roomId string, userId string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.rooms[roomId] {
		if u.UserId == userId {
			return *u, true
		}
	}
	return User{}, false
}

// MembersOf returns a snapshot of a room's members in join order. An absent
// room yields an empty slice.
func (r *Registry) MembersOf(roomId string) []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]User, 0, len(r.rooms[roomId]))
	for _, u := range r.rooms[roomId] {
		members = append(members, *u)
	}
	return members
}

// AllRooms returns the member count of every room. Emptied rooms are pruned
// on leave, so every reported room has at least one member.
func (r *Registry) AllRooms() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, len(r.rooms))
	for id, members := range r.rooms {
		counts[id] = len(members)
	}
	return counts
}

// StepToward advances a user one cell toward dest, exhausting the row delta
// before the column delta. A column step also sets the avatar's facing to
// the direction of travel; row steps leave it alone. Returns the updated
// snapshot and whether the user was found. When the user is already at
// dest, the position is returned unchanged.
func (r *Registry) StepToward(roomId string, userId string, dest Position) (User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.rooms[roomId] {
		if u.UserId != userId {
			continue
		}

		switch {
		case u.Position.Row < dest.Row:
			u.Position.Row++
		case u.Position.Row > dest.Row:
			u.Position.Row--
		case u.Position.Col < dest.Col:
			u.Position.Col++
			u.AvatarXAxis = XAxisRight
		case u.Position.Col > dest.Col:
			u.Position.Col--
			u.AvatarXAxis = XAxisLeft
		}

		return *u, true
	}

	return User{}, false
}
