package app

import "sync"

// Connection represents a live duplex connection held by one player
type Connection interface {
	ID() string
	Send(message interface{}) error
	Close() error
}

// Binding is the (match, player) pair a connection speaks for
type Binding struct {
	MatchCode string
	PlayerID  string
}

type boundConn struct {
	Binding
	seq uint64
}

// ConnectionRegistry maps connection ids to the player they represent and
// match codes to their live connections. It holds no game state.
//
// A pruned connection leaves the live set immediately but keeps its binding
// until Detach, so the owning session still learns when a player's last
// connection goes away.
type ConnectionRegistry struct {
	mu       sync.RWMutex
	bindings map[string]boundConn             // connID -> binding
	live     map[string]map[string]Connection // matchCode -> connID -> conn
	players  map[Binding]int                  // open bindings per player
	seq      uint64
}

// NewConnectionRegistry creates an empty registry
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		bindings: make(map[string]boundConn),
		live:     make(map[string]map[string]Connection),
		players:  make(map[Binding]int),
	}
}

// Attach binds a connection to a player and adds it to the match's live set
func (r *ConnectionRegistry) Attach(matchCode, playerID string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	if old, ok := r.bindings[id]; ok {
		r.unbindLocked(id, old)
	}

	r.seq++
	b := Binding{MatchCode: matchCode, PlayerID: playerID}
	r.bindings[id] = boundConn{Binding: b, seq: r.seq}
	r.players[b]++

	conns, ok := r.live[matchCode]
	if !ok {
		conns = make(map[string]Connection)
		r.live[matchCode] = conns
	}
	conns[id] = conn
}

// Detach forgets a connection. last reports whether it was the player's
// final open connection in that match.
func (r *ConnectionRegistry) Detach(connID string) (b Binding, last bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bc, ok := r.bindings[connID]
	if !ok {
		return Binding{}, false, false
	}

	r.unbindLocked(connID, bc)
	return bc.Binding, r.players[bc.Binding] == 0, true
}

func (r *ConnectionRegistry) unbindLocked(connID string, bc boundConn) {
	delete(r.bindings, connID)

	if r.players[bc.Binding]--; r.players[bc.Binding] <= 0 {
		delete(r.players, bc.Binding)
	}

	if conns, ok := r.live[bc.MatchCode]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.live, bc.MatchCode)
		}
	}
}

// Connections returns a snapshot of a match's live connections
func (r *ConnectionRegistry) Connections(matchCode string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Connection, 0, len(r.live[matchCode]))
	for _, conn := range r.live[matchCode] {
		conns = append(conns, conn)
	}
	return conns
}

// PlayerConnection returns the most recently attached live connection of a player
func (r *ConnectionRegistry) PlayerConnection(matchCode, playerID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		found Connection
		best  uint64
	)
	for id, conn := range r.live[matchCode] {
		bc := r.bindings[id]
		if bc.PlayerID == playerID && bc.seq > best {
			found, best = conn, bc.seq
		}
	}
	return found, found != nil
}

// Prune removes connections from a match's live set after a failed send
func (r *ConnectionRegistry) Prune(matchCode string, connIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.live[matchCode]
	if !ok {
		return
	}
	for _, id := range connIDs {
		delete(conns, id)
	}
	if len(conns) == 0 {
		delete(r.live, matchCode)
	}
}

// DropMatch forgets every connection of a match and returns the live ones
func (r *ConnectionRegistry) DropMatch(matchCode string) []Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := make([]Connection, 0, len(r.live[matchCode]))
	for _, conn := range r.live[matchCode] {
		conns = append(conns, conn)
	}

	for id, bc := range r.bindings {
		if bc.MatchCode == matchCode {
			r.unbindLocked(id, bc)
		}
	}
	delete(r.live, matchCode)

	return conns
}

// MatchConnectionCount returns the number of live connections of a match
func (r *ConnectionRegistry) MatchConnectionCount(matchCode string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live[matchCode])
}

// Count returns the number of bound connections across all matches
func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
