package app

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"

	"suspect/internal/domain"
)

const (
	// DefaultStaleMatchTimeout is how long an empty match is kept around
	DefaultStaleMatchTimeout = 2 * time.Hour

	// DefaultCleanupInterval is how often stale matches are looked for
	DefaultCleanupInterval = 10 * time.Minute

	// codeAttempts bounds regeneration on collision with a live match
	codeAttempts = 10
)

const (
	codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeDigits  = "0123456789"
)

// HubOptions configures a MatchHub
type HubOptions struct {
	Settings          domain.MatchSettings
	RevealDelay       time.Duration
	StaleMatchTimeout time.Duration
	CleanupInterval   time.Duration
}

// DefaultHubOptions returns the default hub options
func DefaultHubOptions() HubOptions {
	return HubOptions{
		Settings:          domain.DefaultMatchSettings(),
		RevealDelay:       DefaultRevealDelay,
		StaleMatchTimeout: DefaultStaleMatchTimeout,
		CleanupInterval:   DefaultCleanupInterval,
	}
}

// MatchHub owns every live match session and the connections bound to them
type MatchHub struct {
	sessions    map[string]*MatchSession
	mu          sync.RWMutex
	opts        HubOptions
	conns       *ConnectionRegistry
	broadcaster *Broadcaster
	logger      *slog.Logger
	done        chan struct{}
	closeOnce   sync.Once

	// Swappable in tests
	newCode func() (string, error)
	newRand func() *mathrand.Rand
}

// NewMatchHub creates a new match hub
func NewMatchHub(opts HubOptions, logger *slog.Logger) *MatchHub {
	if opts.RevealDelay <= 0 {
		opts.RevealDelay = DefaultRevealDelay
	}
	if opts.StaleMatchTimeout <= 0 {
		opts.StaleMatchTimeout = DefaultStaleMatchTimeout
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}

	conns := NewConnectionRegistry()
	hub := &MatchHub{
		sessions:    make(map[string]*MatchSession),
		opts:        opts,
		conns:       conns,
		broadcaster: NewBroadcaster(conns, logger),
		logger:      logger,
		done:        make(chan struct{}),
		newCode:     GenerateMatchCode,
		newRand:     newSeededRand,
	}

	// Start cleanup goroutine
	go hub.cleanupLoop()

	return hub
}

// CreateMatch creates a new match and returns its session
func (h *MatchHub) CreateMatch() (*MatchSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Regenerate on collision with a live match
	var code string
	for attempts := 0; attempts < codeAttempts; attempts++ {
		candidate, err := h.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate match code: %w", err)
		}
		if _, exists := h.sessions[candidate]; !exists {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, domain.ErrCodeSpaceExhausted
	}

	match := domain.NewMatch(code, h.opts.Settings)
	session := NewMatchSession(match, h.newRand(), h.conns, h.broadcaster, h.opts.RevealDelay, h.logger)
	h.sessions[code] = session

	h.logger.Info("match created", "matchCode", code)

	return session, nil
}

// GetSession returns a match session by code
func (h *MatchHub) GetSession(code string) (*MatchSession, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	session, ok := h.sessions[code]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}

	return session, nil
}

// JoinMatch adds a named player to a match in the lobby
func (h *MatchHub) JoinMatch(code, name string) (*domain.Player, error) {
	session, err := h.GetSession(code)
	if err != nil {
		return nil, err
	}
	return session.Join(name)
}

// StartMatch assigns roles and starts a match
func (h *MatchHub) StartMatch(code string) (domain.Phase, error) {
	session, err := h.GetSession(code)
	if err != nil {
		return "", err
	}
	return session.Start()
}

// Snapshot returns the public state of a match
func (h *MatchHub) Snapshot(code string) (*domain.MatchInfo, error) {
	session, err := h.GetSession(code)
	if err != nil {
		return nil, err
	}
	return session.Snapshot(), nil
}

// ReassignHostOnDisconnect removes a player and promotes a new host if the
// departing player held it. Unknown matches and players are ignored.
func (h *MatchHub) ReassignHostOnDisconnect(code, playerID string) {
	session, err := h.GetSession(code)
	if err != nil {
		return
	}

	if err := session.Leave(playerID); err != nil && !errors.Is(err, domain.ErrPlayerNotFound) {
		h.logger.Warn("failed to remove player", "matchCode", code, "playerID", playerID, "error", err)
	}
}

// Connections returns the hub's connection registry
func (h *MatchHub) Connections() *ConnectionRegistry {
	return h.conns
}

// GetSessionCount returns the number of active sessions
func (h *MatchHub) GetSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// GetTotalPlayerCount returns the total number of players across all sessions
func (h *MatchHub) GetTotalPlayerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, session := range h.sessions {
		total += session.GetPlayerCount()
	}
	return total
}

// Close shuts down the hub and all sessions
func (h *MatchHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()

		for _, session := range h.sessions {
			session.Close()
		}
		h.sessions = make(map[string]*MatchSession)
	})
}

// cleanupLoop periodically cleans up stale matches
func (h *MatchHub) cleanupLoop() {
	ticker := time.NewTicker(h.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.cleanupStaleMatches(time.Now())
		}
	}
}

// cleanupStaleMatches removes matches nobody is connected to that have been
// around too long and are either empty or already over
func (h *MatchHub) cleanupStaleMatches(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	stale := make([]string, 0)
	for code, session := range h.sessions {
		if h.conns.MatchConnectionCount(code) > 0 ||
			now.Sub(session.GetCreatedAt()) <= h.opts.StaleMatchTimeout {
			continue
		}
		if session.GetPlayerCount() == 0 || session.GetPhase().IsTerminal() {
			stale = append(stale, code)
		}
	}

	for _, code := range stale {
		h.sessions[code].Close()
		delete(h.sessions, code)
		h.logger.Info("stale match cleaned up", "matchCode", code)
	}
	return len(stale)
}

// GenerateMatchCode returns four uppercase letters followed by two digits
func GenerateMatchCode() (string, error) {
	code := make([]byte, 0, 6)
	for i := 0; i < 4; i++ {
		c, err := randomChar(rand.Reader, codeLetters)
		if err != nil {
			return "", err
		}
		code = append(code, c)
	}
	for i := 0; i < 2; i++ {
		c, err := randomChar(rand.Reader, codeDigits)
		if err != nil {
			return "", err
		}
		code = append(code, c)
	}
	return string(code), nil
}

// randomChar draws uniformly from alphabet, rejecting bytes past the largest
// multiple of its length
func randomChar(src io.Reader, alphabet string) (byte, error) {
	limit := 256 - 256%len(alphabet)
	b := make([]byte, 1)
	for {
		if _, err := io.ReadFull(src, b); err != nil {
			return 0, err
		}
		if int(b[0]) < limit {
			return alphabet[int(b[0])%len(alphabet)], nil
		}
	}
}

func newSeededRand() *mathrand.Rand {
	b := make([]byte, 8)
	seed := time.Now().UnixNano()
	if _, err := rand.Read(b); err == nil {
		seed = int64(binary.LittleEndian.Uint64(b))
	}
	return mathrand.New(mathrand.NewSource(seed))
}
