// Package network simulates the connectivity layer. There is no real
// transport: connectivity is a mutable snapshot, and API calls are
// randomized-outcome delays behind a bounded retry helper. Callers receive
// tagged results, never errors thrown past this boundary.
package network

import (
	"context"
	"log/slog"
	"math/rand"
	stdSync "sync"
	"time"

	apperrors "github.com/rintaro216/hokkaido-community-app/errors"
	"github.com/rintaro216/hokkaido-community-app/logging"
)

// ConnectionType describes the transport medium.
type ConnectionType string

const (
	ConnWifi     ConnectionType = "wifi"
	ConnCellular ConnectionType = "cellular"
	ConnNone     ConnectionType = "none"
	ConnUnknown  ConnectionType = "unknown"
)

// NetworkState is the connectivity snapshot.
type NetworkState struct {
	IsConnected         bool           `json:"isConnected"`
	ConnectionType      ConnectionType `json:"connectionType"`
	IsInternetReachable bool           `json:"isInternetReachable"`
}

// Config tunes the simulation. Zero values take the defaults below.
type Config struct {
	// UpProbability is the chance CheckConnection reports connected.
	UpProbability float64

	// CallFailureRate is the chance a simulated API call fails.
	CallFailureRate float64

	// CallLatency is the simulated per-call delay.
	CallLatency time.Duration

	// Retry configures the shared retry helper.
	Retry RetryConfig
}

func (c *Config) setDefaults() {
	if c.UpProbability == 0 {
		c.UpProbability = 0.9
	}
	if c.CallFailureRate == 0 {
		c.CallFailureRate = 0.2
	}
	if c.CallLatency == 0 {
		c.CallLatency = time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = DefaultRetryConfig()
	}
}

// Service owns the connectivity state and listener list. It is an explicit
// object passed to whatever owns the application lifecycle; there is no
// package-level mutable state.
type Service struct {
	mu        stdSync.RWMutex
	state     NetworkState
	listeners map[int]func(NetworkState)
	nextID    int

	config   Config
	logger   *logging.Logger
	recorder *apperrors.Recorder

	randMu stdSync.Mutex
	randFn func() float64
}

// New creates a Service. A nil config uses the defaults.
func New(config *Config, logger *logging.Logger, recorder *apperrors.Recorder) *Service {
	if config == nil {
		config = &Config{}
	}
	config.setDefaults()
	if logger == nil {
		logger = logging.Default()
	}
	if recorder == nil {
		recorder = apperrors.NewRecorder()
	}
	return &Service{
		state: NetworkState{
			IsConnected:         false,
			ConnectionType:      ConnUnknown,
			IsInternetReachable: false,
		},
		listeners: make(map[int]func(NetworkState)),
		config:    *config,
		logger:    logger.WithComponent("network"),
		recorder:  recorder,
		randFn:    rand.Float64,
	}
}

// Initialize sets the startup connectivity snapshot once. There is no real
// probing.
func (s *Service) Initialize(ctx context.Context) {
	s.setState(NetworkState{
		IsConnected:         true,
		ConnectionType:      ConnWifi,
		IsInternetReachable: true,
	})
	s.logger.InfoContext(ctx, "network service initialized",
		slog.Bool("connected", true),
		slog.String("connection_type", string(ConnWifi)),
	)
}

// State returns a copy of the current connectivity snapshot.
func (s *Service) State() NetworkState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// AddListener registers a state-change listener and returns its unsubscribe
// function. Listener order is not guaranteed, and a panicking listener does
// not prevent the others from firing.
func (s *Service) AddListener(listener func(NetworkState)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = listener

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// CheckConnection re-rolls connectivity and notifies listeners of any state
// change. Returns the new connected flag.
func (s *Service) CheckConnection(ctx context.Context) bool {
	connected := s.roll() < s.config.UpProbability

	s.mu.Lock()
	prev := s.state
	s.state.IsConnected = connected
	s.state.IsInternetReachable = connected
	if connected && s.state.ConnectionType == ConnUnknown {
		s.state.ConnectionType = ConnWifi
	}
	changed := prev != s.state
	next := s.state
	s.mu.Unlock()

	if changed {
		s.notify(next)
	}
	return connected
}

// ConnectionMessage returns a short human-readable connectivity label.
func (s *Service) ConnectionMessage() string {
	state := s.State()

	if !state.IsConnected {
		return "オフライン"
	}
	if !state.IsInternetReachable {
		return "インターネットに接続されていません"
	}
	switch state.ConnectionType {
	case ConnWifi:
		return "Wi-Fi接続"
	case ConnCellular:
		return "モバイル回線"
	default:
		return "オンライン"
	}
}

// setState overwrites the snapshot and notifies listeners on change.
func (s *Service) setState(next NetworkState) {
	s.mu.Lock()
	changed := s.state != next
	s.state = next
	s.mu.Unlock()

	if changed {
		s.notify(next)
	}
}

func (s *Service) notify(state NetworkState) {
	s.mu.RLock()
	listeners := make([]func(NetworkState), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, listener := range listeners {
		func(l func(NetworkState)) {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Warn("network listener panicked", slog.Any("panic", r))
				}
			}()
			l(state)
		}(listener)
	}
}

func (s *Service) roll() float64 {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.randFn()
}
