// Package demo decides per request whether live upstream calls are
// bypassed and which canned scenario serves instead.
package demo

import (
	"sync"
	"time"

	"github.com/mohammed-shakir/gridsight/internal/core/observability"
)

type Mode string

const (
	ModeStandard Mode = "standard"
	ModeFallback Mode = "fallback"
	ModeOffline  Mode = "offline"
)

const (
	ReasonNoCredential = "credential_missing"
	ReasonOffline      = "network_offline"
	ReasonBuildFlag    = "build_flag"
	ReasonManual       = "manual_toggle"
	ReasonDisabled     = "disabled"
)

// Inputs is everything the decision depends on. Callers assemble it fresh
// per request; nothing here is hidden global state.
type Inputs struct {
	BuildFlag         bool
	ManualFlag        bool
	CredentialPresent bool
	Online            bool
	Scenario          string
}

type Status struct {
	Enabled           bool   `json:"enabled"`
	Reason            string `json:"reason"`
	Mode              Mode   `json:"mode"`
	Scenario          string `json:"scenario"`
	ManuallyActivated bool   `json:"manuallyActivated"`
}

// Decide computes the demo status. Order matters: a missing credential
// forces fallback before anything else is considered, then offline, then
// the build/manual flags. Scenario selection is independent of the
// enabled decision.
func Decide(in Inputs) Status {
	st := Status{
		Scenario:          in.Scenario,
		ManuallyActivated: in.ManualFlag,
	}
	switch {
	case !in.CredentialPresent:
		st.Enabled = true
		st.Mode = ModeFallback
		st.Reason = ReasonNoCredential
	case !in.Online:
		st.Enabled = true
		st.Mode = ModeOffline
		st.Reason = ReasonOffline
	default:
		st.Mode = ModeStandard
		switch {
		case in.BuildFlag:
			st.Enabled = true
			st.Reason = ReasonBuildFlag
		case in.ManualFlag:
			st.Enabled = true
			st.Reason = ReasonManual
		default:
			st.Reason = ReasonDisabled
		}
	}
	return st
}

// Event records one manual toggle for post-hoc debugging.
type Event struct {
	Time     time.Time `json:"time"`
	Enabled  bool      `json:"enabled"`
	Scenario string    `json:"scenario"`
}

const eventLogCap = 64

// Controller holds the manual activation state. The decision itself stays
// in Decide; the controller only supplies inputs and records toggles.
type Controller struct {
	mu       sync.Mutex
	manual   bool
	scenario string
	events   []Event

	buildFlag  bool
	credential bool
	online     func() bool
	sink       func(Event)
	now        func() time.Time
}

type ControllerConfig struct {
	BuildFlag         bool
	CredentialPresent bool
	Scenario          string
	// Online reports current network reachability; nil means always online.
	Online func() bool
	// Sink receives toggle events (optional, e.g. the Kafka publisher).
	Sink func(Event)
	Now  func() time.Time
}

func NewController(cfg ControllerConfig) *Controller {
	if cfg.Scenario == "" {
		cfg.Scenario = DefaultScenario
	}
	if cfg.Online == nil {
		cfg.Online = func() bool { return true }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{
		scenario:   cfg.Scenario,
		buildFlag:  cfg.BuildFlag,
		credential: cfg.CredentialPresent,
		online:     cfg.Online,
		sink:       cfg.Sink,
		now:        cfg.Now,
	}
}

// Status derives the current demo status from fresh inputs.
func (c *Controller) Status() Status {
	c.mu.Lock()
	manual, scenario := c.manual, c.scenario
	c.mu.Unlock()

	st := Decide(Inputs{
		BuildFlag:         c.buildFlag,
		ManualFlag:        manual,
		CredentialPresent: c.credential,
		Online:            c.online(),
		Scenario:          scenario,
	})
	observability.ObserveDemoDecision(string(st.Mode), st.Reason)
	return st
}

// Toggle flips the manual activation flag and returns the new status.
func (c *Controller) Toggle() Status {
	c.mu.Lock()
	c.manual = !c.manual
	ev := Event{Time: c.now(), Enabled: c.manual, Scenario: c.scenario}
	c.appendEventLocked(ev)
	c.mu.Unlock()
	if c.sink != nil {
		c.sink(ev)
	}
	return c.Status()
}

// SetManual sets the manual flag explicitly (idempotent toggling from the
// UI sends the desired state rather than a flip).
func (c *Controller) SetManual(enabled bool) Status {
	c.mu.Lock()
	if c.manual != enabled {
		c.manual = enabled
		ev := Event{Time: c.now(), Enabled: enabled, Scenario: c.scenario}
		c.appendEventLocked(ev)
		c.mu.Unlock()
		if c.sink != nil {
			c.sink(ev)
		}
		return c.Status()
	}
	c.mu.Unlock()
	return c.Status()
}

// SetScenario switches the selected scenario if it exists.
func (c *Controller) SetScenario(name string) bool {
	if _, ok := Lookup(name); !ok {
		return false
	}
	c.mu.Lock()
	c.scenario = name
	c.mu.Unlock()
	return true
}

// Events returns a copy of the rolling toggle log, oldest first.
func (c *Controller) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *Controller) appendEventLocked(ev Event) {
	c.events = append(c.events, ev)
	if len(c.events) > eventLogCap {
		c.events = c.events[len(c.events)-eventLogCap:]
	}
}
