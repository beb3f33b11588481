package demo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide_CredentialMissingForcesFallback(t *testing.T) {
	// every other input combination must lose to the missing credential
	for _, build := range []bool{false, true} {
		for _, manual := range []bool{false, true} {
			for _, online := range []bool{false, true} {
				st := Decide(Inputs{
					BuildFlag:         build,
					ManualFlag:        manual,
					CredentialPresent: false,
					Online:            online,
					Scenario:          "powerline",
				})
				assert.True(t, st.Enabled)
				assert.Equal(t, ModeFallback, st.Mode)
				assert.Equal(t, ReasonNoCredential, st.Reason)
			}
		}
	}
}

func TestDecide_OfflineBeatsFlags(t *testing.T) {
	st := Decide(Inputs{CredentialPresent: true, Online: false, BuildFlag: true})
	assert.True(t, st.Enabled)
	assert.Equal(t, ModeOffline, st.Mode)
	assert.Equal(t, ReasonOffline, st.Reason)
}

func TestDecide_FlagsInStandardMode(t *testing.T) {
	cases := []struct {
		name          string
		build, manual bool
		enabled       bool
		reason        string
	}{
		{"neither", false, false, false, ReasonDisabled},
		{"build", true, false, true, ReasonBuildFlag},
		{"manual", false, true, true, ReasonManual},
		{"both prefers build reason", true, true, true, ReasonBuildFlag},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := Decide(Inputs{
				BuildFlag:         tc.build,
				ManualFlag:        tc.manual,
				CredentialPresent: true,
				Online:            true,
			})
			assert.Equal(t, ModeStandard, st.Mode)
			assert.Equal(t, tc.enabled, st.Enabled)
			assert.Equal(t, tc.reason, st.Reason)
		})
	}
}

func TestDecide_ScenarioIndependentOfEnabled(t *testing.T) {
	st := Decide(Inputs{CredentialPresent: true, Online: true, Scenario: "transformer"})
	assert.False(t, st.Enabled)
	assert.Equal(t, "transformer", st.Scenario)
}

func TestController_ToggleAndEventLog(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	c := NewController(ControllerConfig{
		CredentialPresent: true,
		Scenario:          "powerline",
		Now:               func() time.Time { return now },
	})

	st := c.Status()
	require.False(t, st.Enabled)

	st = c.Toggle()
	assert.True(t, st.Enabled)
	assert.True(t, st.ManuallyActivated)
	assert.Equal(t, ReasonManual, st.Reason)

	st = c.Toggle()
	assert.False(t, st.Enabled)

	events := c.Events()
	require.Len(t, events, 2)
	assert.True(t, events[0].Enabled)
	assert.False(t, events[1].Enabled)
}

func TestController_EventLogBounded(t *testing.T) {
	c := NewController(ControllerConfig{CredentialPresent: true})
	for i := 0; i < eventLogCap*3; i++ {
		c.Toggle()
	}
	events := c.Events()
	assert.Len(t, events, eventLogCap)
	// oldest dropped first: the log must end with the latest toggle state
	assert.Equal(t, events[len(events)-1].Enabled, false)
}

func TestController_SetManualIdempotent(t *testing.T) {
	c := NewController(ControllerConfig{CredentialPresent: true})
	c.SetManual(true)
	c.SetManual(true)
	assert.Len(t, c.Events(), 1, "repeated same-state set must not log")
}

func TestController_SetScenario(t *testing.T) {
	c := NewController(ControllerConfig{CredentialPresent: true})
	assert.True(t, c.SetScenario("transformer"))
	assert.Equal(t, "transformer", c.Status().Scenario)
	assert.False(t, c.SetScenario("nonexistent"))
	assert.Equal(t, "transformer", c.Status().Scenario)
}

func TestScenarioRegistry(t *testing.T) {
	for _, name := range []string{"powerline", "transformer", "substation"} {
		s, ok := Lookup(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, s.ImageFile)
		assert.NotEmpty(t, s.Analysis.Components)
		assert.Len(t, s.Analysis.Annotations, len(s.Analysis.Components))
		assert.NotEmpty(t, s.Future.Analysis.PotentialIssues)
	}
	_, ok := Lookup("missing")
	assert.False(t, ok)
}
