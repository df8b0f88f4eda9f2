package budget

import (
	"sort"
	"time"
)

// MeterState is a snapshot of the live spending meter, consumed by
// presentation layers and downstream order processing.
type MeterState struct {
	// LimitID identifies the tracked limit.
	LimitID string `json:"limitId"`

	// Spent is the running spend for the current period.
	Spent float64 `json:"spent"`

	// Limit is the effective limit for the period, including any
	// rollover.
	Limit float64 `json:"limit"`

	// Remaining is max(0, Limit - Spent).
	Remaining float64 `json:"remaining"`

	// Percentage is Spent / Limit × 100, unclamped.
	Percentage float64 `json:"percentage"`

	// ThresholdLevel is the index of the highest crossed threshold,
	// or -1 below every threshold.
	ThresholdLevel int `json:"thresholdLevel"`

	// Threshold is the crossed threshold itself; zero value at level -1.
	Threshold Threshold `json:"threshold"`

	// SoftLimitExceeded and HardLimitExceeded report the percentage
	// flags at the time of the snapshot.
	SoftLimitExceeded bool `json:"softLimitExceeded"`
	HardLimitExceeded bool `json:"hardLimitExceeded"`

	// PeriodStart and PeriodEnd bound the current period.
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`

	// UpdatedAt is when the meter last recomputed.
	UpdatedAt time.Time `json:"updatedAt"`
}

// MeterHooks carries the meter's notification callbacks. Nil callbacks
// are not invoked.
type MeterHooks struct {
	// OnThresholdChange is edge-triggered: it fires only on the
	// recomputation where the threshold level changes, in either
	// direction.
	OnThresholdChange func(previous, current int, state *MeterState)

	// OnSoftLimitExceeded is level-triggered: it fires on every
	// recomputation where the soft limit percentage is reached,
	// including repeats.
	OnSoftLimitExceeded func(state *MeterState)

	// OnLimitExceeded is level-triggered: it fires on every
	// recomputation where spend exceeds the effective limit,
	// including repeats.
	OnLimitExceeded func(state *MeterState)
}

// Meter tracks live spending against one limit and fires threshold
// notifications. The previous threshold level is held per meter
// instance, never globally, so independent limits notify independently.
//
// A meter assumes one mutation at a time; the hosting service
// serializes writes per limit instance.
type Meter struct {
	cfg   *SpendingLimit
	hooks MeterHooks

	// thresholds is the notification ladder, sorted ascending.
	thresholds []Threshold

	// spent and limit are the live period counters. limit includes
	// rollover after a period reset.
	spent float64
	limit float64

	// prevLevel is the threshold level of the previous recomputation,
	// the state that makes OnThresholdChange edge-triggered.
	prevLevel int

	periodStart time.Time
	periodEnd   time.Time

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewMeter creates a meter for the limit, seeded from the limit's
// current SpentAmount. Creation never fires callbacks: the previous
// level starts at the current level, so only subsequent mutations can
// produce an edge.
func NewMeter(cfg *SpendingLimit, hooks MeterHooks) *Meter {
	thresholds := cfg.Thresholds
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds()
	}
	sorted := make([]Threshold, len(thresholds))
	copy(sorted, thresholds)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Percentage < sorted[j].Percentage
	})

	m := &Meter{
		cfg:         cfg,
		hooks:       hooks,
		thresholds:  sorted,
		spent:       cfg.SpentAmount,
		limit:       CalculateEffectiveLimit(cfg, cfg.RolloverAmount),
		periodStart: cfg.PeriodStart,
		periodEnd:   cfg.PeriodEnd,
		now:         time.Now,
	}
	m.prevLevel = m.level()
	return m
}

// AddSpending posts a transaction amount and recomputes the meter.
func (m *Meter) AddSpending(amount float64) *MeterState {
	m.spent += amount
	return m.recompute()
}

// SetSpent overwrites the running spend (used by external correction
// postings) and recomputes the meter.
func (m *Meter) SetSpent(amount float64) *MeterState {
	m.spent = amount
	return m.recompute()
}

// Spent returns the current running spend.
func (m *Meter) Spent() float64 {
	return m.spent
}

// EffectiveLimit returns the current period's limit including rollover.
func (m *Meter) EffectiveLimit() float64 {
	return m.limit
}

// State returns the current snapshot without recomputing or firing
// callbacks.
func (m *Meter) State() *MeterState {
	return m.snapshot()
}

// StartNewPeriod rolls the meter into the period containing the
// reference date: the rollover amount is computed from the closing
// spend, the period bounds are recomputed, spend resets to zero, and
// the effective limit becomes MaxAmount plus rollover. The threshold
// level resets with the spend, without firing an edge for the reset
// itself.
func (m *Meter) StartNewPeriod(ref time.Time) (*MeterState, error) {
	rollover := CalculateRollover(m.spent, m.cfg)

	start, end, err := PeriodBounds(m.cfg, ref)
	if err != nil {
		return nil, err
	}

	m.periodStart = start
	m.periodEnd = end
	m.spent = 0
	m.limit = CalculateEffectiveLimit(m.cfg, rollover)
	m.prevLevel = m.level()

	m.cfg.SpentAmount = 0
	m.cfg.PeriodStart = start
	m.cfg.PeriodEnd = end
	m.cfg.RolloverAmount = rollover

	return m.snapshot(), nil
}

// recompute derives the new state, fires the level-triggered callbacks
// whenever their condition holds, and fires the edge-triggered
// threshold callback only when the level moved.
func (m *Meter) recompute() *MeterState {
	m.cfg.SpentAmount = m.spent

	state := m.snapshot()

	level := m.level()
	if level != m.prevLevel {
		previous := m.prevLevel
		m.prevLevel = level
		if m.hooks.OnThresholdChange != nil {
			m.hooks.OnThresholdChange(previous, level, state)
		}
	}

	if state.SoftLimitExceeded && m.hooks.OnSoftLimitExceeded != nil {
		m.hooks.OnSoftLimitExceeded(state)
	}
	if m.spent > m.limit && m.hooks.OnLimitExceeded != nil {
		m.hooks.OnLimitExceeded(state)
	}

	return state
}

// snapshot builds the current MeterState.
func (m *Meter) snapshot() *MeterState {
	state := &MeterState{
		LimitID:        m.cfg.ID,
		Spent:          m.spent,
		Limit:          m.limit,
		ThresholdLevel: m.level(),
		PeriodStart:    m.periodStart,
		PeriodEnd:      m.periodEnd,
		UpdatedAt:      m.now(),
	}

	if m.limit > 0 {
		state.Percentage = m.spent / m.limit * 100
	}
	if remaining := m.limit - m.spent; remaining > 0 {
		state.Remaining = remaining
	}
	if state.ThresholdLevel >= 0 {
		state.Threshold = m.thresholds[state.ThresholdLevel]
	}

	softPct := m.cfg.SoftLimitPct
	if softPct == 0 {
		softPct = DefaultSoftLimitPct
	}
	hardPct := m.cfg.HardLimitPct
	if hardPct == 0 {
		hardPct = DefaultHardLimitPct
	}
	state.SoftLimitExceeded = state.Percentage >= softPct
	state.HardLimitExceeded = state.Percentage >= hardPct

	return state
}

// level returns the index of the highest threshold the current
// percentage has reached, or -1 below every threshold.
func (m *Meter) level() int {
	if m.limit <= 0 {
		return -1
	}
	percentage := m.spent / m.limit * 100

	level := -1
	for i, t := range m.thresholds {
		if percentage >= t.Percentage {
			level = i
		}
	}
	return level
}
