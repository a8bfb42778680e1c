package decision

import "fmt"

// Mode is the fan controller mode an Action asks for
type Mode int

const (
	ModeManual Mode = iota
	ModeAutomatic
)

func (m Mode) String() string {
	if m == ModeAutomatic {
		return "automatic"
	}

	return "manual"
}

// Action is either Automatic or Manual with a speed in percent
type Action struct {
	Mode  Mode
	Speed int
}

func Automatic() Action {
	return Action{Mode: ModeAutomatic}
}

func Manual(speed int) Action {
	return Action{Mode: ModeManual, Speed: speed}
}

func (a Action) IsAutomatic() bool {
	return a.Mode == ModeAutomatic
}

// SpeedPercent is the commanded speed, or 0 for automatic mode
func (a Action) SpeedPercent() int {
	if a.IsAutomatic() {
		return 0
	}

	return a.Speed
}

func (a Action) String() string {
	if a.IsAutomatic() {
		return "automatic"
	}

	return fmt.Sprintf("manual(%d%%)", a.Speed)
}

// Domain names which temperature drove a decision
type Domain string

const (
	DomainGPU    Domain = "gpu"
	DomainSystem Domain = "system"
)

// Decision is the engine's output. Only Action is acted upon; the rest is
// reported for logging.
type Decision struct {
	Action       Action
	MaxGPU       int
	MaxSystem    int
	DecisionTemp int
	Source       Domain
	Tier         Tier
	Override     bool
	AutoEscape   bool
	NoReadings   bool
}

// Decide picks the fan action for one cycle. Empty inputs count as 0 °C, so
// with no readings at all the result is the low manual speed.
func Decide(p Policy, gpuTemps, systemTemps []int) Decision {
	maxGPU := maxOrZero(gpuTemps)
	maxSystem := maxOrZero(systemTemps)

	d := Decision{
		MaxGPU:     maxGPU,
		MaxSystem:  maxSystem,
		NoReadings: len(gpuTemps) == 0 && len(systemTemps) == 0,
	}

	if len(gpuTemps) > 0 && p.GPUOverride && maxGPU >= p.GPU.Low {
		d.Override = true
		d.DecisionTemp = maxGPU
		d.Source = DomainGPU
	} else {
		d.DecisionTemp = max(maxGPU, maxSystem)
		d.Source = DomainSystem
		if maxGPU >= maxSystem {
			d.Source = DomainGPU
		}
	}

	// Safety first: this is checked before any tier logic.
	if maxGPU >= p.AutoThreshold || maxSystem >= p.AutoThreshold {
		d.AutoEscape = true
		d.Action = Automatic()
		return d
	}

	if d.Override {
		d.Tier = cascade(func(t Tier) bool {
			return p.GPU.Reaches(maxGPU, t)
		})
	} else {
		d.Tier = cascade(func(t Tier) bool {
			return p.GPU.Reaches(maxGPU, t) || p.System.Reaches(maxSystem, t)
		})
	}

	d.Action = Manual(p.Speeds.For(d.Tier))

	return d
}

// cascade returns the most severe tier for which reached is true
func cascade(reached func(Tier) bool) Tier {
	for i := len(Tiers) - 1; i >= 0; i-- {
		if reached(Tiers[i]) {
			return Tiers[i]
		}
	}

	return TierBelowLow
}

func maxOrZero(values []int) int {
	if len(values) == 0 {
		return 0
	}

	m := values[0]
	for _, v := range values[1:] {
		m = max(m, v)
	}

	return m
}
