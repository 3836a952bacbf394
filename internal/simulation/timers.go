package simulation

// timer holds the edge-detection state shared by the timer nodes.
type timer struct {
	base
	// Delay is the timed interval in seconds.
	Delay float64

	isEnabled bool
	isReset   bool
	endCycle  int64
}

func (t *timer) unknown() {
	t.isEnabled = false
	t.isReset = false
	t.next = Unknown
}

// TimerOn turns on once its input has been true for Delay.
type TimerOn struct{ timer }

func NewTimerOn(id string, delay float64) *TimerOn {
	return &TimerOn{timer{base: newBase(id, KeyTimerOn), Delay: delay}}
}

func (t *TimerOn) Run(clock Clock) error {
	v, err := t.single("TimerOn")
	if err != nil {
		t.unknown()
		return err
	}

	switch v {
	case Unknown:
		t.unknown()
	case False:
		t.isEnabled = false
		t.isReset = true
		t.next = False
	case True:
		if !t.isEnabled && t.isReset {
			t.isEnabled = true
			t.isReset = false
			t.endCycle = clock.Cycle() + cycles(clock, t.Delay)
		}
		t.next = FromBool(t.isEnabled && clock.Cycle() >= t.endCycle)
	}
	return nil
}

// TimerOff stays on for Delay after its input turns false.
type TimerOff struct{ timer }

func NewTimerOff(id string, delay float64) *TimerOff {
	return &TimerOff{timer{base: newBase(id, KeyTimerOff), Delay: delay}}
}

func (t *TimerOff) Run(clock Clock) error {
	v, err := t.single("TimerOff")
	if err != nil {
		t.unknown()
		return err
	}

	switch v {
	case Unknown:
		t.unknown()
	case True:
		t.isEnabled = false
		t.isReset = true
		t.next = True
	case False:
		if !t.isEnabled && t.isReset {
			t.isEnabled = true
			t.isReset = false
			t.endCycle = clock.Cycle() + cycles(clock, t.Delay)
		}
		if t.isEnabled && clock.Cycle() >= t.endCycle {
			t.isEnabled = false
		}
		t.next = FromBool(t.isEnabled)
	}
	return nil
}

// TimerPulse emits a pulse of length Delay on a rising edge of its input.
// It re-arms only after the pulse has ended and the input is false again.
type TimerPulse struct{ timer }

func NewTimerPulse(id string, delay float64) *TimerPulse {
	return &TimerPulse{timer{base: newBase(id, KeyTimerPulse), Delay: delay}}
}

func (t *TimerPulse) Run(clock Clock) error {
	v, err := t.single("TimerPulse")
	if err != nil {
		t.unknown()
		return err
	}

	if v == Unknown {
		t.unknown()
		return nil
	}

	if v == True && t.isReset && !t.isEnabled {
		t.isReset = false
		t.endCycle = clock.Cycle() + cycles(clock, t.Delay)
		if clock.Cycle() >= t.endCycle {
			t.next = False
			return nil
		}
		t.isEnabled = true
		t.next = True
		return nil
	}

	if t.isEnabled && clock.Cycle() >= t.endCycle {
		t.isEnabled = false
	}
	if v == False && !t.isEnabled {
		t.isReset = true
	}
	t.next = FromBool(t.isEnabled)
	return nil
}
