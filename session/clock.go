package session

import "time"

// Clock schedules callbacks. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancel handle for a scheduled callback. Stop is safe to call
// more than once.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// supervisor holds the timers of one session: the hard timeout, the liveness
// ping and, once a result has arrived, the exit grace. It has no lock of its own; the owning session's mutex guards
// every field and the callbacks re-acquire that mutex before acting.
type supervisor struct {
	clock     Clock
	timeout   time.Duration
	interval  time.Duration
	exitGrace time.Duration

	hard   Timer
	ping   Timer
	linger Timer

	// pingGen invalidates a ping callback that was already running when its
	// timer was stopped or re-armed.
	pingGen uint64
	ticks   int
	stopped bool
}

// start arms both timers. onTimeout runs once after the hard timeout;
// onTick runs every interval with the generation it was armed under.
func (sv *supervisor) start(onTimeout func(), onTick func(gen uint64)) {
	if sv.timeout > 0 {
		sv.hard = sv.clock.AfterFunc(sv.timeout, onTimeout)
	}
	sv.armPing(onTick)
}

func (sv *supervisor) armPing(onTick func(gen uint64)) {
	if sv.stopped || sv.interval <= 0 {
		return
	}
	if sv.ping != nil {
		sv.ping.Stop()
	}
	sv.pingGen++
	gen := sv.pingGen
	sv.ping = sv.clock.AfterFunc(sv.interval, func() { onTick(gen) })
}

// tick accepts a ping for generation gen, returning the elapsed tick count
// since the last progress and whether the ping is current.
func (sv *supervisor) tick(gen uint64) (int, bool) {
	if sv.stopped || gen != sv.pingGen {
		return 0, false
	}
	sv.ticks++
	return sv.ticks, true
}

// progress resets the elapsed count and restarts the ping interval so the
// next waiting notice measures time since this point.
func (sv *supervisor) progress(onTick func(gen uint64)) {
	if sv.stopped {
		return
	}
	sv.ticks = 0
	sv.armPing(onTick)
}

// elapsed is the wall time represented by n ticks.
func (sv *supervisor) elapsed(n int) time.Duration {
	return time.Duration(n) * sv.interval
}

// awaitExit arms the exit grace timer after a result record. onLinger runs
// if the process is still registered when the grace ends. It may be called
// after stop.
func (sv *supervisor) awaitExit(onLinger func()) {
	if sv.exitGrace <= 0 || sv.linger != nil {
		return
	}
	sv.linger = sv.clock.AfterFunc(sv.exitGrace, onLinger)
}

// stop cancels every timer.
func (sv *supervisor) stop() {
	sv.stopped = true
	sv.pingGen++
	if sv.hard != nil {
		sv.hard.Stop()
	}
	if sv.ping != nil {
		sv.ping.Stop()
	}
	if sv.linger != nil {
		sv.linger.Stop()
	}
}
