package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// State is the session lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateMining    State = "mining"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

// Device is an enabled mining device. Devices carry decorative hashrate
// ratings; progress accrues from wall-clock time regardless of selection.
type Device string

const (
	DeviceLow  Device = "low"
	DeviceHigh Device = "high"
)

// deviceRates are display hashrates in MH/s.
var deviceRates = map[Device]float64{
	DeviceLow:  35,
	DeviceHigh: 120,
}

var (
	ErrInvalidState       = errors.New("operation not valid in current session state")
	ErrNoDevices          = errors.New("at least one device must be selected")
	ErrUnknownDevice      = errors.New("unknown device")
	ErrAllowanceExhausted = errors.New("wallet lifetime claim allowance exhausted")
	ErrStopNotRequested   = errors.New("stop has not been requested")
	ErrClaimInFlight      = errors.New("a claim is already in flight")
	ErrClaimRejected      = errors.New("claim rejected on-chain")
	ErrNoContract         = errors.New("no claim contract configured")
)

// Config holds session engine parameters.
type Config struct {
	Duration       time.Duration // full session length
	MaxReward      float64       // tokens accrued by a full session
	TickInterval   time.Duration
	LogInterval    time.Duration
	Wallet         string
	AmountDecimals int // fractional digits of the reported claim amount
}

// Claimer submits a claim transaction for a wallet and returns the
// transaction hash once the distributor confirms it.
type Claimer interface {
	Claim(ctx context.Context, wallet string) (string, error)
}

// ClaimReport is handed to the reporter after a confirmed claim.
type ClaimReport struct {
	WalletAddress   string
	Amount          string
	TransactionHash string
}

// ClaimReporter is called after a claim confirms, before the session resets
// is observable. Used to record the claim in the fallback ledger.
type ClaimReporter func(ClaimReport)

// Engine is the mining session state machine. One live session at a time;
// all transitions are serialized by the mutex so a tick can never observe a
// half-updated pause snapshot.
type Engine struct {
	cfg      Config
	claimer  Claimer
	reporter ClaimReporter
	onDone   func()
	gen      EventGenerator
	now      func() time.Time

	mu              sync.Mutex
	state           State
	devices         []Device
	sessionStart    time.Time // effective start, adjusted on resume
	elapsedAtPause  time.Duration
	progressAtPause float64
	stopRequested   bool
	claimInFlight   bool
	blockSeen       bool
	events          []Event
	stopCh          chan struct{} // closed whenever the session leaves Mining
}

// NewEngine creates an idle session engine.
func NewEngine(cfg Config, claimer Claimer) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = 800 * time.Millisecond
	}
	if cfg.AmountDecimals <= 0 {
		cfg.AmountDecimals = 6
	}
	return &Engine{
		cfg:     cfg,
		claimer: claimer,
		state:   StateIdle,
		gen:     NewRandomEventGenerator(time.Now().UnixNano()),
		now:     time.Now,
	}
}

// SetReporter registers the confirmed-claim callback.
func (e *Engine) SetReporter(r ClaimReporter) { e.reporter = r }

// OnComplete registers a callback fired exactly once when progress hits 100.
func (e *Engine) OnComplete(fn func()) { e.onDone = fn }

// SetEventGenerator swaps the decorative event source.
func (e *Engine) SetEventGenerator(g EventGenerator) { e.gen = g }

// Start begins a new session. remainingAllowance is the externally supplied
// per-wallet allowance left on the distributor contract; a wallet that can
// no longer receive a full-session payout cannot start.
func (e *Engine) Start(devices []Device, remainingAllowance float64) error {
	if len(devices) == 0 {
		return ErrNoDevices
	}
	for _, d := range devices {
		if _, ok := deviceRates[d]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownDevice, d)
		}
	}
	if remainingAllowance < e.cfg.MaxReward {
		return ErrAllowanceExhausted
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return fmt.Errorf("%w: start requires an idle session (state %s)", ErrInvalidState, e.state)
	}

	e.devices = append([]Device(nil), devices...)
	e.sessionStart = e.now()
	e.elapsedAtPause = 0
	e.progressAtPause = 0
	e.stopRequested = false
	e.blockSeen = false
	e.events = nil
	e.state = StateMining
	e.startLoopsLocked()

	e.appendEventLocked(Event{
		Kind:      EventInfo,
		Message:   fmt.Sprintf("Session started (%d device(s), %.1f MH/s)", len(e.devices), e.baseHashrateLocked()),
		Timestamp: e.now().UnixMilli(),
	})
	log.Printf("[session] Started: devices=%v duration=%v", e.devices, e.cfg.Duration)
	return nil
}

// Pause freezes the timer. No wall-clock time accrues while paused.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateMining {
		return fmt.Errorf("%w: pause requires a mining session (state %s)", ErrInvalidState, e.state)
	}

	e.progressAtPause = e.progressLocked()
	e.elapsedAtPause = e.now().Sub(e.sessionStart)
	e.state = StatePaused
	e.stopLoopsLocked()

	log.Printf("[session] Paused at %.2f%%", e.progressAtPause)
	return nil
}

// Resume recomputes the effective start time so the pause snapshot carries
// over without a jump, then restarts the timers.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePaused {
		return fmt.Errorf("%w: resume requires a paused session (state %s)", ErrInvalidState, e.state)
	}

	e.sessionStart = e.now().Add(-e.elapsedAtPause)
	e.state = StateMining
	e.stopRequested = false
	e.startLoopsLocked()

	log.Printf("[session] Resumed at %.2f%%", e.progressAtPause)
	return nil
}

// RequestStop arms the destructive stop. Stopping forfeits all accrued
// progress, so it is a two-step operation: request, then confirm.
func (e *Engine) RequestStop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateMining && e.state != StatePaused {
		return fmt.Errorf("%w: stop requires an active session (state %s)", ErrInvalidState, e.state)
	}
	e.stopRequested = true
	return nil
}

// ConfirmStop executes a previously requested stop, discarding the session.
func (e *Engine) ConfirmStop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateMining && e.state != StatePaused {
		return fmt.Errorf("%w: stop requires an active session (state %s)", ErrInvalidState, e.state)
	}
	if !e.stopRequested {
		return ErrStopNotRequested
	}

	e.resetLocked()
	log.Println("[session] Stopped — session discarded")
	return nil
}

// Tick recomputes progress and completes the session exactly once when it
// reaches 100. Safe to call at any time; it is a no-op outside Mining.
func (e *Engine) Tick() {
	e.mu.Lock()
	if e.state != StateMining {
		e.mu.Unlock()
		return
	}
	if e.progressLocked() < 100 {
		e.mu.Unlock()
		return
	}

	e.state = StateCompleted
	e.stopLoopsLocked()
	e.appendEventLocked(Event{
		Kind:      EventReward,
		Message:   fmt.Sprintf("Session complete — %s ready to claim", e.claimAmountLocked()),
		Timestamp: e.now().UnixMilli(),
	})
	done := e.onDone
	e.mu.Unlock()

	log.Println("[session] Completed — reward ready")
	if done != nil {
		done()
	}
}

// Claim submits the reward claim to the distributor contract. On
// confirmation the session resets to idle and the fixed session amount is
// reported to the ledger. On rejection the session stays Completed so the
// reward is not lost and the claim can be retried.
func (e *Engine) Claim(ctx context.Context) (string, error) {
	e.mu.Lock()
	if e.state != StateCompleted {
		e.mu.Unlock()
		return "", fmt.Errorf("%w: claim requires a completed session (state %s)", ErrInvalidState, e.state)
	}
	if e.claimInFlight {
		e.mu.Unlock()
		return "", ErrClaimInFlight
	}
	if e.claimer == nil {
		e.mu.Unlock()
		return "", ErrNoContract
	}
	e.claimInFlight = true
	wallet := e.cfg.Wallet
	amount := e.claimAmountLocked()
	e.mu.Unlock()

	txid, err := e.claimer.Claim(ctx, wallet)

	e.mu.Lock()
	e.claimInFlight = false
	if err != nil {
		e.mu.Unlock()
		log.Printf("[session] Claim failed (session stays completed): %v", err)
		return "", fmt.Errorf("%w: %v", ErrClaimRejected, err)
	}
	e.resetLocked()
	reporter := e.reporter
	e.mu.Unlock()

	log.Printf("[session] Claim confirmed: txid=%s amount=%s", txid, amount)
	if reporter != nil {
		reporter(ClaimReport{WalletAddress: wallet, Amount: amount, TransactionHash: txid})
	}
	return txid, nil
}

// Shutdown cancels any running timers. The session state is left as-is.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLoopsLocked()
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Progress returns the session progress in [0,100].
func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progressLocked()
}

// AccruedReward is always derived from progress, never stored, so the two
// cannot drift apart.
func (e *Engine) AccruedReward() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accruedLocked()
}

// Devices returns the locked device selection for the live session.
func (e *Engine) Devices() []Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Device(nil), e.devices...)
}

// Status returns current session statistics for the API.
func (e *Engine) Status() map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	devices := make([]string, len(e.devices))
	for i, d := range e.devices {
		devices[i] = string(d)
	}

	elapsed := time.Duration(0)
	switch e.state {
	case StateMining:
		elapsed = e.now().Sub(e.sessionStart)
	case StatePaused:
		elapsed = e.elapsedAtPause
	case StateCompleted:
		elapsed = e.cfg.Duration
	}

	return map[string]interface{}{
		"state":           string(e.state),
		"progress":        e.progressLocked(),
		"accrued_reward":  e.accruedLocked(),
		"max_reward":      e.cfg.MaxReward,
		"devices":         devices,
		"hashrate_mhs":    e.displayHashrateLocked(),
		"elapsed_ms":      elapsed.Milliseconds(),
		"duration_ms":     e.cfg.Duration.Milliseconds(),
		"stop_requested":  e.stopRequested,
		"claim_in_flight": e.claimInFlight,
	}
}

// --- internal (callers hold e.mu) ---

func (e *Engine) progressLocked() float64 {
	switch e.state {
	case StateMining:
		p := float64(e.now().Sub(e.sessionStart)) / float64(e.cfg.Duration) * 100
		if p < 0 {
			return 0
		}
		if p > 100 {
			return 100
		}
		return p
	case StatePaused:
		return e.progressAtPause
	case StateCompleted:
		return 100
	default:
		return 0
	}
}

func (e *Engine) accruedLocked() float64 {
	r := e.progressLocked() / 100 * e.cfg.MaxReward
	if r > e.cfg.MaxReward {
		return e.cfg.MaxReward
	}
	return r
}

// claimAmountLocked is the fixed full-session amount the contract pays.
// The float accrual above is display only.
func (e *Engine) claimAmountLocked() string {
	return fmt.Sprintf("%.*f", e.cfg.AmountDecimals, e.cfg.MaxReward)
}

func (e *Engine) baseHashrateLocked() float64 {
	total := 0.0
	for _, d := range e.devices {
		total += deviceRates[d]
	}
	return total
}

func (e *Engine) displayHashrateLocked() float64 {
	if e.state != StateMining {
		return 0
	}
	return e.baseHashrateLocked() * e.gen.Jitter()
}

func (e *Engine) resetLocked() {
	e.state = StateIdle
	e.devices = nil
	e.sessionStart = time.Time{}
	e.elapsedAtPause = 0
	e.progressAtPause = 0
	e.stopRequested = false
	e.blockSeen = false
	e.events = nil
	e.stopLoopsLocked()
}

func (e *Engine) startLoopsLocked() {
	stop := make(chan struct{})
	e.stopCh = stop
	go e.tickLoop(stop)
	go e.eventLoop(stop)
}

func (e *Engine) stopLoopsLocked() {
	if e.stopCh != nil {
		close(e.stopCh)
		e.stopCh = nil
	}
}

func (e *Engine) tickLoop(stop chan struct{}) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

func (e *Engine) eventLoop(stop chan struct{}) {
	ticker := time.NewTicker(e.cfg.LogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.EmitEvent()
		}
	}
}
