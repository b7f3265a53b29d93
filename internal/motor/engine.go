// Package motor implements the sequence engine that drives the stepper
// motors through a plan: staggered outbound moves, a dwell at the
// target, and a return phase that retraces exactly the steps actually
// moved, at reduced speed with inverted direction.
//
// The engine reports progress as Events on a buffered channel; the
// control UI and the headless runner both consume that stream. A run is
// started with Start and halted with Stop, which interrupts moves
// between step pulses so no pulse is ever cut short.
package motor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sayedtaban/stepmotor/internal/gpio"
	"github.com/sayedtaban/stepmotor/internal/model"
)

// progressEvery is the step interval at which progress events are emitted.
const progressEvery = 25

// eventBuffer is the capacity of the event channel. Emission never
// blocks: when the consumer falls behind, events are dropped rather
// than stalling a step loop.
const eventBuffer = 256

// motorLines holds the claimed GPIO lines of one motor for the duration
// of a run.
type motorLines struct {
	step gpio.Line
	dir  gpio.Line
}

// Engine executes sequence plans against a GPIO chip. An Engine is
// reusable: after a run finishes or is stopped, Start may be called
// again. Only one run may be active at a time.
type Engine struct {
	chip   gpio.Chip
	log    *zap.Logger
	events chan Event

	mu       sync.Mutex
	running  bool
	stopOnce *sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates an Engine driving lines claimed from chip.
func New(chip gpio.Chip, log *zap.Logger) *Engine {
	return &Engine{
		chip:   chip,
		log:    log,
		events: make(chan Event, eventBuffer),
	}
}

// Events returns the engine's event stream. The channel is shared
// across runs and is never closed.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Running reports whether a run is currently active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start validates the plan, claims every motor's step and dir line and
// begins executing the sequence in the background. It returns an error
// without side effects when a run is already active, the plan is
// invalid, or a line cannot be claimed (lines claimed before the
// failure are released again).
func (e *Engine) Start(ctx context.Context, plan model.SequencePlan) error {
	if err := plan.Validate(); err != nil {
		return model.WrapCLIError(model.ExitConfigError, "invalid sequence plan", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("a sequence is already running")
	}

	motors, err := e.claimLines(plan)
	if err != nil {
		return err
	}

	e.running = true
	e.stopOnce = &sync.Once{}
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})

	go e.run(ctx, plan, motors, e.stopCh, e.doneCh)
	return nil
}

// Stop requests the active run to halt and blocks until it has released
// its lines. Stopping an idle engine is a no-op. A stopped motor stays
// where it is; it does not return to its start position.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	once, stop, done := e.stopOnce, e.stopCh, e.doneCh
	e.mu.Unlock()

	once.Do(func() { close(stop) })
	<-done
}

// Wait blocks until the active run has finished. It returns immediately
// when no run is active.
func (e *Engine) Wait() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	done := e.doneCh
	e.mu.Unlock()
	<-done
}

// claimLines requests the step and dir line of every motor in plan
// order. On failure all lines claimed so far are released.
func (e *Engine) claimLines(plan model.SequencePlan) ([]motorLines, error) {
	motors := make([]motorLines, 0, len(plan.Motors))

	release := func() {
		for _, m := range motors {
			m.step.Close()
			m.dir.Close()
		}
	}

	for i, cfg := range plan.Motors {
		step, err := e.chip.ClaimOutput(cfg.Spec.StepPin)
		if err != nil {
			release()
			return nil, model.WrapCLIError(model.ExitGPIOUnavailable,
				fmt.Sprintf("motor %d: claiming step pin %d", i+1, cfg.Spec.StepPin), err)
		}
		dir, err := e.chip.ClaimOutput(cfg.Spec.DirPin)
		if err != nil {
			step.Close()
			release()
			return nil, model.WrapCLIError(model.ExitGPIOUnavailable,
				fmt.Sprintf("motor %d: claiming dir pin %d", i+1, cfg.Spec.DirPin), err)
		}
		motors = append(motors, motorLines{step: step, dir: dir})
	}
	return motors, nil
}

// run executes the whole sequence and cleans up when it ends, however
// it ends.
func (e *Engine) run(ctx context.Context, plan model.SequencePlan, motors []motorLines, stopCh, doneCh chan struct{}) {
	defer func() {
		e.releaseLines(motors)
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(doneCh)
	}()

	for rep := 1; rep <= plan.Repetitions; rep++ {
		e.emit(Event{
			Kind:       EventRepetitionStarted,
			Repetition: rep,
			Message:    fmt.Sprintf("Running sequence %d/%d", rep, plan.Repetitions),
		})

		moved := e.moveAll(ctx, plan, motors, rep, stopCh)
		if e.interrupted(ctx, stopCh) {
			e.emitStopped(rep)
			return
		}

		e.emit(Event{
			Kind:       EventReturnPhase,
			Repetition: rep,
			Message:    "All motors reached target. Starting return sequence...",
		})

		e.returnAll(ctx, plan, motors, moved, rep, stopCh)
		if e.interrupted(ctx, stopCh) {
			e.emitStopped(rep)
			return
		}

		e.emit(Event{
			Kind:       EventRepetitionDone,
			Repetition: rep,
			Message:    fmt.Sprintf("Sequence %d/%d complete", rep, plan.Repetitions),
		})

		if rep < plan.Repetitions {
			wait := plan.RepeatWaitTogether
			if !plan.ReturnTogether {
				wait = plan.RepeatWaitIndividual
			}
			if !e.sleep(ctx, stopCh, wait) {
				e.emitStopped(rep)
				return
			}
		}
	}

	e.emit(Event{Kind: EventFinished, Message: "All sequences completed"})
}

// moveAll drives every motor to its target concurrently and returns the
// steps each motor actually moved. It waits for all motors, including
// their dwell at the target.
func (e *Engine) moveAll(ctx context.Context, plan model.SequencePlan, motors []motorLines, rep int, stopCh chan struct{}) []int {
	moved := make([]int64, len(motors))

	var wg sync.WaitGroup
	for i := range motors {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			cfg := plan.Motors[idx]
			num := idx + 1

			if !e.sleep(ctx, stopCh, cfg.StartDelay) {
				return
			}

			total := plan.StepsForAngle(cfg.AngleDeg)
			e.emit(Event{
				Kind:       EventMotorStarted,
				Motor:      num,
				Repetition: rep,
				Total:      total,
				Message: fmt.Sprintf("Motor %d: moving %d° at %d RPM from position %s",
					num, cfg.AngleDeg, cfg.SpeedRPM, cfg.Start),
			})

			if err := motors[idx].dir.Set(levelFor(cfg.Start.Forward())); err != nil {
				e.emitLineError(num, rep, cfg.Spec.DirPin, err)
				return
			}

			half := halfPeriod(plan.StepsPerRev, float64(cfg.SpeedRPM))
			n := e.stepLoop(ctx, stopCh, motors[idx].step, cfg.Spec.StepPin, num, rep, total, half, EventMotorProgress, "moving to target")
			atomic.StoreInt64(&moved[idx], int64(n))

			if n < total {
				e.emit(Event{
					Kind:       EventMotorStopped,
					Motor:      num,
					Repetition: rep,
					Step:       n,
					Total:      total,
					Message:    fmt.Sprintf("Motor %d: stopped after %d/%d steps", num, n, total),
				})
				return
			}

			e.emit(Event{
				Kind:       EventTargetReached,
				Motor:      num,
				Repetition: rep,
				Step:       total,
				Total:      total,
				Message:    fmt.Sprintf("Motor %d: reached target, holding position", num),
			})
			e.sleep(ctx, stopCh, plan.Dwell)
		}(i)
	}
	wg.Wait()

	result := make([]int, len(moved))
	for i := range moved {
		result[i] = int(atomic.LoadInt64(&moved[i]))
	}
	return result
}

// returnAll drives every motor back by exactly the steps it moved, at
// the reduced return speed with inverted direction. Motors return in
// parallel or one after the other depending on the plan.
func (e *Engine) returnAll(ctx context.Context, plan model.SequencePlan, motors []motorLines, moved []int, rep int, stopCh chan struct{}) {
	if plan.ReturnTogether {
		var wg sync.WaitGroup
		for i := range motors {
			if moved[i] == 0 {
				continue
			}
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				e.returnOne(ctx, plan, motors[idx], plan.Motors[idx], moved[idx], idx+1, rep, stopCh)
			}(i)
		}
		wg.Wait()
		return
	}

	for i := range motors {
		if e.interrupted(ctx, stopCh) {
			return
		}
		if moved[i] == 0 {
			continue
		}
		e.returnOne(ctx, plan, motors[i], plan.Motors[i], moved[i], i+1, rep, stopCh)
		if i < len(motors)-1 {
			if !e.sleep(ctx, stopCh, plan.ReturnGap) {
				return
			}
		}
	}
}

// returnOne retraces one motor's outbound move.
func (e *Engine) returnOne(ctx context.Context, plan model.SequencePlan, lines motorLines, cfg model.MotorConfig, steps, num, rep int, stopCh chan struct{}) {
	e.emit(Event{
		Kind:       EventReturnStarted,
		Motor:      num,
		Repetition: rep,
		Total:      steps,
		Message:    fmt.Sprintf("Motor %d: returning %d steps to position %s", num, steps, cfg.Start),
	})

	// Opposite level from the outbound move.
	if err := lines.dir.Set(levelFor(!cfg.Start.Forward())); err != nil {
		e.emitLineError(num, rep, cfg.Spec.DirPin, err)
		return
	}

	half := halfPeriod(plan.StepsPerRev, float64(cfg.SpeedRPM)*plan.ReturnSpeedFactor)
	n := e.stepLoop(ctx, stopCh, lines.step, cfg.Spec.StepPin, num, rep, steps, half, EventReturnProgress, "returning")
	if n < steps {
		e.emit(Event{
			Kind:       EventMotorStopped,
			Motor:      num,
			Repetition: rep,
			Step:       n,
			Total:      steps,
			Message:    fmt.Sprintf("Motor %d: stopped after %d/%d return steps", num, n, steps),
		})
		return
	}

	e.emit(Event{
		Kind:       EventMotorReturned,
		Motor:      num,
		Repetition: rep,
		Step:       steps,
		Total:      steps,
		Message:    fmt.Sprintf("Motor %d: returned to start position", num),
	})
}

// stepLoop pulses the step line total times at the given half period
// and returns the number of completed pulses. A stop request or context
// cancellation is honored between pulses, never mid-pulse, so the line
// always ends low.
func (e *Engine) stepLoop(ctx context.Context, stopCh chan struct{}, line gpio.Line, pin, num, rep, total int, half time.Duration, kind EventKind, phase string) int {
	for s := 0; s < total; s++ {
		select {
		case <-stopCh:
			return s
		case <-ctx.Done():
			return s
		default:
		}

		if err := line.Set(1); err != nil {
			e.emitLineError(num, rep, pin, err)
			return s
		}
		time.Sleep(half)
		if err := line.Set(0); err != nil {
			e.emitLineError(num, rep, pin, err)
			return s
		}
		time.Sleep(half)

		if (s+1)%progressEvery == 0 && s+1 < total {
			e.emit(Event{
				Kind:       kind,
				Motor:      num,
				Repetition: rep,
				Step:       s + 1,
				Total:      total,
				Message:    fmt.Sprintf("Motor %d: %s (%d/%d)", num, phase, s+1, total),
			})
		}
	}
	return total
}

// releaseLines drives every line low and releases it. Called exactly
// once per run, after all motor goroutines have finished.
func (e *Engine) releaseLines(motors []motorLines) {
	for i, m := range motors {
		if err := m.step.Set(0); err != nil {
			e.log.Warn("clearing step line", zap.Int("motor", i+1), zap.Error(err))
		}
		if err := m.dir.Set(0); err != nil {
			e.log.Warn("clearing dir line", zap.Int("motor", i+1), zap.Error(err))
		}
		m.step.Close()
		m.dir.Close()
	}
}

// sleep waits for d, honoring stop requests and context cancellation.
// It reports whether the full duration elapsed.
func (e *Engine) sleep(ctx context.Context, stopCh chan struct{}, d time.Duration) bool {
	if d <= 0 {
		return !e.interrupted(ctx, stopCh)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

// interrupted reports whether a stop was requested or the context is done.
func (e *Engine) interrupted(ctx context.Context, stopCh chan struct{}) bool {
	select {
	case <-stopCh:
		return true
	default:
	}
	return ctx.Err() != nil
}

// emit publishes an event without blocking. When the buffer is full the
// event is dropped; the log keeps the full record either way.
func (e *Engine) emit(ev Event) {
	e.log.Info(ev.Message,
		zap.Int("motor", ev.Motor),
		zap.Int("repetition", ev.Repetition),
	)
	select {
	case e.events <- ev:
	default:
		e.log.Debug("event buffer full, dropping event")
	}
}

func (e *Engine) emitStopped(rep int) {
	e.emit(Event{
		Kind:       EventSequenceStopped,
		Repetition: rep,
		Message:    "Sequence stopped",
	})
}

func (e *Engine) emitLineError(num, rep, pin int, err error) {
	e.log.Error("gpio write failed", zap.Int("motor", num), zap.Int("pin", pin), zap.Error(err))
	e.emit(Event{
		Kind:       EventError,
		Motor:      num,
		Repetition: rep,
		Message:    fmt.Sprintf("Motor %d: GPIO write on pin %d failed: %v", num, pin, err),
	})
}

// halfPeriod computes half the step pulse period for a speed: a full
// revolution takes 60/rpm seconds spread over stepsPerRev pulses, and
// each pulse spends half its period high and half low.
func halfPeriod(stepsPerRev int, rpm float64) time.Duration {
	return time.Duration(30.0 / (float64(stepsPerRev) * rpm) * float64(time.Second))
}

// levelFor maps a logical direction to the line level.
func levelFor(forward bool) int {
	if forward {
		return 1
	}
	return 0
}
