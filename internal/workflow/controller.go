// Package workflow implements the enhancement workflow controller: it owns the
// selected input image, the enhanced output, the busy flag and the error
// message, and drives at most one call to the enhancement capability at a time.
//
// Presentation layers never mutate state directly. They call SelectImage and
// TriggerEnhancement (or Start) and render the State values delivered through
// Snapshot or Subscribe.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fpang/satellite-super-resolution/internal/dataurl"
	"github.com/fpang/satellite-super-resolution/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// User-facing messages.
const (
	MissingInputMessage = "Please select an image first."
	UnknownErrorMessage = "An unknown error occurred. Please check the console for details."
)

var (
	// ErrNoImage is returned when an enhancement is triggered without an input image.
	ErrNoImage = errors.New("no input image selected")
	// ErrBusy is returned when an enhancement is triggered while another is in flight.
	ErrBusy = errors.New("enhancement already in progress")
)

// Enhancer is the external enhancement capability. It receives the base64
// payload of the input image (no data URI descriptor) and returns the base64
// payload of the enhanced image.
type Enhancer interface {
	Enhance(ctx context.Context, payload string) (string, error)
}

// EnhancerFunc adapts a plain function to the Enhancer interface.
type EnhancerFunc func(ctx context.Context, payload string) (string, error)

// Enhance calls f.
func (f EnhancerFunc) Enhance(ctx context.Context, payload string) (string, error) {
	return f(ctx, payload)
}

// State is a point-in-time copy of the controller's state.
type State struct {
	InputImage  string    `json:"inputImage,omitempty"`
	OutputImage string    `json:"outputImage,omitempty"`
	Busy        bool      `json:"busy"`
	Error       string    `json:"error,omitempty"`
	Generation  uint64    `json:"generation"`
	AttemptID   string    `json:"attemptId,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasInput reports whether an input image is selected.
func (s State) HasInput() bool {
	return s.InputImage != ""
}

// CanEnhance reports whether the trigger control should be enabled.
func (s State) CanEnhance() bool {
	return s.HasInput() && !s.Busy
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout bounds every enhancement call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.timeout = d
	}
}

// Controller is the enhancement workflow state machine. It is safe for
// concurrent use.
type Controller struct {
	enhancer Enhancer
	timeout  time.Duration

	mu      sync.Mutex
	state   State
	idle    chan struct{}
	subs    map[int]chan State
	nextSub int
}

// attempt carries what one in-flight call needs to land its result.
type attempt struct {
	id         string
	generation uint64
	payload    string
}

// New creates a Controller backed by the given enhancement capability.
func New(enhancer Enhancer, opts ...Option) *Controller {
	idle := make(chan struct{})
	close(idle)
	c := &Controller{
		enhancer: enhancer,
		idle:     idle,
		subs:     make(map[int]chan State),
		state:    State{UpdatedAt: time.Now()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SelectImage stores encoded as the input image and clears any previous
// output and error. A call still in flight keeps running, but its result is
// discarded when it lands.
func (c *Controller) SelectImage(encoded string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.InputImage = encoded
	c.state.OutputImage = ""
	c.state.Error = ""
	c.state.Generation++

	log.Debug().
		Uint64("generation", c.state.Generation).
		Int("input_length", len(encoded)).
		Bool("busy", c.state.Busy).
		Msg("Input image selected")

	c.publishLocked()
}

// TriggerEnhancement runs one enhancement attempt and blocks until it
// completes. It returns ErrNoImage or ErrBusy when the preconditions fail, and
// the capability's error when the call fails. Either way the outcome is also
// reflected in the state.
func (c *Controller) TriggerEnhancement(ctx context.Context) error {
	a, err := c.begin()
	if err != nil {
		return err
	}
	return c.run(ctx, a)
}

// Start checks the preconditions synchronously and runs the call on its own
// goroutine. The call is detached from ctx cancellation so a finished HTTP
// request does not abort it; values carried by ctx are kept.
func (c *Controller) Start(ctx context.Context) error {
	a, err := c.begin()
	if err != nil {
		return err
	}
	go func() {
		_ = c.run(context.WithoutCancel(ctx), a)
	}()
	return nil
}

// Wait blocks until no call is in flight or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a channel that receives the current state immediately and
// then after every change. Slow readers only see the latest state. The
// returned func unsubscribes and closes the channel.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan State, 1)
	ch <- c.state
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}

// begin validates the preconditions and flips the state into the busy phase.
func (c *Controller) begin() (attempt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.InputImage == "" {
		c.state.Error = MissingInputMessage
		c.publishLocked()
		log.Warn().Msg("Enhancement triggered without an input image")
		return attempt{}, ErrNoImage
	}
	if c.state.Busy {
		return attempt{}, ErrBusy
	}

	a := attempt{
		id:         uuid.NewString(),
		generation: c.state.Generation,
		payload:    dataurl.Payload(c.state.InputImage),
	}

	c.state.Busy = true
	c.state.Error = ""
	c.state.OutputImage = ""
	c.state.AttemptID = a.id
	c.idle = make(chan struct{})
	c.publishLocked()

	log.Info().
		Str("attempt", a.id).
		Uint64("generation", a.generation).
		Int("payload_length", len(a.payload)).
		Msg("Enhancement started")

	return a, nil
}

// run invokes the capability and lands the result. A panic in the capability
// is recovered and recorded as a failure.
func (c *Controller) run(ctx context.Context, a attempt) (err error) {
	start := time.Now()
	var result string

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("enhancement panicked: %v", r)
		}
		c.finish(a, result, err, time.Since(start))
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err = c.enhancer.Enhance(ctx, a.payload)
	return err
}

// finish clears the busy flag and, unless the input changed meanwhile,
// stores exactly one of output or error.
func (c *Controller) finish(a attempt, result string, err error, elapsed time.Duration) {
	outcome := "success"

	c.mu.Lock()
	stale := c.state.Generation != a.generation
	switch {
	case stale:
		outcome = "stale"
	case err != nil:
		outcome = "error"
		c.state.Error = errorMessage(err)
	default:
		c.state.OutputImage = dataurl.JPEG(result)
	}
	c.state.Busy = false
	close(c.idle)
	c.publishLocked()
	c.mu.Unlock()

	evt := log.Info()
	if err != nil {
		evt = log.Error().Err(err)
	}
	evt.
		Str("attempt", a.id).
		Str("outcome", outcome).
		Int("output_length", len(result)).
		Dur("duration", elapsed).
		Msg("Enhancement finished")

	metrics.New(metrics.Namespace).
		Dimension("Outcome", outcome).
		Metric("EnhanceLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Metric("EnhanceInputBytes", float64(len(a.payload)), metrics.UnitBytes).
		Metric("EnhanceOutputBytes", float64(len(result)), metrics.UnitBytes).
		Count("EnhanceAttempts").
		Property("attemptId", a.id).
		Flush()
}

// publishLocked stamps the state and hands a copy to every subscriber,
// replacing any copy the subscriber has not read yet. c.mu must be held.
func (c *Controller) publishLocked() {
	c.state.UpdatedAt = time.Now()
	for _, ch := range c.subs {
		select {
		case ch <- c.state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- c.state
		}
	}
}

// errorMessage returns the text shown to the user for a failed call.
func errorMessage(err error) string {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return UnknownErrorMessage
	}
	return msg
}
