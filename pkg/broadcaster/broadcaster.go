// Package broadcaster submits signed transactions through one of several
// named submission methods, retrying transient failures with a fixed delay
// and optionally waiting for the network to confirm the transaction. Every
// outcome crosses the package boundary as a structured result, never as a
// panic or a bare error.
package broadcaster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/vanitydag/vanityd/pkg/circuitbreaker"
	"github.com/vanitydag/vanityd/pkg/monitor"
	"github.com/vanitydag/vanityd/pkg/node"
)

// MethodAuto resolves to the coordinator's default submission method.
const MethodAuto = "auto"

// Progress stages reported to the observer.
const (
	StageBroadcasting   = "broadcasting"
	StageBroadcastRetry = "broadcast_retry"
	StageCompleted      = "completed"
	StageFailed         = "failed"
)

// Error kinds carried by results.
const (
	ErrorKindInput               = "input"
	ErrorKindSubmission          = "submission"
	ErrorKindConfirmationTimeout = "confirmation_timeout"
)

var (
	// ErrNoMethods ...
	ErrNoMethods = errors.New("at least one submission method is required")
	// ErrUnknownDefaultMethod ...
	ErrUnknownDefaultMethod = errors.New(
		"the default method must be one of the registered submission methods",
	)
)

const (
	defaultRetryDelay          = 2 * time.Second
	defaultConfirmationTimeout = 2 * time.Minute
	defaultPollInterval        = 2 * time.Second
)

// ProgressUpdate is handed to the observer once per attempt outcome.
type ProgressUpdate struct {
	Stage   string
	Method  string
	Attempt int
	Message string
}

// Attempt records one submission try. Retries append new records instead of
// mutating earlier ones.
type Attempt struct {
	Method        string
	AttemptNumber int
	StartedAt     time.Time
	Succeeded     bool
	Error         string
}

// Confirmation reports the outcome of the confirmation wait. Confirmed and
// TimedOut are mutually exclusive.
type Confirmation struct {
	Confirmed bool
	TimedOut  bool
	Attempts  int
	Elapsed   time.Duration
}

// Result is the structured outcome of one broadcast request.
type Result struct {
	RequestID    string
	Success      bool
	TxID         string
	Method       string
	Attempts     []Attempt
	Confirmation *Confirmation
	Elapsed      time.Duration
	ErrorKind    string
	ErrorMessage string
}

// Options is the struct given to the Broadcast method.
type Options struct {
	// Method names a registered submission method, or MethodAuto (also the
	// zero value) for the coordinator default.
	Method string
	// RetryAttempts is the number of additional tries after the first
	// failing submission; total attempts = RetryAttempts + 1.
	RetryAttempts int
	// RetryDelay is slept between submissions.
	RetryDelay time.Duration
	// WaitForConfirmation polls the network after a successful submission.
	WaitForConfirmation bool
	ConfirmationTimeout time.Duration
	PollInterval        time.Duration
	// OnProgress observes attempt outcomes. May be nil.
	OnProgress func(ProgressUpdate)
}

func (o *Options) method(defaultMethod string) string {
	if len(o.Method) <= 0 || o.Method == MethodAuto {
		return defaultMethod
	}
	return o.Method
}

func (o *Options) retryDelay() time.Duration {
	if o.RetryDelay > 0 {
		return o.RetryDelay
	}
	return defaultRetryDelay
}

func (o *Options) confirmationTimeout() time.Duration {
	if o.ConfirmationTimeout > 0 {
		return o.ConfirmationTimeout
	}
	return defaultConfirmationTimeout
}

func (o *Options) pollInterval() time.Duration {
	if o.PollInterval > 0 {
		return o.PollInterval
	}
	return defaultPollInterval
}

// Coordinator owns the submission method registry. One coordinator serves
// concurrent broadcast requests; each request is strictly sequential
// internally.
type Coordinator struct {
	methods       map[string]node.Service
	breakers      map[string]*gobreaker.CircuitBreaker
	defaultMethod string
	mutex         *sync.RWMutex
}

// CoordinatorOpts is the struct given to NewCoordinator.
type CoordinatorOpts struct {
	// Methods maps method names to their node services.
	Methods map[string]node.Service
	// DefaultMethod is what MethodAuto resolves to.
	DefaultMethod string
}

func (o CoordinatorOpts) validate() error {
	if len(o.Methods) <= 0 {
		return ErrNoMethods
	}
	if _, ok := o.Methods[o.DefaultMethod]; !ok {
		return ErrUnknownDefaultMethod
	}
	return nil
}

// NewCoordinator returns a broadcast coordinator over the given submission
// methods.
func NewCoordinator(opts CoordinatorOpts) (*Coordinator, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	breakers := make(map[string]*gobreaker.CircuitBreaker, len(opts.Methods))
	for name := range opts.Methods {
		breakers[name] = circuitbreaker.NewCircuitBreaker(
			fmt.Sprintf("broadcast-%s", name),
		)
	}

	return &Coordinator{
		methods:       opts.Methods,
		breakers:      breakers,
		defaultMethod: opts.DefaultMethod,
		mutex:         &sync.RWMutex{},
	}, nil
}

// Broadcast submits the given signed transaction. It always returns a
// structured result; input errors are reported immediately without
// consuming a retry.
func (c *Coordinator) Broadcast(
	ctx context.Context, signedTx []byte, opts Options,
) *Result {
	startedAt := time.Now()
	result := &Result{RequestID: uuid.New().String()}

	if len(signedTx) <= 0 {
		return c.failInput(result, startedAt, "missing raw transaction payload")
	}
	if opts.RetryAttempts < 0 {
		return c.failInput(result, startedAt, "retry attempts must not be negative")
	}

	methodName := opts.method(c.defaultMethod)
	c.mutex.RLock()
	svc, ok := c.methods[methodName]
	breaker := c.breakers[methodName]
	c.mutex.RUnlock()
	if !ok {
		return c.failInput(
			result, startedAt, fmt.Sprintf("unknown submission method %q", opts.Method),
		)
	}
	result.Method = methodName

	txid, ok := c.submitWithRetries(ctx, svc, breaker, signedTx, methodName, opts, result)
	if !ok {
		result.Elapsed = time.Since(startedAt)
		return result
	}
	result.TxID = txid
	result.Success = true

	completedMsg := txid
	if opts.WaitForConfirmation {
		result.Confirmation = c.waitForConfirmation(ctx, svc, txid, opts)
		if result.Confirmation.TimedOut {
			result.ErrorKind = ErrorKindConfirmationTimeout
			result.ErrorMessage = fmt.Sprintf(
				"transaction %s not confirmed within %s; it may still confirm later",
				txid, opts.confirmationTimeout(),
			)
			completedMsg = result.ErrorMessage
		}
	}

	reportProgress(opts.OnProgress, ProgressUpdate{
		Stage:   StageCompleted,
		Method:  methodName,
		Attempt: len(result.Attempts),
		Message: completedMsg,
	})
	result.Elapsed = time.Since(startedAt)
	return result
}

func (c *Coordinator) failInput(
	result *Result, startedAt time.Time, message string,
) *Result {
	result.ErrorKind = ErrorKindInput
	result.ErrorMessage = message
	result.Elapsed = time.Since(startedAt)
	return result
}

// submitWithRetries performs up to RetryAttempts+1 sequential submissions,
// sleeping RetryDelay between them.
func (c *Coordinator) submitWithRetries(
	ctx context.Context,
	svc node.Service,
	breaker *gobreaker.CircuitBreaker,
	signedTx []byte,
	methodName string,
	opts Options,
	result *Result,
) (string, bool) {
	totalAttempts := opts.RetryAttempts + 1

	for attemptNumber := 1; attemptNumber <= totalAttempts; attemptNumber++ {
		stage := StageBroadcasting
		if attemptNumber > 1 {
			stage = StageBroadcastRetry
		}
		reportProgress(opts.OnProgress, ProgressUpdate{
			Stage:   stage,
			Method:  methodName,
			Attempt: attemptNumber,
		})

		attempt := Attempt{
			Method:        methodName,
			AttemptNumber: attemptNumber,
			StartedAt:     time.Now(),
		}

		iTxid, err := breaker.Execute(func() (interface{}, error) {
			return svc.SubmitTransaction(signedTx)
		})
		if err == nil {
			attempt.Succeeded = true
			result.Attempts = append(result.Attempts, attempt)
			return iTxid.(string), true
		}

		attempt.Error = err.Error()
		result.Attempts = append(result.Attempts, attempt)
		log.Debugf(
			"broadcaster: attempt %d/%d over %s failed: %v",
			attemptNumber, totalAttempts, methodName, err,
		)

		if attemptNumber < totalAttempts {
			select {
			case <-time.After(opts.retryDelay()):
			case <-ctx.Done():
				result.ErrorKind = ErrorKindSubmission
				result.ErrorMessage = ctx.Err().Error()
				reportProgress(opts.OnProgress, ProgressUpdate{
					Stage:   StageFailed,
					Method:  methodName,
					Attempt: attemptNumber,
					Message: ctx.Err().Error(),
				})
				return "", false
			}
		}
	}

	lastErr := result.Attempts[len(result.Attempts)-1].Error
	result.ErrorKind = ErrorKindSubmission
	result.ErrorMessage = lastErr
	reportProgress(opts.OnProgress, ProgressUpdate{
		Stage:   StageFailed,
		Method:  methodName,
		Attempt: totalAttempts,
		Message: lastErr,
	})
	return "", false
}

// waitForConfirmation watches the transaction through the monitor until it
// confirms or the timeout elapses. Confirmed and TimedOut never end up both
// true. Attempts counts every observed poll, failed node calls included:
// a flaky node keeps being polled until the deadline.
func (c *Coordinator) waitForConfirmation(
	ctx context.Context, svc node.Service, txid string, opts Options,
) *Confirmation {
	startedAt := time.Now()
	confirmation := &Confirmation{}

	watcher := monitor.NewService(monitor.Opts{
		NodeSvc:  svc,
		Interval: opts.pollInterval(),
	})
	observable := monitor.NewTransactionObservable(txid)
	watcher.AddObservable(observable)
	defer watcher.RemoveObservable(observable)

	deadline := time.After(opts.confirmationTimeout())
	for {
		select {
		case event := <-watcher.GetEventChannel():
			txEvent, ok := event.(monitor.TransactionEvent)
			if !ok || txEvent.TxID != txid {
				continue
			}
			confirmation.Attempts++
			if txEvent.Type() == monitor.TransactionConfirmed {
				confirmation.Confirmed = true
				confirmation.Elapsed = time.Since(startedAt)
				return confirmation
			}
		case err := <-watcher.GetErrorChannel():
			confirmation.Attempts++
			log.Debugf("broadcaster: status poll of %s failed: %v", txid, err)
		case <-deadline:
			confirmation.TimedOut = true
			confirmation.Elapsed = time.Since(startedAt)
			return confirmation
		case <-ctx.Done():
			confirmation.TimedOut = true
			confirmation.Elapsed = time.Since(startedAt)
			return confirmation
		}
	}
}

func reportProgress(observer func(ProgressUpdate), update ProgressUpdate) {
	if observer != nil {
		observer(update)
	}
}
