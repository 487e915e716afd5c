// Package monitor watches transactions for confirmation by polling the node
// collaborator on a fixed cadence. It is the eventing backend of the
// broadcast coordinator's wait-for-confirmation phase.
package monitor

import (
	"sync"
	"time"

	"github.com/vanitydag/vanityd/pkg/node"
	"golang.org/x/time/rate"
)

const (
	eventQueueMaxSize = 100
	errorQueueMaxSize = 10
)

// Service watches observables and delivers events on a channel. Use Stop to
// tear all watchers down.
type Service interface {
	Stop()
	GetEventChannel() chan Event
	GetErrorChannel() chan error
	AddObservable(observable Observable)
	RemoveObservable(observable Observable)
	IsObserving(txid string) bool
}

type txMonitor struct {
	interval    time.Duration
	nodeSvc     node.Service
	errChan     chan error
	eventChan   chan Event
	observables map[string]*observableHandler
	rateLimiter *rate.Limiter
	mutex       *sync.RWMutex
	wg          *sync.WaitGroup
}

// Opts defines the parameters needed for creating a monitor service with
// NewService.
type Opts struct {
	NodeSvc           node.Service
	Interval          time.Duration
	RequestsPerSecond int
}

// NewService returns a transaction monitor ready to watch for
// confirmations.
func NewService(opts Opts) Service {
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	return &txMonitor{
		interval:    opts.Interval,
		nodeSvc:     opts.NodeSvc,
		errChan:     make(chan error, errorQueueMaxSize),
		eventChan:   make(chan Event, eventQueueMaxSize),
		observables: map[string]*observableHandler{},
		rateLimiter: rate.NewLimiter(rate.Limit(rps), rps),
		mutex:       &sync.RWMutex{},
		wg:          &sync.WaitGroup{},
	}
}

func (m *txMonitor) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, obsHandler := range m.observables {
		go obsHandler.stop()
	}
	m.observables = map[string]*observableHandler{}
	m.wg.Wait()
	m.eventChan <- QuitEvent{}
}

func (m *txMonitor) GetEventChannel() chan Event {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.eventChan
}

func (m *txMonitor) GetErrorChannel() chan error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.errChan
}

func (m *txMonitor) AddObservable(observable Observable) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.observables[observable.key()]; !ok {
		obsHandler := newObservableHandler(
			observable,
			m.nodeSvc,
			m.wg,
			m.interval,
			m.eventChan,
			m.errChan,
			m.rateLimiter,
		)
		m.observables[observable.key()] = obsHandler
		m.wg.Add(1)
		go obsHandler.start()
	}
}

func (m *txMonitor) RemoveObservable(observable Observable) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if obsHandler, ok := m.observables[observable.key()]; ok {
		obsHandler.stop()
		delete(m.observables, observable.key())
	}
}

func (m *txMonitor) IsObserving(txid string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.observables[txid]
	return ok
}
