package monitor

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vanitydag/vanityd/pkg/node"
	"golang.org/x/time/rate"
)

// Observable is anything the monitor can poll for on a ticker.
type Observable interface {
	observe(
		nodeSvc node.Service,
		errChan chan error,
		eventChan chan Event,
		rateLimiter *rate.Limiter,
	)
	key() string
}

// TransactionObservable polls the confirmation status of one transaction.
type TransactionObservable struct {
	TxID string
}

func NewTransactionObservable(txid string) *TransactionObservable {
	return &TransactionObservable{TxID: txid}
}

func (t *TransactionObservable) observe(
	nodeSvc node.Service,
	errChan chan error,
	eventChan chan Event,
	rateLimiter *rate.Limiter,
) {
	if t == nil {
		return
	}

	if err := rateLimiter.Wait(context.Background()); err != nil {
		reportError(errChan, t.TxID, err)
		return
	}

	status, err := nodeSvc.GetTransactionStatus(t.TxID)
	if err != nil {
		reportError(errChan, t.TxID, err)
		return
	}

	eventType := TransactionUnconfirmed
	if status.Confirmed {
		eventType = TransactionConfirmed
	}
	eventChan <- TransactionEvent{TxID: t.TxID, EventType: eventType}
}

func (t *TransactionObservable) key() string {
	return t.TxID
}

// reportError logs a failed poll and forwards it to the error channel
// without ever blocking the ticker loop. A full channel drops the error, the
// next tick retries the poll regardless.
func reportError(errChan chan error, txid string, err error) {
	log.Warnf("monitor: failed to poll status of tx %s: %v", txid, err)
	select {
	case errChan <- err:
	default:
	}
}

type observableHandler struct {
	observable  Observable
	nodeSvc     node.Service
	wg          *sync.WaitGroup
	ticker      *time.Ticker
	eventChan   chan Event
	errChan     chan error
	stopChan    chan int
	rateLimiter *rate.Limiter
}

func newObservableHandler(
	observable Observable,
	nodeSvc node.Service,
	wg *sync.WaitGroup,
	interval time.Duration,
	eventChan chan Event,
	errChan chan error,
	rateLimiter *rate.Limiter,
) *observableHandler {
	return &observableHandler{
		observable:  observable,
		nodeSvc:     nodeSvc,
		wg:          wg,
		ticker:      time.NewTicker(interval),
		eventChan:   eventChan,
		errChan:     errChan,
		stopChan:    make(chan int, 1),
		rateLimiter: rateLimiter,
	}
}

func (oh *observableHandler) start() {
	log.Debugf("monitor: start observing tx %v", oh.observable.key())
	for {
		select {
		case <-oh.ticker.C:
			oh.observable.observe(oh.nodeSvc, oh.errChan, oh.eventChan, oh.rateLimiter)
		case <-oh.stopChan:
			oh.ticker.Stop()
			close(oh.stopChan)
			return
		}
	}
}

func (oh *observableHandler) stop() {
	log.Debugf("monitor: stop observing tx %v", oh.observable.key())
	oh.stopChan <- 1
	oh.wg.Done()
}
