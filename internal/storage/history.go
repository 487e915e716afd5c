// Package storage persists the outcome of mining and broadcast sessions so
// the CLI can list past runs.
package storage

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"
)

// MiningRecord is the stored outcome of one nonce search session.
type MiningRecord struct {
	ID              string
	TxID            string
	TargetBits      int
	Nonce           uint64
	Attempts        uint64
	Duration        time.Duration
	Success         bool
	BestPartialBits int
	EfficiencyRatio float64
	CreatedAt       time.Time
}

// BroadcastRecord is the stored outcome of one broadcast request.
type BroadcastRecord struct {
	ID        string
	RequestID string
	TxID      string
	Method    string
	Attempts  int
	Success   bool
	Confirmed bool
	TimedOut  bool
	Error     string
	CreatedAt time.Time
}

// HistoryRepository persists mining and broadcast outcomes.
type HistoryRepository interface {
	AddMiningRecord(record MiningRecord) (string, error)
	ListMiningRecords() ([]MiningRecord, error)
	AddBroadcastRecord(record BroadcastRecord) (string, error)
	ListBroadcastRecords() ([]BroadcastRecord, error)
	Close() error
}

type historyRepositoryImpl struct {
	store *badgerhold.Store
}

// NewHistoryRepository opens (or creates) the history database under the
// given directory.
func NewHistoryRepository(
	dbDir string, logger badger.Logger,
) (HistoryRepository, error) {
	store, err := createDb(filepath.Join(dbDir, "history"), logger)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	return &historyRepositoryImpl{store}, nil
}

func (h *historyRepositoryImpl) AddMiningRecord(
	record MiningRecord,
) (string, error) {
	if len(record.ID) <= 0 {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if err := h.store.Insert(record.ID, record); err != nil {
		return "", err
	}
	return record.ID, nil
}

func (h *historyRepositoryImpl) ListMiningRecords() ([]MiningRecord, error) {
	records := []MiningRecord{}
	if err := h.store.Find(
		&records, (&badgerhold.Query{}).SortBy("CreatedAt"),
	); err != nil {
		return nil, err
	}
	return records, nil
}

func (h *historyRepositoryImpl) AddBroadcastRecord(
	record BroadcastRecord,
) (string, error) {
	if len(record.ID) <= 0 {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if err := h.store.Insert(record.ID, record); err != nil {
		return "", err
	}
	return record.ID, nil
}

func (h *historyRepositoryImpl) ListBroadcastRecords() ([]BroadcastRecord, error) {
	records := []BroadcastRecord{}
	if err := h.store.Find(
		&records, (&badgerhold.Query{}).SortBy("CreatedAt"),
	); err != nil {
		return nil, err
	}
	return records, nil
}

func (h *historyRepositoryImpl) Close() error {
	return h.store.Close()
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger
	opts.Compression = options.ZSTD

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
