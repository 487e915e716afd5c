package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vanitydag/vanityd/internal/config"
	"github.com/vanitydag/vanityd/internal/storage"
	"github.com/vanitydag/vanityd/pkg/miner"
)

var mine = cli.Command{
	Name:  "mine",
	Usage: "search a nonce that gives the envelope a vanity id",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "target-bits",
			Usage: "required number of trailing zero bits in the id",
		},
		&cli.StringFlag{
			Name:  "contract-type",
			Usage: "hex encoded contract type tag of the envelope",
		},
		&cli.StringFlag{
			Name:  "payload",
			Usage: "hex encoded payload template, the nonce is appended to it",
		},
		&cli.UintFlag{
			Name:  "version",
			Usage: "envelope version byte",
			Value: 1,
		},
		&cli.Uint64Flag{
			Name:  "start-nonce",
			Usage: "nonce the search starts from",
		},
		&cli.Uint64Flag{
			Name:  "max-iterations",
			Usage: "attempt ceiling before giving up",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "number of parallel scanners",
		},
	},
	Action: mineAction,
}

func mineAction(ctx *cli.Context) error {
	contractType, err := hex.DecodeString(ctx.String("contract-type"))
	if err != nil {
		return fmt.Errorf("invalid contract-type: %w", err)
	}
	payload, err := hex.DecodeString(ctx.String("payload"))
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	targetBits := ctx.Int("target-bits")
	if targetBits <= 0 {
		targetBits = config.GetInt(config.TargetBitsKey)
	}
	maxIterations := ctx.Uint64("max-iterations")
	if maxIterations <= 0 {
		maxIterations = config.GetUint64(config.MaxIterationsKey)
	}
	workers := ctx.Int("workers")
	if workers <= 0 {
		workers = config.GetInt(config.WorkersKey)
	}

	searchCtx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	result, err := miner.Search(searchCtx, miner.Config{
		TargetBits:       targetBits,
		Version:          byte(ctx.Uint("version")),
		ContractType:     contractType,
		PayloadTemplate:  payload,
		StartNonce:       ctx.Uint64("start-nonce"),
		MaxIterations:    maxIterations,
		Workers:          workers,
		BatchSize:        config.GetInt(config.BatchSizeKey),
		ProgressInterval: config.GetDuration(config.ProgressIntervalKey),
		OnProgress: func(p miner.Progress) {
			log.Infof(
				"mining: %d attempts, %.0f it/s, %.1f%% of expected work",
				p.Attempts, p.IterationsPerSecond, p.PercentOfExpected,
			)
		},
	})
	if err != nil {
		return err
	}

	if repo, err := getHistoryRepository(); err == nil {
		defer repo.Close()
		if _, err := repo.AddMiningRecord(storage.MiningRecord{
			TxID:            result.ID,
			TargetBits:      targetBits,
			Nonce:           result.Nonce,
			Attempts:        result.Attempts,
			Duration:        result.Duration,
			Success:         result.Success,
			BestPartialBits: result.BestPartialBits,
			EfficiencyRatio: result.EfficiencyRatio,
		}); err != nil {
			log.Warnf("failed to record mining session: %v", err)
		}
	} else {
		log.Warnf("failed to open history db: %v", err)
	}

	return printJSON(result)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
