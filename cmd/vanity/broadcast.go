package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vanitydag/vanityd/internal/config"
	"github.com/vanitydag/vanityd/internal/storage"
	"github.com/vanitydag/vanityd/pkg/broadcaster"
)

var broadcast = cli.Command{
	Name:      "broadcast",
	Usage:     "submit a signed transaction read from the given file",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "method",
			Usage: "submission method: auto, rpc or rest",
		},
		&cli.IntFlag{
			Name:  "retry-attempts",
			Usage: "extra submissions after a failing broadcast",
			Value: -1,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "pause between submissions",
		},
		&cli.BoolFlag{
			Name:  "wait",
			Usage: "wait for the transaction to confirm",
		},
		&cli.DurationFlag{
			Name:  "confirmation-timeout",
			Usage: "bound on the confirmation wait",
		},
		&cli.DurationFlag{
			Name:  "poll-interval",
			Usage: "cadence of confirmation polling",
		},
	},
	Action: broadcastAction,
}

func broadcastAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return fmt.Errorf("missing signed transaction file argument")
	}

	raw, err := ioutil.ReadFile(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	signedTx, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return fmt.Errorf("invalid transaction hex: %w", err)
	}

	method := ctx.String("method")
	if len(method) <= 0 {
		method = config.GetString(config.BroadcastMethodKey)
	}
	retryAttempts := ctx.Int("retry-attempts")
	if retryAttempts < 0 {
		retryAttempts = config.GetInt(config.RetryAttemptsKey)
	}
	retryDelay := ctx.Duration("retry-delay")
	if retryDelay <= 0 {
		retryDelay = config.GetDuration(config.RetryDelayKey)
	}
	confirmationTimeout := ctx.Duration("confirmation-timeout")
	if confirmationTimeout <= 0 {
		confirmationTimeout = config.GetDuration(config.ConfirmationTimeoutKey)
	}
	pollInterval := ctx.Duration("poll-interval")
	if pollInterval <= 0 {
		pollInterval = config.GetDuration(config.PollIntervalKey)
	}

	coordinator, cleanup, err := getCoordinator()
	if err != nil {
		return err
	}
	defer cleanup()

	broadcastCtx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	result := coordinator.Broadcast(broadcastCtx, signedTx, broadcaster.Options{
		Method:              method,
		RetryAttempts:       retryAttempts,
		RetryDelay:          retryDelay,
		WaitForConfirmation: ctx.Bool("wait"),
		ConfirmationTimeout: confirmationTimeout,
		PollInterval:        pollInterval,
		OnProgress: func(u broadcaster.ProgressUpdate) {
			log.Infof(
				"broadcast: %s over %s (attempt %d)", u.Stage, u.Method, u.Attempt,
			)
		},
	})

	if repo, err := getHistoryRepository(); err == nil {
		defer repo.Close()
		record := storage.BroadcastRecord{
			RequestID: result.RequestID,
			TxID:      result.TxID,
			Method:    result.Method,
			Attempts:  len(result.Attempts),
			Success:   result.Success,
			Error:     result.ErrorMessage,
		}
		if result.Confirmation != nil {
			record.Confirmed = result.Confirmation.Confirmed
			record.TimedOut = result.Confirmation.TimedOut
		}
		if _, err := repo.AddBroadcastRecord(record); err != nil {
			log.Warnf("failed to record broadcast: %v", err)
		}
	} else {
		log.Warnf("failed to open history db: %v", err)
	}

	return printJSON(result)
}
