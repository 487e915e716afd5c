package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vanitydag/vanityd/internal/config"
	"github.com/vanitydag/vanityd/internal/storage"
	"github.com/vanitydag/vanityd/pkg/broadcaster"
	"github.com/vanitydag/vanityd/pkg/node"
	"github.com/vanitydag/vanityd/pkg/node/rest"
	"github.com/vanitydag/vanityd/pkg/node/rpc"
	"github.com/vanitydag/vanityd/pkg/stats"
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "vanity CLI"
	app.Usage = "mine, fund and broadcast transactions with vanity ids"
	app.Before = func(ctx *cli.Context) error {
		if err := config.InitConfig(); err != nil {
			return err
		}
		log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

		if config.GetBool(config.EnableStatsKey) {
			interval := time.Duration(config.GetInt(config.StatsIntervalKey)) * time.Second
			dumpPath := filepath.Join(
				config.GetDatadir(), config.StatsLocation, "metrics",
			)
			stats.EnableMemoryStatistics(context.Background(), interval, dumpPath)
		}
		return nil
	}
	app.Commands = append(
		app.Commands,
		&mine,
		&psktCmd,
		&broadcast,
		&history,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func getNodeServices() (map[string]node.Service, string, func(), error) {
	methods := map[string]node.Service{}
	cleanup := func() {}

	rpcAddr := config.GetString(config.NodeRPCAddrKey)
	if len(rpcAddr) > 0 {
		client, err := rpc.NewClient(fmt.Sprintf("ws://%s", rpcAddr))
		if err != nil {
			return nil, "", nil, fmt.Errorf("connecting to node rpc: %w", err)
		}
		methods["rpc"] = client
		cleanup = client.Close
	}

	restURL := config.GetString(config.NodeRESTURLKey)
	if len(restURL) > 0 {
		svc, err := rest.NewService(restURL)
		if err != nil {
			cleanup()
			return nil, "", nil, fmt.Errorf("connecting to node rest: %w", err)
		}
		methods["rest"] = svc
	}

	if len(methods) <= 0 {
		return nil, "", nil, fmt.Errorf(
			"no node endpoint configured, set %s or %s",
			config.NodeRPCAddrKey, config.NodeRESTURLKey,
		)
	}

	defaultMethod := "rpc"
	if _, ok := methods[defaultMethod]; !ok {
		defaultMethod = "rest"
	}
	return methods, defaultMethod, cleanup, nil
}

func getCoordinator() (*broadcaster.Coordinator, func(), error) {
	methods, defaultMethod, cleanup, err := getNodeServices()
	if err != nil {
		return nil, nil, err
	}

	coordinator, err := broadcaster.NewCoordinator(broadcaster.CoordinatorOpts{
		Methods:       methods,
		DefaultMethod: defaultMethod,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return coordinator, cleanup, nil
}

func getHistoryRepository() (storage.HistoryRepository, error) {
	dbDir := filepath.Join(config.GetDatadir(), config.DbLocation)
	return storage.NewHistoryRepository(dbDir, nil)
}

func fatal(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "[vanity] %v\n", err)
	os.Exit(1)
}
