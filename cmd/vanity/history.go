package main

import (
	"github.com/urfave/cli/v2"
)

var history = cli.Command{
	Name:  "history",
	Usage: "list past mining and broadcast sessions",
	Subcommands: []*cli.Command{
		{
			Name:   "mining",
			Usage:  "list recorded mining sessions",
			Action: historyMiningAction,
		},
		{
			Name:   "broadcasts",
			Usage:  "list recorded broadcasts",
			Action: historyBroadcastsAction,
		},
	},
}

func historyMiningAction(ctx *cli.Context) error {
	repo, err := getHistoryRepository()
	if err != nil {
		return err
	}
	defer repo.Close()

	records, err := repo.ListMiningRecords()
	if err != nil {
		return err
	}
	return printJSON(records)
}

func historyBroadcastsAction(ctx *cli.Context) error {
	repo, err := getHistoryRepository()
	if err != nil {
		return err
	}
	defer repo.Close()

	records, err := repo.ListBroadcastRecords()
	if err != nil {
		return err
	}
	return printJSON(records)
}
