package main

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vanitydag/vanityd/pkg/mathutil"
	"github.com/vanitydag/vanityd/pkg/pskt"
)

var psktCmd = cli.Command{
	Name:  "pskt",
	Usage: "generate and validate partially signed transaction documents",
	Subcommands: []*cli.Command{
		{
			Name:   "generate",
			Usage:  "fund a transaction from the wallet's utxos and print the PSKT",
			Action: psktGenerateAction,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "address",
					Usage: "wallet address to list funding utxos from",
				},
				&cli.StringFlag{
					Name:  "destination",
					Usage: "hex encoded receiver script",
				},
				&cli.Uint64Flag{
					Name:  "amount",
					Usage: "amount to send, in sompi",
				},
				&cli.Uint64Flag{
					Name:  "fee",
					Usage: "fee to pay, in sompi",
				},
				&cli.Uint64Flag{
					Name:  "fee-basis-points",
					Usage: "derive the fee as basis points of the amount (ie. 0.25% = 25)",
				},
				&cli.StringFlag{
					Name:  "payload",
					Usage: "hex encoded envelope payload to embed",
				},
				&cli.StringFlag{
					Name:  "change",
					Usage: "hex encoded change script, defaults to the destination",
				},
				&cli.StringFlag{
					Name:  "out",
					Usage: "write the document to this file instead of stdout",
				},
			},
		},
		{
			Name:      "validate",
			Usage:     "validate a PSKT document read from the given file",
			ArgsUsage: "<file>",
			Action:    psktValidateAction,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "strict",
					Usage: "treat warnings as errors",
				},
			},
		},
	},
}

func psktGenerateAction(ctx *cli.Context) error {
	payload, err := hex.DecodeString(ctx.String("payload"))
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	methods, defaultMethod, cleanup, err := getNodeServices()
	if err != nil {
		return err
	}
	defer cleanup()

	utxos, err := methods[defaultMethod].ListUtxos(ctx.String("address"))
	if err != nil {
		return err
	}

	amount := ctx.Uint64("amount")
	fee := ctx.Uint64("fee")
	if bps := ctx.Uint64("fee-basis-points"); fee <= 0 && bps > 0 {
		_, fee = mathutil.PlusFee(amount, bps)
	}
	log.Debugf(
		"pskt: funding %s coins plus %s fee",
		mathutil.CoinFromSompi(amount), mathutil.CoinFromSompi(fee),
	)

	doc, err := pskt.Generate(pskt.GenerateOpts{
		Utxos:           utxos,
		Destination:     ctx.String("destination"),
		Amount:          amount,
		Fee:             fee,
		EnvelopePayload: payload,
		ChangeScript:    ctx.String("change"),
	})
	if err != nil {
		return err
	}

	serialized, err := doc.Serialize()
	if err != nil {
		return err
	}

	if outPath := ctx.String("out"); len(outPath) > 0 {
		return ioutil.WriteFile(outPath, serialized, 0644)
	}
	fmt.Println(string(serialized))
	return nil
}

func psktValidateAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return fmt.Errorf("missing PSKT file argument")
	}

	raw, err := ioutil.ReadFile(ctx.Args().Get(0))
	if err != nil {
		return err
	}

	result := pskt.Validate(raw, ctx.Bool("strict"))
	if err := printJSON(result); err != nil {
		return err
	}
	if !result.Success {
		os.Exit(1)
	}
	return nil
}
