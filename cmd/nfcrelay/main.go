package main

import (
	"context"
	"log"

	"github.com/m3rciful/nfcrelay/core/bootstrap"
	corecmd "github.com/m3rciful/nfcrelay/core/cmd"
	coreconfig "github.com/m3rciful/nfcrelay/core/config"
	"github.com/m3rciful/nfcrelay/internal/bot"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		Bootstrap: func(ctx context.Context, cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
			infra, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
			if err != nil {
				return nil, err
			}
			return bot.New(cfg, infra), nil
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
