package main

import (
	"context"
	"log"

	corecmd "github.com/sdsgks2b79-svg/GG-market-sub000/core/cmd"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/app"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.Bootstrap(ctx, cfg.(*app.Config))
		},
	})
	if err != nil {
		log.Fatalf("shopbot: %v", err)
	}
}
