package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/coffeedia/internal/server"
	"github.com/dmitrijs2005/coffeedia/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("%v", err)
		return
	}

	server.NewApp(cfg).Run(context.Background())
}
