package main

import (
	"bufio"
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/docchat/internal/adminctl"
	"github.com/dmitrijs2005/docchat/internal/logging"
	"github.com/dmitrijs2005/docchat/internal/server"
	"github.com/dmitrijs2005/docchat/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	opts, err := adminctl.ParseOptions(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close(ctx)

	if err := adminctl.Run(ctx, app.Users(), opts, bufio.NewReader(os.Stdin), os.Stdout); err != nil {
		app.Close(ctx)
		log.Fatalf("%v", err)
	}

}
