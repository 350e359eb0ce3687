package main

import (
	"fmt"
	"os"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	a.Log.Info("starting HTTP server", "addr", a.Cfg.HTTPAddr)
	if err := a.Run(); err != nil {
		a.Log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
