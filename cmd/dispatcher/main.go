package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pinefarm/internal/app"
)

func main() {
	var (
		cfgPath string
		once    bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.BoolVar(&once, "once", false, "run a single dispatch sweep and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if once {
		sum, err := a.RunOnce(ctx)
		a.Stop()
		if err != nil {
			fmt.Println("fatal sweep:", err)
			os.Exit(1)
		}
		fmt.Printf("checked=%d triggered=%d skipped=%d push_ok=%d push_fail=%d email=%d pruned=%d\n",
			sum.Checked, sum.Triggered, sum.SkippedLogged, sum.PushSent, sum.PushFailed, sum.EmailSent, sum.Pruned)
		return
	}

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}

	<-ctx.Done()
	a.Stop()
}
