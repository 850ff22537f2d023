package main

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/paymint/paymint/internal/app"
)

func main() {
	os.Exit(run())
}

// run blocks until fx reports a shutdown signal and returns the process exit code.
func run() int {
	paymint := fx.New(app.Module)

	startCtx, cancelStart := context.WithTimeout(context.Background(), app.DefaultStartTimeout)
	defer cancelStart()
	if err := paymint.Start(startCtx); err != nil {
		// the app logger may not exist yet
		zap.NewExample().Sugar().Errorw("paymint start failed", "err", err)
		return 1
	}

	sig := <-paymint.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer cancelStop()
	if err := paymint.Stop(stopCtx); err != nil {
		zap.NewExample().Sugar().Errorw("paymint stop failed", "err", err)
		return 1
	}
	return sig.ExitCode
}
