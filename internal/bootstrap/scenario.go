package bootstrap

import (
	"context"

	"faucet-agent/internal/scenario"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// runScenario runs the scenario once in the background and shuts the app
// down with the scenario's exit code. The site is left signed in only when
// the run failed; that failure is the non-zero code.
func runScenario(lc fx.Lifecycle, sh fx.Shutdowner, sc *scenario.Scenario, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("Starting the free play scenario...")

			go func() {
				code := sc.Run(ctx)

				if err := sh.Shutdown(fx.ExitCode(code)); err != nil {
					logger.Error("Shutdown failed", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()

			return nil
		},
	})
}
