package bootstrap

import (
	"time"

	"faucet-agent/internal/config"
	"faucet-agent/internal/scenario"

	"go.uber.org/fx"
)

func NewApp() *fx.App {
	return fx.New(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,
			newDriverFactory,

			scenario.New,
		),

		fx.Invoke(
			runScenario,
		),

		fx.StartTimeout(10*time.Second),
	)
}
