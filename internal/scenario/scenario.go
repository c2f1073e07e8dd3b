// Package scenario runs the end-to-end free play loop: open the site, sign
// in, then keep playing rounds while handling countdowns, bonus activation
// and site outages, and sign out at the end.
package scenario

import (
	"context"
	"fmt"
	"time"

	"faucet-agent/internal/browser"
	"faucet-agent/internal/config"
	"faucet-agent/internal/entity"
	"faucet-agent/internal/faucet"
	"faucet-agent/pkg/logg"
	"faucet-agent/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	scenarioLayerName = "Scenario"
	scenarioTracer    = "scenario"
)

type Scenario struct {
	config  *config.Config
	logger  *zap.Logger
	tracer  trace.Tracer
	factory browser.Factory

	// sleep is swapped out in tests; the default honors ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) bool
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Factory browser.Factory
}

func New(params Params) *Scenario {
	return &Scenario{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, scenarioLayerName)),
		tracer:  otel.Tracer(scenarioTracer),
		factory: params.Factory,
		sleep:   sleepCtx,
	}
}

// Run executes the whole scenario and returns the process exit code: 0 when
// the session ended signed out, 1 otherwise.
func (s *Scenario) Run(ctx context.Context) (code int) {
	const op = "Run"

	var err error

	logger := s.logger.With(zap.String(logg.RunID, uuid.NewString()))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() { step.End(err) }()

	driver, err := s.factory(ctx)
	if err != nil {
		logger.Error("Creating the browser session failed", zap.Error(err))

		return 1
	}

	site := faucet.New(s.config, logger, driver)
	defer site.Quit(ctx)

	logger.Info("Scenario started",
		zap.String(logg.Browser, site.BrowserName()),
		zap.String("browser_version", site.BrowserVersion()),
		zap.Duration("elem_wait_timeout", site.ElemWaitTimeout()))

	if !site.Open(ctx, s.config.ScenarioConfig.URL) {
		return 1
	}

	logger.Info("Page ready", zap.String(logg.URL, site.CurrentURL()), zap.String("title", site.Title()))

	if s.config.ScenarioConfig.CloseCookieWarningBanner {
		site.CloseCookieWarningBanner(ctx)
	}

	if s.config.ScenarioConfig.CloseNotificationModal {
		site.CloseNotificationModal(ctx)
	}

	if !site.SignIn(ctx, s.config.AuthConfig.Address, s.config.AuthConfig.Password, s.config.AuthConfig.TOTPSecret) {
		return 1
	}

	// Signing in can pop the notification modal a second time.
	if s.config.ScenarioConfig.CloseNotificationModal {
		site.CloseNotificationModal(ctx)
	}

	logger.Debug("Account details",
		zap.String("user_id", site.UserID(ctx)),
		zap.String("email", site.EmailAddress(ctx)),
		zap.String("btc_address", site.BTCAddress(ctx)))

	if phone := site.RecoveryPhoneNumber(ctx); phone != "" && phone != "+0" {
		logger.Debug("Recovery phone number is set")
	}

	site.SetSoundFreePlay(ctx, s.config.ScenarioConfig.SoundFreePlay)
	site.SetDisableLottery(ctx, s.config.ScenarioConfig.DisableLottery)
	site.SetDisableInterest(ctx, s.config.ScenarioConfig.DisableInterest)

	logger.Info("Starting balances", balancesFields(site.Balances(ctx))...)

	s.playRounds(ctx, logger, site)

	if !site.SignOut(ctx) {
		return 1
	}

	return 0
}

// playRounds plays free play rounds until the configured number is reached,
// a round fails to play, or the context is cancelled. Zero rounds
// configured means no bound.
func (s *Scenario) playRounds(ctx context.Context, logger *zap.Logger, site *faucet.Faucet) {
	conf := s.config.ScenarioConfig

	bound := "infinity"
	if conf.FreePlayNum > 0 {
		bound = fmt.Sprint(conf.FreePlayNum)
	}

	for round := 1; ; round++ {
		if ctx.Err() != nil {
			return
		}

		log := logger.With(zap.Int(logg.Round, round))

		if conf.FreePlayNum != 1 {
			log.Info(fmt.Sprintf("Free play round %d of %s", round, bound))
		}

		if !s.playRound(ctx, log, site) {
			log.Error("Free play round failed")

			return
		}

		log.Info("Winnings", winningsFields(site.Winnings(ctx, conf.CheckForWinningWOF))...)
		log.Info("Balances", balancesFields(site.Balances(ctx))...)

		if conf.CloseAfterFreePlayModal {
			site.CloseAfterFreePlayModal(ctx)
		}

		if conf.PlayCompletionSound {
			site.PlayFreePlaySound(ctx)
		}

		if conf.FreePlayNum > 0 && round >= conf.FreePlayNum {
			return
		}
	}
}

// playRound makes the configured number of attempts to get one free play
// through, waiting out countdowns and site outages between attempts. Zero
// attempts configured means no bound.
func (s *Scenario) playRound(ctx context.Context, logger *zap.Logger, site *faucet.Faucet) bool {
	conf := s.config.ScenarioConfig

	for attempt := 1; conf.FreePlayAttempts == 0 || attempt <= conf.FreePlayAttempts; attempt++ {
		if ctx.Err() != nil {
			return false
		}

		log := logger.With(zap.Int(logg.Attempt, attempt))

		if attempt > 1 {
			if !s.refreshAndWaitAvailable(ctx, log, site) {
				return false
			}
		}

		if countdown := site.FreePlayCountdown(ctx); countdown > 0 {
			delay := time.Duration(countdown)*time.Second +
				secondsToDuration(conf.FreePlayAfterCountdownDelay)

			log.Info("Waiting out the free play countdown", zap.Duration("delay", delay))

			if !s.sleep(ctx, delay) {
				return false
			}

			if conf.FreePlayAfterCountdownRefresh && !site.Refresh(ctx) {
				continue
			}
		}

		if !site.IsReadyFreePlay(ctx) {
			log.Warn("Free play is not ready")

			continue
		}

		if len(conf.Bonuses) > 0 && site.LoadBonusTable(ctx) {
			for _, category := range []entity.BonusCategory{entity.BonusBTC, entity.BonusLT, entity.BonusWOF} {
				log.Debug("Bonus table",
					zap.String(logg.Category, string(category)),
					zap.Any("entries", site.BonusTable(ctx, category).Entries))
			}

			s.activateBonuses(ctx, log, site)
		}

		if site.PlayFreePlay(ctx) {
			return true
		}
	}

	return false
}

// activateBonuses runs the configured activation requests under the
// shortened element wait timeout and restores the regular one afterwards.
func (s *Scenario) activateBonuses(ctx context.Context, logger *zap.Logger, site *faucet.Faucet) {
	requests := requestedBonuses(s.config.ScenarioConfig.Bonuses)
	if len(requests) == 0 {
		return
	}

	regular := site.ElemWaitTimeout()
	site.SetElemWaitTimeout(secondsToDuration(s.config.ScenarioConfig.BonusesTimeoutElemWait))

	outcomes := site.ActivateBonuses(ctx, requests)

	site.SetElemWaitTimeout(regular)

	for _, outcome := range outcomes {
		logger.Debug("Bonus activation outcome",
			zap.String(logg.Category, string(outcome.Category)),
			zap.Int("requested", outcome.Requested),
			zap.String("current", outcome.Current.String()),
			zap.Bool("attempted", outcome.Attempted))
	}
}

// refreshAndWaitAvailable refreshes the page and, when the site does not
// answer, retries with a multiplicatively growing pause. Zero configured
// attempts means no bound on retries.
func (s *Scenario) refreshAndWaitAvailable(ctx context.Context, logger *zap.Logger, site *faucet.Faucet) bool {
	conf := s.config.ScenarioConfig
	pause := secondsToDuration(conf.OnUnavailableTimeout)

	for try := 1; ; try++ {
		if ctx.Err() != nil {
			return false
		}

		if site.Refresh(ctx) && site.IsAvailable(ctx) {
			return true
		}

		if conf.OnUnavailableAttempts > 0 && try >= conf.OnUnavailableAttempts {
			logger.Error("Site did not become available",
				zap.Int("tries", try))

			return false
		}

		logger.Warn("Site is unavailable, pausing before the next try",
			zap.Int("try", try),
			zap.Duration("pause", pause))

		if !s.sleep(ctx, pause) {
			return false
		}

		pause = time.Duration(float64(pause) * conf.OnUnavailableIncrease)
	}
}

func requestedBonuses(requests []entity.BonusRequest) []entity.BonusRequest {
	for _, req := range requests {
		if req.Key != 0 {
			return requests
		}
	}

	return nil
}

func balancesFields(b entity.Balances) []zap.Field {
	return []zap.Field{
		zap.String("btc", b.BTC.String()),
		zap.Int("reward_points", b.RewardPoints),
		zap.Int("lottery_tickets", b.LotteryTickets),
	}
}

func winningsFields(w entity.Winnings) []zap.Field {
	return []zap.Field{
		zap.String("btc", w.BTC.String()),
		zap.Int("reward_points", w.RewardPoints),
		zap.Int("lottery_tickets", w.LotteryTickets),
		zap.Int("wheel_spins", w.WheelSpins),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
