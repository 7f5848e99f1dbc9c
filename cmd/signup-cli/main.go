// cmd/signup-cli/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rozgar-signup/internal/common/auth"
	"rozgar-signup/internal/common/aws"
	"rozgar-signup/internal/common/backend"
	"rozgar-signup/internal/common/camunda"
	"rozgar-signup/internal/common/config"
	"rozgar-signup/internal/common/database"
	httpclient "rozgar-signup/internal/common/http"
	"rozgar-signup/internal/common/i18n"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/common/observability"
	"rozgar-signup/internal/models"
	"rozgar-signup/internal/signup/controller"
	"rozgar-signup/internal/signup/recovery"
	voicesession "rozgar-signup/internal/signup/voice-session"
)

func main() {
	strategy := flag.String("strategy", "form", "registration surface: form, chatbot or voice")
	login := flag.Bool("login", false, "sign in with an existing account (form only)")
	lang := flag.String("lang", "", "interface language, defaults to locale.default")
	audio := flag.String("audio", "", "pre-recorded audio file used as the microphone")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	// stdout belongs to the prompts.
	output := cfg.Logging.Output
	if output == "stdout" {
		output = "stderr"
	}
	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	locale := i18n.NewLocale(cfg.Locale.Default)
	if *lang != "" {
		if err := locale.Change(*lang); err != nil {
			zapLog.Fatal("unsupported language", zap.String("lang", *lang), zap.Error(err))
		}
	}

	transport := httpclient.NewClient(
		cfg.API.BaseURL,
		config.GetDuration(cfg.API.Timeouts.Transport),
		httpclient.WithTracer(obs.Tracer()),
	)
	api := backend.New(transport, backend.TimeoutsFromConfig(cfg.API), log)

	store, closeStore := tokenStore(ctx, cfg, zapLog)
	defer closeStore()

	state := auth.NewState(store, api, locale, log)
	if err := state.Init(ctx); err != nil {
		zapLog.Warn("could not restore session", zap.Error(err))
	}
	if user := state.CurrentUser(); user != nil {
		fmt.Printf("Signed in as %s (%s). Open the %s dashboard.\n",
			user.Name, logger.MaskPhone(user.PhoneNumber), models.Registration{Role: user.Role}.DashboardTarget())
		return
	}

	deps := controller.Dependencies{
		Services: controller.Services{
			Accounts:     api,
			Profiles:     api,
			Conversation: api,
			Transcriber:  api,
			Extractor:    api,
		},
		Auth:      state,
		Locale:    locale,
		Telemetry: obs,
		Voice:     voiceConfig(cfg),
		Logger:    log,
	}

	if cfg.Notifications.SMS.Enabled {
		sms, err := aws.NewSNSClient(ctx, cfg.Notifications.SMS.Region, cfg.Notifications.SMS.SenderID)
		if err != nil {
			zapLog.Warn("sms disabled", zap.Error(err))
		} else {
			deps.SMS = sms
		}
	}

	if cfg.Camunda.Enabled {
		zeebe, err := camunda.NewClient(cfg.Camunda, log)
		if err != nil {
			zapLog.Warn("registration events disabled", zap.Error(err))
		} else {
			defer zeebe.Close()
			deps.Events = zeebe
		}
	}

	if cfg.Recovery.Enabled {
		pg, err := database.ConnectOutbox(ctx, cfg.Database.Postgres, recovery.Schema)
		if err != nil {
			zapLog.Warn("recovery outbox disabled", zap.Error(err))
		} else {
			defer pg.Close()
			deps.Outbox = recovery.NewOutbox(pg.DB)
		}
	}

	if *audio != "" {
		mic, err := voicesession.NewFileMicrophone(*audio)
		if err != nil {
			zapLog.Fatal("invalid audio file", zap.Error(err))
		}
		deps.Microphone = mic
	}

	done := make(chan models.Registration, 1)
	deps.OnRegistered = func(ctx context.Context, reg models.Registration) {
		done <- reg
	}
	ctrl := controller.New(deps)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		server := &http.Server{Addr: cfg.Metrics.Address, Handler: promhttp.Handler()}
		g.Go(func() error {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return ctrl.Close()
	})

	g.Go(func() error {
		defer stop()
		d := newDriver(os.Stdin, os.Stdout, ctrl, locale)
		return d.run(gctx, models.Strategy(*strategy), *login)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		zapLog.Error("signup ended with error", zap.Error(err))
	}

	select {
	case reg := <-done:
		fmt.Printf("%s Open the %s dashboard.\n", locale.T(i18n.KeyRegistered), reg.DashboardTarget())
	default:
	}
}

// tokenStore picks the configured identity token backend.
func tokenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (auth.TokenStore, func()) {
	if cfg.Storage.TokenBackend == "redis" {
		rdb, err := database.ConnectRedis(ctx, cfg.Database.Redis, 2*time.Second)
		if err != nil {
			log.Warn("redis token store unreachable, falling back to file", zap.Error(err))
		} else {
			return auth.NewRedisStore(rdb, cfg.Storage.RedisKey), func() { rdb.Close() }
		}
	}
	return auth.NewFileStore(cfg.Storage.TokenFile), func() {}
}

func voiceConfig(cfg *config.Config) voicesession.Config {
	vc := voicesession.DefaultConfig()
	if len(cfg.Voice.Formats) > 0 {
		vc.Formats = cfg.Voice.Formats
	}
	vc.EchoCancellation = !cfg.Voice.DisableEchoCancellation
	vc.NoiseSuppression = !cfg.Voice.DisableNoiseSuppression
	if cfg.Voice.TickInterval > 0 {
		vc.TickInterval = config.GetDuration(cfg.Voice.TickInterval)
	}
	if cfg.API.Timeouts.Transcription > 0 {
		vc.TranscriptionTimeout = config.GetDuration(cfg.API.Timeouts.Transcription)
	}
	if cfg.API.Timeouts.Extraction > 0 {
		vc.ExtractionTimeout = config.GetDuration(cfg.API.Timeouts.Extraction)
	}
	return vc
}
