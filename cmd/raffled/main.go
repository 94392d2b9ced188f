// raffled runs the charity raffle engine with an HTTP API, a periodic
// upkeep scheduler, and a local randomness coordinator.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/R3E-Network/charity-raffle/internal/config"
	"github.com/R3E-Network/charity-raffle/internal/coordinator"
	"github.com/R3E-Network/charity-raffle/internal/database"
	"github.com/R3E-Network/charity-raffle/internal/httpapi"
	"github.com/R3E-Network/charity-raffle/internal/metrics"
	"github.com/R3E-Network/charity-raffle/internal/scheduler"
	"github.com/R3E-Network/charity-raffle/internal/treasury"
	"github.com/R3E-Network/charity-raffle/pkg/logger"
	"github.com/R3E-Network/charity-raffle/raffle"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("raffled").WithError(err).Fatal("failed to load configuration")
	}

	log := logger.New(cfg.Service.Name, cfg.Service.LogLevel, cfg.Service.LogFormat)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("raffled exited with error")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	charities := [raffle.NumCharities]raffle.Address{
		raffle.Address(cfg.Raffle.Charity1),
		raffle.Address(cfg.Raffle.Charity2),
		raffle.Address(cfg.Raffle.Charity3),
	}
	if cfg.BeneficiaryManifest != "" {
		beneficiaries, err := config.LoadBeneficiaries(cfg.BeneficiaryManifest)
		if err != nil {
			return err
		}
		for i, b := range beneficiaries {
			charities[i] = raffle.Address(b.Address)
			log.WithField("charity", i+1).
				WithField("name", b.Name).
				WithField("address", b.Address).
				Info("beneficiary configured")
		}
	}

	ledger := treasury.New(log.WithField("component", "treasury"))
	if err := ledger.Credit(raffle.Address(cfg.Raffle.Account), cfg.Raffle.Jackpot); err != nil {
		return err
	}
	if err := ledger.Credit(raffle.Address(cfg.Raffle.Funder), cfg.Raffle.FunderBalance); err != nil {
		return err
	}

	coord := coordinator.New(log.WithField("component", "coordinator"))
	defer coord.Close()

	engine, err := raffle.New(raffle.Config{
		EntranceFee:          cfg.Raffle.EntranceFee,
		Duration:             cfg.Raffle.Duration,
		Funder:               raffle.Address(cfg.Raffle.Funder),
		Charities:            charities,
		RequestConfirmations: cfg.Raffle.RequestConfirmations,
	}, raffle.Address(cfg.Raffle.Account), ledger, coord, log.WithField("component", "engine"))
	if err != nil {
		return err
	}
	coord.AttachConsumer(engine)

	m := metrics.New()
	engine.WithPublisher(m)

	var store raffle.Store
	if cfg.Database.URL != "" {
		db, err := database.Connect(cfg.Database.URL, log.WithField("component", "database"))
		if err != nil {
			return err
		}
		defer db.Close()
		store = database.NewCycleStore(db)
	} else {
		store = raffle.NewMemoryStore()
		log.Info("no database configured, keeping cycle history in memory")
	}
	engine.WithStore(store)

	go coord.Run(ctx)

	sched, err := scheduler.New(engine, cfg.Scheduler.UpkeepSchedule, log.WithField("component", "scheduler"))
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	server := httpapi.New(engine, store, m, log.WithField("component", "httpapi"))
	log.WithField("entrance_fee", cfg.Raffle.EntranceFee).
		WithField("duration", cfg.Raffle.Duration.String()).
		WithField("jackpot", cfg.Raffle.Jackpot).
		Info("raffle open")
	return server.ListenAndServe(ctx, cfg.HTTP.Addr, cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)
}
