// Command reconcile replays every shop's ledger and reports shops whose running
// debt balance disagrees with it. It exits 1 when any drift is found.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go-distributor-ledger/internal/config"
	"go-distributor-ledger/internal/notify"
	"go-distributor-ledger/internal/repository"
	"go-distributor-ledger/internal/service"
	"go-distributor-ledger/pkg/database"
	"go-distributor-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// discard drops events; reconcile never writes to the ledger.
type discard struct{}

func (discard) Notify(notify.Event) {}

func main() {
	shopFlag := flag.String("shop", "", "reconcile a single shop id")
	verbose := flag.Bool("v", false, "print consistent shops too")
	flag.Parse()

	log := logger.Get()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(cfg.LogLevel)

	db, err := database.ConnectDB(database.Options{
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		MaxAttempts:  cfg.DBConnectTries,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}

	ledger := service.NewLedgerService(db, repository.NewRepositories(db), discard{}, log)
	ctx := context.Background()

	var drifts []service.Drift
	if *shopFlag != "" {
		id, err := uuid.Parse(*shopFlag)
		if err != nil {
			log.WithError(err).Fatal("invalid shop id")
		}
		d, err := ledger.ReconcileShop(ctx, id)
		if err != nil {
			log.WithError(err).Fatal("reconcile failed")
		}
		drifts = []service.Drift{*d}
	} else if drifts, err = ledger.ReconcileAll(ctx); err != nil {
		log.WithError(err).Fatal("reconcile failed")
	}

	bad := 0
	for _, d := range drifts {
		if d.Consistent() {
			if *verbose {
				fmt.Printf("ok     %s  %-30s  %s\n", d.ShopID, d.ShopName, d.TotalDebt)
			}
			continue
		}
		bad++
		fmt.Printf("DRIFT  %s  %-30s  balance=%s ledger=%s diff=%s\n", d.ShopID, d.ShopName, d.TotalDebt, d.LedgerDebt, d.Difference)
	}
	log.WithFields(logrus.Fields{"shops": len(drifts), "drifted": bad}).Info("reconcile finished")
	if bad > 0 {
		os.Exit(1)
	}
}
