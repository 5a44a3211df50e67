package main

import (
	"context"
	"flag"

	"go-distributor-ledger/internal/config"
	"go-distributor-ledger/internal/repository"
	"go-distributor-ledger/pkg/database"
	"go-distributor-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func main() {
	phone := flag.String("phone", "", "phone number of the account")
	password := flag.String("password", "admin123", "new password")
	flag.Parse()

	log := logger.Get()

	// 1. Load Env
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if *phone == "" {
		*phone = cfg.SeedAdminPhone
	}
	if len(*password) < 6 {
		log.Fatal("password must be at least 6 characters")
	}

	// 2. Setup Database
	db, err := database.ConnectDB(database.Options{DSN: cfg.DatabaseURL, MaxAttempts: cfg.DBConnectTries}, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	// 3. Find user
	user, err := users.FindByPhone(ctx, *phone)
	if err != nil {
		log.WithError(err).WithField("phone", *phone).Fatal("user not found")
	}

	// 4. Hash and store; rotating the token version signs out every session
	if err := user.SetPassword(*password); err != nil {
		log.WithError(err).Fatal("failed to hash password")
	}
	if err := users.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		log.WithError(err).Fatal("failed to update password")
	}
	if err := users.UpdateTokenVersion(ctx, user.ID, uuid.New().String()); err != nil {
		log.WithError(err).Fatal("failed to revoke sessions")
	}

	log.WithFields(logrus.Fields{"phone": *phone, "role": user.Role}).Info("password reset")
}
