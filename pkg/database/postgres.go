package database

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Options struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxAttempts  int // 0 retries forever
}

// ConnectDB opens the postgres pool, retrying with capped exponential backoff.
func ConnectDB(opts Options, log *logrus.Logger) (*gorm.DB, error) {
	if opts.DSN == "" {
		return nil, errors.New("database DSN is empty")
	}

	var attempt int
	for {
		attempt++
		db, err := gorm.Open(postgres.New(postgres.Config{
			DSN:                  opts.DSN,
			PreferSimpleProtocol: true, // pgbouncer / Supabase transaction mode
		}), &gorm.Config{
			Logger:      NewGormLogger(log),
			PrepareStmt: false,
		})
		if err == nil {
			sqlDB, derr := db.DB()
			if derr != nil {
				return nil, derr
			}
			if opts.MaxIdleConns > 0 {
				sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
			}
			if opts.MaxOpenConns > 0 {
				sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
			}
			sqlDB.SetConnMaxLifetime(time.Hour)

			if pluginErr := db.Use(otelgorm.NewPlugin()); pluginErr != nil {
				log.WithError(pluginErr).Warn("db connected but failed to install otelgorm plugin")
			}
			log.WithField("attempt", attempt).Info("database connection established")
			return db, nil
		}

		if opts.MaxAttempts > 0 && attempt >= opts.MaxAttempts {
			return nil, err
		}
		sleep := backoff(attempt)
		log.WithFields(logrus.Fields{"attempt": attempt, "retry_in": sleep.String()}).
			WithError(err).Warn("failed to connect database")
		time.Sleep(sleep)
	}
}

func backoff(attempt int) time.Duration {
	if attempt > 5 {
		attempt = 5
	}
	sleep := time.Second * time.Duration(1<<attempt)
	if sleep > 30*time.Second {
		sleep = 30 * time.Second
	}
	return sleep
}

// NewGormLogger routes GORM's SQL log through logrus.
func NewGormLogger(log *logrus.Logger) logger.Interface {
	level := logger.Warn
	if log.IsLevelEnabled(logrus.DebugLevel) {
		level = logger.Info
	}
	return logger.New(
		log,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
