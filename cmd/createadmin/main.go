// Command createadmin provisions an admin account in the configured database.
//
//	createadmin -email root@school.test -password '...'
//
// ADMIN_EMAIL and ADMIN_PASSWORD are used when the flags are omitted.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/auth"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/config"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/database"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/repository"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/service"
)

func main() {
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (min 8 characters)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *email == "" || *password == "" {
		log.Fatal("email and password are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.MigrateOnStart {
		if _, err := database.Migrate(cfg.DB.URL(database.MigrationScheme)); err != nil {
			log.WithError(err).Fatal("migrate")
		}
	}
	pool, err := database.NewPool(ctx, cfg.DB, log)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer pool.Close()

	issuer, err := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)
	if err != nil {
		log.WithError(err).Fatal("token issuer")
	}
	accounts := service.NewAccountService(repository.NewAccountRepository(pool), issuer)

	u, err := accounts.BootstrapAdmin(ctx, *email, *password)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		log.WithField("email", *email).Warn("account already exists")
		return
	case err != nil:
		log.WithError(err).Fatal("create admin")
	}
	log.WithFields(logrus.Fields{"id": u.ID, "email": u.Email}).Info("admin created")
}
