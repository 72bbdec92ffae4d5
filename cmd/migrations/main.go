package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookmeta/pkg/config"
	"github.com/shishobooks/bookmeta/pkg/database"
	"github.com/shishobooks/bookmeta/pkg/migrations"
	"github.com/urfave/cli/v2"
)

// Manages the schema of the SQLite cache backend at BOOKMETA_CACHE_FILE_PATH.
func main() {
	log := logger.New()

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}
	if cfg.CacheBackend != config.CacheBackendSQLite {
		log.Err(errors.Errorf("cache_backend is %q", cfg.CacheBackend)).Fatal("migrations only apply to the sqlite cache backend")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}
	defer db.Close()

	app := &cli.App{
		Name:  "migrations",
		Usage: "manage the schema of the sqlite book cache",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply pending migrations",
				Action: func(c *cli.Context) error {
					group, err := migrations.BringUpToDate(c.Context, db)
					if err != nil {
						return err
					}
					if group.ID == 0 {
						fmt.Printf("There are no new migrations to run\n")
						return nil
					}
					fmt.Printf("Migrated to %s\n", group)
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "roll back the last migration group",
				Action: func(c *cli.Context) error {
					group, err := migrations.NewMigrator(db).Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.ID == 0 {
						fmt.Printf("There are no groups to roll back\n")
						return nil
					}
					fmt.Printf("Rolled back %s\n", group)
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migration status",
				Action: func(c *cli.Context) error {
					migrator := migrations.NewMigrator(db)
					if err := migrator.Init(c.Context); err != nil {
						return err
					}
					ms, err := migrator.MigrationsWithStatus(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Migrations: %s\n", ms)
					fmt.Printf("Unapplied migrations: %s\n", ms.Unapplied())
					fmt.Printf("Last migration group: %s\n", ms.LastGroup())
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}
}
