package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/shishobooks/bookmeta/pkg/bookcache"
	"github.com/shishobooks/bookmeta/pkg/config"
	"github.com/shishobooks/bookmeta/pkg/epub"
	"github.com/shishobooks/bookmeta/pkg/version"
	"github.com/shishobooks/bookmeta/pkg/watcher"
	"github.com/shishobooks/bookmeta/pkg/worker"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	// A .env file in the working directory is optional.
	_ = godotenv.Load()

	cacheFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "cache",
			Aliases: []string{"c"},
			Usage:   "path of the cache file (overrides BOOKMETA_CACHE_FILE_PATH)",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "cache backend: file or sqlite (overrides BOOKMETA_CACHE_BACKEND)",
		},
	}

	app := &cli.App{
		Name:    "bookmeta",
		Usage:   "cache metadata of the e-books under a directory",
		Version: version.Version,
		Commands: []*cli.Command{
			{
				Name:      "scan",
				Usage:     "cache every new book under DIR and print the cache",
				ArgsUsage: "DIR",
				Flags: append(cacheFlags,
					&cli.IntFlag{
						Name:  "workers",
						Usage: "maximum concurrent extractions, 0 for one per file",
					},
					&cli.StringFlag{
						Name:  "extension",
						Usage: "archive file extension to scan for",
					},
					&cli.BoolFlag{
						Name:  "verify-mime",
						Usage: "skip files whose content is not of the archive type",
					},
				),
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.ShowSubcommandHelp(c)
					}

					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}

					store, err := bookcache.New(cfg)
					if err != nil {
						return err
					}
					defer store.Close()

					w := worker.New(cfg, epub.NewParser(), store)
					_, err = w.PrintMetaBooksFromDirectory(log.WithContext(c.Context), c.Args().First(), os.Stdout)
					return err
				},
			},
			{
				Name:      "watch",
				Usage:     "scan DIR, then rescan whenever something under it changes",
				ArgsUsage: "DIR",
				Flags: append(cacheFlags,
					&cli.IntFlag{
						Name:  "workers",
						Usage: "maximum concurrent extractions, 0 for one per file",
					},
					&cli.DurationFlag{
						Name:  "debounce",
						Usage: "quiet period after a change before rescanning",
					},
				),
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.ShowSubcommandHelp(c)
					}
					root := c.Args().First()

					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}

					store, err := bookcache.New(cfg)
					if err != nil {
						return err
					}
					defer store.Close()

					ctx := log.WithContext(c.Context)
					w := worker.New(cfg, epub.NewParser(), store)
					if _, err := w.PrintMetaBooksFromDirectory(ctx, root, os.Stdout); err != nil {
						return err
					}

					changes, err := watcher.New(log, root, cfg.WatchDebounce)
					if err != nil {
						return err
					}
					defer changes.Close()

					graceful := signals.Setup()
					log.Info("watching for changes", logger.Data{"root": root})
					for {
						select {
						case <-graceful:
							log.Info("stopping watch")
							return nil
						case _, ok := <-changes.Events():
							if !ok {
								return nil
							}
							result, err := w.Scan(ctx, root)
							if err != nil {
								return err
							}
							for _, record := range result.Records {
								fmt.Printf("%s\t%s\t%d\n", record.Filename, record.Title, record.DistinctWordCount)
							}
						}
					}
				},
			},
			{
				Name:  "list",
				Usage: "print the cache",
				Flags: cacheFlags,
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}

					store, err := bookcache.New(cfg)
					if err != nil {
						return err
					}
					defer store.Close()

					ctx := log.WithContext(c.Context)
					if _, err := store.LoadExisting(ctx); err != nil {
						return err
					}
					lines, err := store.Lines(ctx)
					if err != nil {
						return err
					}
					for _, line := range lines {
						fmt.Println(line)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("bookmeta error")
	}
}

// loadConfig reads the config file and environment, then applies the flags
// that were set on the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if c.IsSet("cache") {
		cfg.CacheFilePath = c.String("cache")
	}
	if c.IsSet("backend") {
		cfg.CacheBackend = c.String("backend")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("extension") {
		cfg.ArchiveExtension = c.String("extension")
	}
	if c.IsSet("debounce") {
		cfg.WatchDebounce = c.Duration("debounce")
	}
	if c.IsSet("verify-mime") {
		cfg.VerifyMimeType = c.Bool("verify-mime")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
