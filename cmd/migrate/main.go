package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/angelmondragon/rentalz-backend/pkg/config"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
	"github.com/angelmondragon/rentalz-backend/pkg/migrate"
)

const usage = `usage: migrate <command> [flags]

commands:
  up                apply all pending migrations
  down              roll back the latest migration
  status            list migrations and whether they are applied
  to <version>      migrate up or down to the given version
  create <name>     scaffold a new migration in -dir
  validate          lint migration files without touching the database

flags:
  -dir string       read migrations from disk instead of the embedded set
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fset := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fset.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	dir := fset.String("dir", "", "migrations directory")
	if len(args) == 0 {
		fset.Usage()
		return errors.New("missing command")
	}
	command := args[0]
	if err := fset.Parse(args[1:]); err != nil {
		return err
	}
	rest := fset.Args()

	var source fs.FS = migrate.Embedded()
	if *dir != "" {
		source = os.DirFS(*dir)
	}

	// commands that never open a connection
	switch command {
	case "create":
		if len(rest) != 1 {
			return errors.New("create takes exactly one name")
		}
		target := *dir
		if target == "" {
			target = migrate.SourceDir
		}
		path, err := migrate.Scaffold(target, rest[0], time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		if err := migrate.Validate(source); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.FromConfig("migrate", cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "command": command})

	// goose only needs database/sql, so the CLI skips gorm and its pool
	// settings and talks to postgres through lib/pq directly.
	sqlDB, err := sql.Open("postgres", cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer sqlDB.Close()
	sqlDB.SetMaxOpenConns(1)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = sqlDB.PingContext(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	m, err := migrate.New(sqlDB, source)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		n, err := m.Up(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithFields(ctx, map[string]any{"applied": n}), "migrate.up_complete")
	case "down":
		if err := m.Down(ctx); err != nil {
			return err
		}
		logg.Info(ctx, "migrate.down_complete")
	case "status":
		rows, err := m.Status(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tAPPLIED\tFILE")
		for _, row := range rows {
			fmt.Fprintf(tw, "%d\t%t\t%s\n", row.Version, row.Applied, row.File)
		}
		return tw.Flush()
	case "to":
		if len(rest) != 1 {
			return errors.New("to takes exactly one version")
		}
		version, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			return fmt.Errorf("version %q is not YYYYMMDDHHMMSS: %w", rest[0], err)
		}
		if err := m.To(ctx, version); err != nil {
			return err
		}
		logg.Info(logg.WithFields(ctx, map[string]any{"version": version}), "migrate.to_complete")
	default:
		fset.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}
