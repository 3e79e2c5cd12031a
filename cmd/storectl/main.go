// Command storectl runs operator tasks against the storefront database and brokers.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
)

const usage = `usage: storectl <command> [flags]

commands:
  check           verify database connectivity and schema
  migrate         create or update the schema
  create-admin    create or promote an admin account (-email, -password)
  topics          create the Kafka topics used for domain events
  prune-sessions  delete expired and revoked sessions
  reindex         push every product to the search index (-es-url, -es-index)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	config.LoadDotEnv()
	log := logging.New(config.EnvDefault("LOG_LEVEL", "info"))
	slog.SetDefault(log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logging.IntoContext(ctx, log)

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "check":
		err = runCheck(ctx, args)
	case "migrate":
		err = withDB(ctx, args, nil, func(r *repo.GormRepo, _ string) error {
			return db.Migrate(ctx, r.DB)
		})
	case "create-admin":
		err = runCreateAdmin(ctx, args)
	case "topics":
		err = runTopics(ctx, args)
	case "prune-sessions":
		err = withDB(ctx, args, nil, func(r *repo.GormRepo, _ string) error {
			n, err := r.DeleteStaleSessions(ctx, time.Now().UTC())
			if err == nil {
				log.Info("sessions pruned", "deleted", n)
			}
			return err
		})
	case "reindex":
		err = runReindex(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error(cmd+" failed", "error", err)
		os.Exit(1)
	}
}

// withDB parses the shared -dsn flag (plus any extra ones registered by
// setup) and runs fn against an open database.
func withDB(ctx context.Context, args []string, setup func(fs *flag.FlagSet), fn func(r *repo.GormRepo, dsn string) error) error {
	fs := flag.NewFlagSet("storectl", flag.ContinueOnError)
	dsn := fs.String("dsn", os.Getenv("DATABASE_URL"), "database URL")
	if setup != nil {
		setup(fs)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	gdb, err := db.Open(ctx, *dsn)
	if err != nil {
		return err
	}
	defer db.Close(gdb)
	return fn(repo.New(gdb), *dsn)
}

func runCheck(ctx context.Context, args []string) error {
	log := logging.FromContext(ctx)
	return withDB(ctx, args, nil, func(r *repo.GormRepo, raw string) error {
		dialect, dsn := db.Dialect(raw)
		if dialect == db.DialectPostgres {
			if err := checkPostgres(ctx, dsn); err != nil {
				return err
			}
		}
		if missing := db.MissingTables(ctx, r.DB); len(missing) > 0 {
			return fmt.Errorf("missing tables: %s (run storectl migrate)", strings.Join(missing, ", "))
		}
		log.Info("schema ok")
		return nil
	})
}

// checkPostgres talks to the server through database/sql directly so a
// failure points at the connection rather than the ORM.
func checkPostgres(ctx context.Context, dsn string) error {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer conn.Close()

	var dbName, version string
	if err := conn.QueryRowContext(ctx, "SELECT current_database(), version()").Scan(&dbName, &version); err != nil {
		return fmt.Errorf("query postgres: %w", err)
	}
	logging.FromContext(ctx).Info("postgres reachable", "database", dbName, "version", version)
	return nil
}

func runCreateAdmin(ctx context.Context, args []string) error {
	var email, password string
	return withDB(ctx, args, func(fs *flag.FlagSet) {
		fs.StringVar(&email, "email", os.Getenv("ADMIN_EMAIL"), "admin email")
		fs.StringVar(&password, "password", os.Getenv("ADMIN_PASSWORD"), "admin password")
	}, func(r *repo.GormRepo, _ string) error {
		authSvc := &service.AuthService{Repo: r, Events: events.Nop{}}
		created, err := authSvc.EnsureAdmin(ctx, email, password)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("admin %s created\n", email)
		} else {
			fmt.Printf("admin %s updated\n", email)
		}
		return nil
	})
}

func runTopics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("topics", flag.ContinueOnError)
	brokers := fs.String("brokers", os.Getenv("KAFKA_BROKERS"), "comma separated broker list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list := config.CSV(*brokers)
	if len(list) == 0 {
		return fmt.Errorf("no brokers configured (KAFKA_BROKERS or -brokers)")
	}
	if err := events.EnsureTopics(ctx, list[0], events.Topics...); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("topics ready", "topics", events.Topics)
	return nil
}

func runReindex(ctx context.Context, args []string) error {
	opts := search.Options{User: os.Getenv("ES_USER"), Password: os.Getenv("ES_PASSWORD")}
	return withDB(ctx, args, func(fs *flag.FlagSet) {
		fs.StringVar(&opts.URL, "es-url", os.Getenv("ES_URL"), "elasticsearch URL")
		fs.StringVar(&opts.Index, "es-index", config.EnvDefault("ES_INDEX", "products"), "index name")
	}, func(r *repo.GormRepo, _ string) error {
		if opts.URL == "" {
			return fmt.Errorf("no search cluster configured (ES_URL or -es-url)")
		}
		es, err := search.NewClient(ctx, opts)
		if err != nil {
			return err
		}
		if _, err := es.EnsureIndex(ctx); err != nil {
			return err
		}
		admin := &service.AdminService{Repo: r, Events: events.Nop{}, Search: es}
		n, err := admin.ReindexAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d products indexed into %s\n", n, opts.Index)
		return nil
	})
}
