// Command migrate manages the ledger's postgres schema.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/migration"
	"github.com/erp/ledger/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultCreateDir = "migrations"

func main() {
	var (
		dir      string
		table    string
		logLevel string
	)
	flag.StringVar(&dir, "dir", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&table, "table", migration.DefaultMigrationsTable, "Schema version table")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(logger.Config{
		Level:   logLevel,
		Format:  "console",
		Service: "ledger-migrate",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	// create and list work on files only
	switch command {
	case "create":
		runCreate(log, dir, args[1:])
		return
	case "list":
		runList(log, source(dir))
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.DBName),
			zap.Error(err),
		)
	}

	m, err := migration.New(db, source(dir), migration.Config{MigrationsTable: table}, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("source", sourceName(dir)),
		zap.String("table", table),
	)

	switch command {
	case "up":
		err = m.Up()

	case "down":
		if !confirmed(args[1:]) {
			log.Fatal("Down rolls back every migration. Use 'migrate down -confirm' to proceed.")
		}
		err = m.Down()

	case "step":
		n, perr := intArg(args, "step <n>")
		if perr != nil {
			log.Fatal("Invalid step count", zap.Error(perr))
		}
		err = m.Steps(n)

	case "goto":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate goto <version>")
		}
		version, perr := strconv.ParseUint(args[1], 10, 64)
		if perr != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		err = m.GoTo(uint(version))

	case "version":
		version, dirty, verr := m.Version()
		if verr != nil {
			log.Fatal("Failed to get version", zap.Error(verr))
		}
		if version == 0 {
			log.Info("No migrations applied")
		} else {
			log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}

	case "status":
		st, serr := m.Status()
		if serr != nil {
			log.Fatal("Failed to read status", zap.Error(serr))
		}
		log.Info("Migration status",
			zap.Uint("version", st.Version),
			zap.Bool("dirty", st.Dirty),
			zap.Int("applied", len(st.Applied)),
			zap.Int("pending", len(st.Pending)),
		)
		for _, name := range st.Pending {
			fmt.Println("  pending", name)
		}

	case "force":
		version, perr := intArg(args, "force <version>")
		if perr != nil {
			log.Fatal("Invalid version number", zap.Error(perr))
		}
		err = m.Force(version)

	case "drop":
		if !confirmed(args[1:]) {
			log.Fatal("Drop cancelled. Use 'migrate drop -confirm' to confirm.")
		}
		err = m.Drop()

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}

func source(dir string) migration.Source {
	if dir != "" {
		return migration.Source{Dir: dir}
	}
	return migration.Source{FS: migrations.FS}
}

func sourceName(dir string) string {
	if dir != "" {
		return dir
	}
	return "embedded"
}

func runCreate(log *zap.Logger, dir string, args []string) {
	if len(args) < 1 {
		log.Fatal("Migration name required. Usage: migrate create <name> [description]")
	}
	if dir == "" {
		dir = defaultCreateDir
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}

	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		log.Fatal("Failed to create migration", zap.Error(err))
	}
	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
}

func runList(log *zap.Logger, src migration.Source) {
	fsys := src.FS
	if src.Dir != "" {
		fsys = os.DirFS(src.Dir)
	}
	names, err := migration.ListMigrations(fsys)
	if err != nil {
		log.Fatal("Failed to list migrations", zap.Error(err))
	}
	if len(names) == 0 {
		log.Info("No migrations found")
		return
	}
	log.Info("Available migrations", zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println("  -", name)
	}
}

func intArg(args []string, usage string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("usage: migrate %s", usage)
	}
	return strconv.Atoi(args[1])
}

func confirmed(args []string) bool {
	for _, arg := range args {
		if arg == "-confirm" || arg == "--confirm" {
			return true
		}
	}
	return false
}

func printUsage() {
	fmt.Println(`Ledger schema migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down -confirm         Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  status                Show applied and pending migrations
  force <version>       Set the version without running SQL (clears dirty state)
  drop -confirm         Drop all database objects
  create <name> [desc]  Create a new migration file pair under -dir (default ./migrations)
  list                  List available migrations

Flags:
  -dir string           Read migrations from a directory instead of the embedded set
  -table string         Schema version table (default: ledger_schema_migrations)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  ERP_DATABASE_HOST, ERP_DATABASE_PORT, ERP_DATABASE_USER,
  ERP_DATABASE_PASSWORD, ERP_DATABASE_DBNAME, ERP_DATABASE_SSLMODE

Examples:
  migrate up
  migrate step -1
  migrate create add_payout_index "Speed up the release scan"
  migrate status`)
}
