package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/migration"
	"github.com/storefront/backend/migrations"
	"go.uber.org/zap"
)

const sourceTreeDir = "migrations"

// cliOptions are the parsed command line flags
type cliOptions struct {
	path     string
	logLevel string
	confirm  bool
}

// command is one migrate subcommand. Commands with needsDB set receive an
// open migrator; the others only read or write migration files.
type command struct {
	usage   string
	summary string
	needsDB bool
	run     func(env *cliEnv, args []string) error
}

// cliEnv carries what a command may need
type cliEnv struct {
	opts     cliOptions
	log      *zap.Logger
	out      io.Writer
	source   fs.FS
	dir      string
	migrator *migration.Migrator
}

var commands = map[string]command{
	"up": {
		usage: "up", summary: "Apply every pending storefront migration", needsDB: true,
		run: func(env *cliEnv, _ []string) error { return env.migrator.Up() },
	},
	"down": {
		usage: "down", summary: "Roll back every migration (requires -confirm)", needsDB: true,
		run: func(env *cliEnv, _ []string) error {
			if !env.opts.confirm {
				return errors.New("down removes the whole storefront schema; rerun with -confirm")
			}
			return env.migrator.Down()
		},
	},
	"step": {
		usage: "step <n>", summary: "Apply n migrations, negative n rolls back", needsDB: true,
		run: func(env *cliEnv, args []string) error {
			n, err := intArg(args, "step count")
			if err != nil {
				return err
			}
			return env.migrator.Steps(n)
		},
	},
	"goto": {
		usage: "goto <version>", summary: "Migrate up or down to a version", needsDB: true,
		run: func(env *cliEnv, args []string) error {
			v, err := intArg(args, "version")
			if err != nil {
				return err
			}
			if v < 0 {
				return fmt.Errorf("version must not be negative, got %d", v)
			}
			return env.migrator.GoTo(uint(v))
		},
	},
	"force": {
		usage: "force <version>", summary: "Mark a version as applied after a failed run", needsDB: true,
		run: func(env *cliEnv, args []string) error {
			v, err := intArg(args, "version")
			if err != nil {
				return err
			}
			env.log.Warn("Forcing schema version without running migrations", zap.Int("version", v))
			return env.migrator.Force(v)
		},
	},
	"drop": {
		usage: "drop", summary: "Drop every table, carts and orders included (requires -confirm)", needsDB: true,
		run: func(env *cliEnv, _ []string) error {
			if !env.opts.confirm {
				return errors.New("drop deletes all storefront data; rerun with -confirm")
			}
			return env.migrator.Drop()
		},
	},
	"version": {
		usage: "version", summary: "Print the applied schema version", needsDB: true,
		run: func(env *cliEnv, _ []string) error {
			version, dirty, err := env.migrator.Version()
			if err != nil {
				return err
			}
			if version == 0 {
				fmt.Fprintln(env.out, "no migrations applied")
				return nil
			}
			fmt.Fprintf(env.out, "version %d%s\n", version, dirtySuffix(dirty))
			return nil
		},
	},
	"status": {
		usage: "status", summary: "List migrations as applied or pending", needsDB: true,
		run: func(env *cliEnv, _ []string) error {
			names, err := migrationNames(env.source)
			if err != nil {
				return err
			}
			version, dirty, err := env.migrator.Version()
			if err != nil {
				return err
			}
			writeStatus(env.out, names, version, dirty)
			return nil
		},
	},
	"list": {
		usage: "list", summary: "List available migrations without connecting",
		run: func(env *cliEnv, _ []string) error {
			names, err := migrationNames(env.source)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(env.out, name)
			}
			return nil
		},
	},
	"create": {
		usage: "create <name> [desc]", summary: "Write a new up/down pair into the source tree",
		run: func(env *cliEnv, args []string) error {
			if len(args) == 0 {
				return errors.New("migration name required")
			}
			description := strings.Join(args[1:], " ")
			mf, err := migration.CreateMigration(env.dir, args[0], description)
			if err != nil {
				return err
			}
			env.log.Info("Migration created",
				zap.String("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	},
}

func main() {
	var opts cliOptions
	flag.StringVar(&opts.path, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.confirm, "confirm", false, "Allow destructive commands (down, drop)")
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage(os.Stderr)
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		printUsage(os.Stderr)
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      opts.logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cmd, args[0], args[1:], opts, log); err != nil {
		log.Error("Migration command failed", zap.String("command", args[0]), zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}

func run(cmd command, name string, args []string, opts cliOptions, log *zap.Logger) error {
	env := &cliEnv{opts: opts, log: log, out: os.Stdout}

	// create always writes to the source tree; the rest read the embedded
	// set unless -path is given
	env.dir = opts.path
	if env.dir == "" {
		env.dir = sourceTreeDir
	}
	dir, err := filepath.Abs(env.dir)
	if err != nil {
		return fmt.Errorf("resolve migrations path: %w", err)
	}
	env.dir = dir
	env.source = migrations.FS
	if opts.path != "" {
		env.source = os.DirFS(dir)
	}

	log.Info("Storefront migrate started",
		zap.String("command", name),
		zap.Bool("embedded", opts.path == ""),
		zap.String("path", env.dir),
	)

	if !cmd.needsDB {
		return cmd.run(env, args)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database %s: %w", cfg.Database.Host, err)
	}

	var migratorOpts []migration.Option
	if opts.path != "" {
		migratorOpts = append(migratorOpts, migration.WithPath(env.dir))
	}
	env.migrator, err = migration.New(db, log, migratorOpts...)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer env.migrator.Close()

	return cmd.run(env, args)
}

func intArg(args []string, what string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s required", what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}

// migrationNames returns the migration base names found in fsys, oldest first
func migrationNames(fsys fs.FS) ([]string, error) {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ups))
	for _, up := range ups {
		names = append(names, strings.TrimSuffix(up, ".up.sql"))
	}
	sort.Strings(names)
	return names, nil
}

// migrationVersion parses the numeric prefix of a migration name
func migrationVersion(name string) (uint, bool) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(prefix, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}

func writeStatus(w io.Writer, names []string, applied uint, dirty bool) {
	for _, name := range names {
		state := "pending"
		if v, ok := migrationVersion(name); ok && v <= applied {
			state = "applied"
			if v == applied && dirty {
				state = "dirty"
			}
		}
		fmt.Fprintf(w, "%-8s %s\n", state, name)
	}
}

func dirtySuffix(dirty bool) string {
	if dirty {
		return " (dirty, fix the schema then run force)"
	}
	return ""
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Storefront schema migrations (carts, catalog, coupons, orders)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  migrate [flags] <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-22s %s\n", commands[name].usage, commands[name].summary)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	flag.CommandLine.SetOutput(w)
	flag.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Database settings come from the STORE_DATABASE_* environment variables.")
}
