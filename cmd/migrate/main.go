// Command migrate manages the connector schema.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/erp/connector/internal/infrastructure/config"
	"github.com/erp/connector/internal/infrastructure/logger"
	"github.com/erp/connector/internal/infrastructure/migration"
	"github.com/erp/connector/migrations"
)

const usage = `Connector schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands that need the database:
  up                    apply every pending migration
  down                  roll back every migration
  step <n>              apply n migrations, rolling back when n is negative
  goto <version>        migrate up or down to version
  version               print the applied version
  force <version>       mark version applied after repairing a failed run

Commands on the migration files only:
  create <name> [desc]  write the next up/down pair into -path (default ./migrations)
  list                  print the available migrations
  validate              check versions and up/down pairing

Flags:
`

var errUsage = errors.New("usage")

type options struct {
	dir  string
	args []string
	log  *zap.Logger
}

// source is -path when given, the embedded set otherwise
func (o options) source() fs.FS {
	if o.dir != "" {
		return os.DirFS(o.dir)
	}
	return migrations.FS
}

func (o options) arg(i int, what string) (string, error) {
	if len(o.args) <= i {
		return "", fmt.Errorf("%w: %s required", errUsage, what)
	}
	return o.args[i], nil
}

type fileCommand func(options) error

type dbCommand func(options, *migration.Migrator) error

var fileCommands = map[string]fileCommand{
	"create":   create,
	"list":     list,
	"validate": validate,
}

var dbCommands = map[string]dbCommand{
	"up":   func(_ options, m *migration.Migrator) error { return m.Up() },
	"down": func(_ options, m *migration.Migrator) error { return m.Down() },
	"step": func(o options, m *migration.Migrator) error {
		raw, err := o.arg(1, "step count")
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: invalid step count %q", errUsage, raw)
		}
		return m.Steps(n)
	},
	"goto": func(o options, m *migration.Migrator) error {
		raw, err := o.arg(1, "version")
		if err != nil {
			return err
		}
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: invalid version %q", errUsage, raw)
		}
		return m.GoTo(uint(v))
	},
	"force": func(o options, m *migration.Migrator) error {
		raw, err := o.arg(1, "version")
		if err != nil {
			return err
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: invalid version %q", errUsage, raw)
		}
		return m.Force(v)
	},
	"version": func(o options, m *migration.Migrator) error {
		st, err := m.Status()
		if err != nil {
			return err
		}
		if st.Version == 0 {
			o.log.Info("No migrations applied")
			return nil
		}
		o.log.Info("Schema version", zap.Uint("version", st.Version), zap.Bool("dirty", st.Dirty))
		return nil
	},
}

func main() {
	flags := flag.NewFlagSet("migrate", flag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprint(flags.Output(), usage)
		flags.PrintDefaults()
	}
	dir := flags.String("path", "", "migrations directory; the set built into the binary when empty")
	level := flags.String("log-level", "info", "debug, info, warn or error")
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() == 0 {
		flags.Usage()
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{Level: *level, Format: "console", Output: "stdout", TimeFormat: "15:04:05"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	opts := options{dir: *dir, args: flags.Args(), log: log}
	if err := run(opts); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			flags.Usage()
			os.Exit(2)
		}
		log.Fatal("Migration command failed", zap.String("command", opts.args[0]), zap.Error(err))
	}
}

func run(o options) error {
	name := o.args[0]
	if cmd, ok := fileCommands[name]; ok {
		return cmd(o)
	}
	cmd, ok := dbCommands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, o.source(), o.log)
	if err != nil {
		return err
	}
	defer m.Close()
	return cmd(o, m)
}

func create(o options) error {
	name, err := o.arg(1, "migration name")
	if err != nil {
		return err
	}
	var description string
	if len(o.args) > 2 {
		description = o.args[2]
	}
	dir := o.dir
	if dir == "" {
		dir = "migrations"
	}
	mf, err := migration.CreateMigration(dir, name, description)
	if err != nil {
		return err
	}
	o.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up", mf.UpPath),
		zap.String("down", mf.DownPath),
	)
	return nil
}

func list(o options) error {
	names, err := migration.ListMigrations(o.source())
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func validate(o options) error {
	src := o.source()
	if err := migration.Validate(src); err != nil {
		return err
	}
	names, err := migration.ListMigrations(src)
	if err != nil {
		return err
	}
	o.log.Info("Migrations are valid", zap.Int("count", len(names)))
	return nil
}
