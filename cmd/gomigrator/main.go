package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	cfg "migrator/internal/config"
	"migrator/internal/logging"
	pub "migrator/pkg/migrator"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	cfgFile string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1) //nolint:gocritic
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gomigrator",
		Short:         "Database migration tool for PostgreSQL, SQLite and MySQL (SQL & Go)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	addCommonFlags(flags)
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config YAML")

	root.AddCommand(
		cmdCreate(flags),
		cmdUp(flags),
		cmdDown(flags),
		cmdRedo(flags),
		cmdStatus(flags),
		cmdExecuted(flags),
		cmdPending(flags),
		cmdDBVersion(flags),
	)
	return root
}

func addCommonFlags(fs *pflag.FlagSet) {
	fs.String("dsn", "", "Database DSN")
	fs.String("driver", "postgres", "Log storage driver: postgres|sqlite|mysql|file")
	fs.String("path", "./migrations", "Path to migrations directory")
	fs.String("kind", "sql", "Migration kind: sql|go")
	fs.Int64("lock_key", 7243392, "Advisory lock key")
	fs.String("schema_table", "schema_migrations", "Schema table name")
	fs.String("log_file", "", "Executed log file for the file driver")
	fs.String("down_default", "last", "What down reverts without arguments: last|all")
	fs.String("log_level", "info", "Log level: debug|info|warn|error")
}

func loadConfig(flags *pflag.FlagSet) (cfg.Config, []pub.Option, error) {
	c, err := cfg.Load(flags, cfgFile)
	if err != nil {
		return cfg.Config{}, nil, err
	}
	logger, _, err := logging.NewStderr(c.LogLevel)
	if err != nil {
		return cfg.Config{}, nil, err
	}
	slog.SetDefault(logger)
	return c, []pub.Option{pub.WithLogger(logger)}, nil
}

func cmdCreate(flags *pflag.FlagSet) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new migration template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.Load(flags, cfgFile)
			if err != nil && !errors.Is(err, cfg.ErrDSNRequired) {
				return err
			}
			if err != nil {
				// create only writes files, no connection needed
				c = cfg.Default()
				c.Path, _ = flags.GetString("path")
				c.Kind, _ = flags.GetString("kind")
			}
			name := args[0]
			var path string
			if c.Kind == "go" {
				path, err = createGoTemplate(c.Path, name)
			} else {
				path, err = createSQLTemplate(c.Path, name)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}
}

func cmdUp(flags *pflag.FlagSet) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "up [name...]",
		Short: "Apply pending migrations: all, the named ones, or up to --to",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, opts, err := loadConfig(flags)
			if err != nil {
				return err
			}
			sel, err := pub.SelectionFromArgs(args, to)
			if err != nil {
				return err
			}
			migrated, err := pub.RunUp(cmd.Context(), c, sel, opts...)
			printNames(cmd, "Applied", migrated)
			return err
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Apply pending migrations up to and including this one")
	return cmd
}

func cmdDown(flags *pflag.FlagSet) *cobra.Command {
	var (
		to  string
		all bool
	)
	cmd := &cobra.Command{
		Use:   "down [name...]",
		Short: "Rollback the last migration, the named ones, everything down to --to, or --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, opts, err := loadConfig(flags)
			if err != nil {
				return err
			}
			sel, err := pub.SelectionFromArgs(args, to)
			if err != nil {
				return err
			}
			if all {
				if len(args) > 0 || to != "" {
					return fmt.Errorf("--all cannot be combined with migration names or --to")
				}
				sel = pub.AllMigrations()
			}
			reverted, err := pub.RunDown(cmd.Context(), c, sel, opts...)
			printNames(cmd, "Reverted", reverted)
			return err
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Rollback executed migrations down to and including this one")
	cmd.Flags().BoolVar(&all, "all", false, "Rollback every executed migration")
	return cmd
}

func cmdRedo(flags *pflag.FlagSet) *cobra.Command {
	return &cobra.Command{Use: "redo", Short: "Redo the last migration (down+up)", RunE: func(cmd *cobra.Command, _ []string) error {
		c, opts, err := loadConfig(flags)
		if err != nil {
			return err
		}
		redone, err := pub.RunRedo(cmd.Context(), c, opts...)
		printNames(cmd, "Redone", redone)
		return err
	}}
}

func cmdStatus(flags *pflag.FlagSet) *cobra.Command {
	return &cobra.Command{Use: "status", Short: "Show migration status table", RunE: func(cmd *cobra.Command, _ []string) error {
		c, opts, err := loadConfig(flags)
		if err != nil {
			return err
		}
		rows, err := pub.Status(cmd.Context(), c, opts...)
		if err != nil {
			return err
		}
		checksums := sqlChecksums(c)
		data := make([][]string, 0, len(rows))
		for _, r := range rows {
			data = append(data, []string{strings.ToUpper(string(r.State)), r.Name, checksums[r.Name]})
		}
		if err := renderTable([]string{"Status", "Name", "Checksum"}, data, cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("failed rendering status table: %w", err)
		}
		return nil
	}}
}

func cmdExecuted(flags *pflag.FlagSet) *cobra.Command {
	return &cobra.Command{Use: "executed", Short: "List applied migrations", RunE: func(cmd *cobra.Command, _ []string) error {
		c, opts, err := loadConfig(flags)
		if err != nil {
			return err
		}
		executed, err := pub.Executed(cmd.Context(), c, opts...)
		if err != nil {
			return err
		}
		printNames(cmd, "", executed)
		return nil
	}}
}

func cmdPending(flags *pflag.FlagSet) *cobra.Command {
	return &cobra.Command{Use: "pending", Short: "List migrations not applied yet", RunE: func(cmd *cobra.Command, _ []string) error {
		c, opts, err := loadConfig(flags)
		if err != nil {
			return err
		}
		pending, err := pub.Pending(cmd.Context(), c, opts...)
		if err != nil {
			return err
		}
		printNames(cmd, "", pending)
		return nil
	}}
}

func cmdDBVersion(flags *pflag.FlagSet) *cobra.Command {
	return &cobra.Command{Use: "dbversion", Short: "Print the last applied migration", RunE: func(cmd *cobra.Command, _ []string) error {
		c, opts, err := loadConfig(flags)
		if err != nil {
			return err
		}
		v, err := pub.DBVersion(cmd.Context(), c, opts...)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	}}
}

func printNames(cmd *cobra.Command, verb string, migrations []pub.Migration) {
	w := cmd.OutOrStdout()
	for _, name := range pub.Names(migrations) {
		if verb == "" {
			fmt.Fprintln(w, name)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", verb, name)
	}
}

// createSQLTemplate создаёт файл SQL‑миграции с разделителями Up/Down.
func createSQLTemplate(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ts := time.Now().UnixMilli()
	file := fmt.Sprintf("%d_%s.sql", ts, sanitizeName(name))
	full := fmt.Sprintf("%s%c%s", dir, os.PathSeparator, file)
	content := "-- +migrate Up\n\n\n-- +migrate Down\n"
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return "", err
	}
	return full, nil
}

func sanitizeName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			out = append(out, r)
		} else if r == ' ' || r == '.' || r == '/' || r == '\\' {
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "migration"
	}
	return string(out)
}

// createGoTemplate создаёт шаблон Go‑миграции и регистрирует функции.
func createGoTemplate(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ts := time.Now().UnixMilli()
	id := fmt.Sprintf("%d_%s", ts, sanitizeName(name))
	full := fmt.Sprintf("%s%c%s.go", dir, os.PathSeparator, id)
	ident := strings.ReplaceAll(id, "-", "_")
	content := fmt.Sprintf(`package migrations

import (
	"context"
	"errors"

	lib "migrator/pkg/migrator"
)

func init() {
	// Зарегистрировать Go‑миграцию %[1]s
	_ = lib.Register("%[1]s", up_%[2]s, down_%[2]s)
}

func up_%[2]s(ctx context.Context, mctx any) error {
	db := mctx.(lib.Execer)
	// напишите здесь логику применения (up) миграции
	return db.ExecSQL(ctx, "SELECT 1")
}

func down_%[2]s(ctx context.Context, mctx any) error {
	db := mctx.(lib.Execer)
	// напишите здесь логику отката (down) миграции
	return db.ExecSQL(ctx, "SELECT 1")
}
`, id, ident)
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return "", err
	}
	return full, nil
}
