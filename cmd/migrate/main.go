package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	envPostgresDSN = "CHECKOUT_POSTGRES_DSN"
	statusCommand  = "status"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Getenv, os.Stdout); err != nil {
		fail("%v", err)
	}
}

// run разбирает флаги и выполняет up, down или status.
func run(ctx context.Context, args []string, getenv func(string) string, out io.Writer) error {
	flags := flag.NewFlagSet("migrate", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var (
		direction string
		steps     int
		dsn       string
	)
	flags.StringVar(&direction, "direction", "up", "migration direction: up|down|status")
	flags.IntVar(&steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	flags.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")
	if err := flags.Parse(args); err != nil {
		return err
	}

	direction = strings.ToLower(strings.TrimSpace(direction))
	var dir postgres.Direction
	if direction != statusCommand {
		parsed, err := postgres.ParseDirection(direction)
		if err != nil {
			return fmt.Errorf("%w (use up|down|status)", err)
		}
		dir = parsed
	}
	if steps < 0 {
		return errors.New("steps must not be negative")
	}

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(getenv(envPostgresDSN))
	}
	if dsn == "" {
		return fmt.Errorf("%s (or -dsn) is required", envPostgresDSN)
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open postgres store: %w", err)
	}
	defer store.Close()

	label := statusCommand
	if direction != statusCommand {
		apply := store.MigrateUp
		if dir == postgres.DirectionDown {
			apply = store.MigrateDown
		}
		if err := apply(ctx, steps); err != nil {
			return fmt.Errorf("migrate %s failed: %w", dir, err)
		}
		label = "migrate " + string(dir) + " ok"
	}

	state, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	_, _ = fmt.Fprintf(out, "%s: version=%d applied=%d pending=%d\n", label, state.Version, state.Applied, state.Pending)
	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
