package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/testrig/packages/db"
)

var tailFromStart bool

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow steps as they are written to the results database",
	Long: `Watch the results database and print each step as soon as it is
persisted. Useful next to a running test suite.

Examples:
  testrig tail
  testrig tail --from-start`,
	RunE: tailCommand,
}

func init() {
	tailCmd.Flags().BoolVar(&tailFromStart, "from-start", false, "Print existing steps before following")
}

func tailCommand(cmd *cobra.Command, args []string) error {
	d, _, err := openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := cmd.Context()

	var lastID int64
	if !tailFromStart {
		if lastID, err = d.MaxStepRowID(ctx); err != nil {
			return err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	// SQLite writes land in the journal or WAL next to the database file,
	// so watch the containing directory rather than the file itself.
	if err := watcher.Add(filepath.Dir(d.Path())); err != nil {
		return fmt.Errorf("watching database directory: %w", err)
	}

	// Bursts of inserts produce bursts of filesystem events; the limiter
	// caps how often the database is re-queried.
	limiter := rate.NewLimiter(rate.Every(200*time.Millisecond), 1)

	// Fallback poll for writers on filesystems where events are unreliable.
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	if lastID, err = printNewSteps(ctx, cmd, d, lastID); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching database: %w", err)
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
		case <-ticker.C:
		}

		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if lastID, err = printNewSteps(ctx, cmd, d, lastID); err != nil {
			return err
		}
	}
}

func printNewSteps(ctx context.Context, cmd *cobra.Command, d *db.DB, afterID int64) (int64, error) {
	steps, err := d.StepsAfter(ctx, afterID)
	if err != nil {
		return afterID, err
	}
	for _, s := range steps {
		indent := strings.Repeat("  ", s.IndentLevel)
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s%s\n", s.HierarchicalNumber, indent, s.Content)
		if s.ID > afterID {
			afterID = s.ID
		}
	}
	return afterID, nil
}
