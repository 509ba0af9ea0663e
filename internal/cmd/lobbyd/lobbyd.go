// Package lobbyd parses lobby daemon flags and launches the lobby runtime.
package lobbyd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/veylan/guildpost/internal/lobby/app"
	"github.com/veylan/guildpost/internal/lobby/render"
	"github.com/veylan/guildpost/internal/lobby/storage/sqlite"
	"github.com/veylan/guildpost/internal/lobby/timer"
	entrypoint "github.com/veylan/guildpost/internal/platform/cmd"
)

// Config holds lobby daemon configuration.
type Config struct {
	DBPath       string        `env:"GUILDPOST_DB_PATH" envDefault:"data/guildpost.db"`
	ReminderLead time.Duration `env:"GUILDPOST_REMINDER_LEAD" envDefault:"10m"`
	ExpiryGrace  time.Duration `env:"GUILDPOST_EXPIRY_GRACE" envDefault:"10m"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The lobby SQLite database path")
	fs.DurationVar(&cfg.ReminderLead, "reminder-lead", cfg.ReminderLead, "How long before the scheduled time the reminder fires")
	fs.DurationVar(&cfg.ExpiryGrace, "expiry-grace", cfg.ExpiryGrace, "How long after the scheduled time the lobby expires")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the lobby runtime and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceLobby, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("close store: %v", err)
			}
		}()

		service, err := app.New(store, logPresenter{}, app.Options{
			Timing: timer.Config{
				ReminderLead: cfg.ReminderLead,
				ExpiryGrace:  cfg.ExpiryGrace,
			},
		})
		if err != nil {
			return fmt.Errorf("build lobby service: %w", err)
		}

		recovered, err := service.Recover(ctx)
		if err != nil {
			return fmt.Errorf("recover lobbies: %w", err)
		}
		log.Printf("recovered %d lobbies", recovered)

		<-ctx.Done()
		service.Shutdown()
		return nil
	})
}

// logPresenter writes views and notices to the process log. It is the
// daemon's surface until a chat frontend registers its own presenter.
type logPresenter struct{}

func (logPresenter) Render(_ context.Context, view render.View) error {
	log.Printf("lobby %s: %s (%d/%d slots filled)", view.LobbyID, view.Title, filledSlots(view), len(view.Roster))
	return nil
}

func (logPresenter) Notify(_ context.Context, ownerIDs []string, notice render.Notice) error {
	log.Printf("lobby %s: notify %s: %s", notice.LobbyID, strings.Join(ownerIDs, ","), notice.Type)
	return nil
}

func filledSlots(view render.View) int {
	filled := 0
	for _, slot := range view.Roster {
		if slot.Filled {
			filled++
		}
	}
	return filled
}
