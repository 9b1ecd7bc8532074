// Command seed loads a YAML file of teams and player lots into the
// configured store. Run once before a tournament phase.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/openleague/draftauction/internal/clock"
	"github.com/openleague/draftauction/internal/config"
	"github.com/openleague/draftauction/internal/store"

	_ "github.com/openleague/draftauction/internal/store/memory"
	_ "github.com/openleague/draftauction/internal/store/postgres"
)

type seedFile struct {
	Teams []struct {
		Name    string `yaml:"name"`
		Balance int64  `yaml:"balance"`
	} `yaml:"teams"`
	Lots []struct {
		Name   string `yaml:"name"`
		Tier   string `yaml:"tier"`
		Rating int    `yaml:"rating"`
		MinBid int64  `yaml:"min_bid"`
	} `yaml:"lots"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	seedPath := flag.String("seed", "seed.yaml", "path to seed file")
	flag.Parse()

	if err := run(*configPath, *seedPath); err != nil {
		slog.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath, seedPath string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	data, err := os.ReadFile(filepath.Clean(seedPath))
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parsing seed file: %w", err)
	}

	repos, err := store.Open(ctx, cfg.Database, clock.Real{})
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	for _, t := range seed.Teams {
		team := &store.Team{Name: t.Name, Balance: t.Balance}
		if err := repos.Teams.Create(ctx, team); err != nil {
			return fmt.Errorf("seeding team %q: %w", t.Name, err)
		}
		slog.Info("team seeded", slog.String("id", team.ID), slog.String("name", t.Name))
	}

	for _, l := range seed.Lots {
		lot := &store.Lot{Name: l.Name, Tier: l.Tier, Rating: l.Rating, MinBid: l.MinBid}
		if err := repos.Lots.Create(ctx, lot); err != nil {
			return fmt.Errorf("seeding lot %q: %w", l.Name, err)
		}
		slog.Info("lot seeded", slog.String("id", lot.ID), slog.String("name", l.Name))
	}

	slog.Info("seeding complete",
		slog.Int("teams", len(seed.Teams)),
		slog.Int("lots", len(seed.Lots)),
	)
	return nil
}
