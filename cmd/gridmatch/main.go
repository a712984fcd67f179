// cmd/gridmatch/main.go
//
// This is the entry point for gridmatch. It bootstraps the .gridmatch
// directory, wires the table, referee, feed, and players together, runs the
// TUI until the user quits, then drives the cooperative shutdown: every
// player is terminated and joined before the process exits.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gridmatch/gridmatch/internal/config"
	"github.com/gridmatch/gridmatch/internal/feed"
	"github.com/gridmatch/gridmatch/internal/journal"
	"github.com/gridmatch/gridmatch/internal/logging"
	"github.com/gridmatch/gridmatch/internal/player"
	"github.com/gridmatch/gridmatch/internal/referee"
	"github.com/gridmatch/gridmatch/internal/table"
	"github.com/gridmatch/gridmatch/internal/tui"
	"github.com/gridmatch/gridmatch/plugins"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	if err := config.InitGameDir(cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing .gridmatch directory: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.New(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	if err := run(cfg, logger); err != nil {
		logger.Printf("gridmatch: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	rules := player.Rules{
		SlotCount:     cfg.Match.Grid.SlotCount,
		GroupSize:     cfg.Match.Grid.GroupSize,
		PointFreeze:   cfg.PointFreeze(),
		PenaltyFreeze: cfg.PenaltyFreeze(),
	}

	validate, err := loadValidator(cfg, logger)
	if err != nil {
		return err
	}

	router := feed.NewRouter(feed.RouterWithLogger(logger))
	defer router.Close()

	tab := table.New(rules.SlotCount)
	ref := referee.New(rules, tab, validate,
		referee.WithPublisher(router),
		referee.WithLogger(logger),
	)

	players, human := buildPlayers(cfg, rules, tab, ref, router, logger)
	ref.Register(players...)
	ref.Deal()

	jour, err := journal.New(filepath.Join(cfg.LogsDir(), "match.journal"))
	if err != nil {
		return fmt.Errorf("open match journal: %w", err)
	}
	journalSub := router.Subscribe()
	var journalDone sync.WaitGroup
	journalDone.Add(1)
	go func() {
		defer journalDone.Done()
		recordEvents(jour, journalSub.Events)
	}()

	server, err := startSpectator(cfg, tab, players, logger)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, p := range players {
		wg.Add(1)
		go func(p *player.Player) {
			defer wg.Done()
			p.Run()
		}(p)
	}

	tuiSub := router.Subscribe()
	prog := tea.NewProgram(
		tui.NewApp(players, human, tab, tuiSub.Events),
		tea.WithAltScreen(),
	)
	_, tuiErr := prog.Run()

	// Cooperative shutdown: wake and join every player, then drain the feed.
	for _, p := range players {
		p.Terminate()
	}
	wg.Wait()
	tuiSub.Close()
	journalSub.Close()
	journalDone.Wait()
	jour.Append(journal.LevelInfo, "match ended")

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Printf("gridmatch: spectator shutdown: %v", err)
		}
	}
	return tuiErr
}

func loadValidator(cfg *config.Config, logger *logging.Logger) (referee.ValidatorFunc, error) {
	if cfg.Match.Validator.Source != "plugin" {
		return referee.BuiltinValidator, nil
	}
	dir := cfg.Match.Validator.Path
	if dir == "" {
		dir = cfg.ValidatorsDir()
	}
	v, err := plugins.LoadValidatorDir(dir)
	if err != nil {
		return nil, err
	}
	logger.Printf("gridmatch: using validator plugin %s", v.Path)
	return v.Fn, nil
}

func buildPlayers(cfg *config.Config, rules player.Rules, tab *table.Table, ref *referee.Referee, router *feed.Router, logger *logging.Logger) ([]*player.Player, *player.Player) {
	players := make([]*player.Player, 0, cfg.TotalPlayers())
	var human *player.Player
	id := 0
	for i := 0; i < cfg.Match.Players.Human; i++ {
		p := player.New(id, false, rules, tab, ref, router, player.WithLogger(logger))
		if human == nil {
			human = p
		}
		players = append(players, p)
		id++
	}
	for i := 0; i < cfg.Match.Players.Computer; i++ {
		players = append(players, player.New(id, true, rules, tab, ref, router, player.WithLogger(logger)))
		id++
	}
	return players, human
}

func startSpectator(cfg *config.Config, tab *table.Table, players []*player.Player, logger *logging.Logger) (*feed.Server, error) {
	if !cfg.Match.Spectator.Enabled {
		return nil, nil
	}
	server := feed.NewServer(
		feed.Settings{Enabled: true, Addr: cfg.Match.Spectator.Addr},
		func() feed.Snapshot { return snapshot(tab, players) },
		feed.ServerWithLogger(logger),
	)
	if err := server.Start(); err != nil {
		return nil, fmt.Errorf("start spectator server: %w", err)
	}
	return server, nil
}

func snapshot(tab *table.Table, players []*player.Player) feed.Snapshot {
	statuses := make([]feed.PlayerStatus, 0, len(players))
	for _, p := range players {
		statuses = append(statuses, feed.PlayerStatus{
			ID:        p.ID(),
			Automated: p.Automated(),
			Score:     p.Score(),
			FrozenTo:  p.FreezeDeadline(),
		})
	}
	return feed.Snapshot{
		Players:   statuses,
		Grid:      tab.Snapshot(),
		Admission: tab.AdmissionOpen(),
		Time:      time.Now(),
	}
}

func recordEvents(jour *journal.Journal, events <-chan feed.Event) {
	for event := range events {
		switch event.Type {
		case feed.EventScore:
			jour.Append(journal.LevelInfo, fmt.Sprintf("player %d scored, total %d", event.PlayerID, event.Score))
		case feed.EventPenalty:
			jour.Append(journal.LevelWarn, fmt.Sprintf("player %d penalized", event.PlayerID))
		case feed.EventRedeal:
			jour.Append(journal.LevelInfo, fmt.Sprintf("cards redealt after player %d's match", event.PlayerID))
		}
	}
}
