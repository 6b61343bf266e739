package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/LivingInDrm/sudanlike/internal/content"
	"github.com/LivingInDrm/sudanlike/internal/game"
	"github.com/LivingInDrm/sudanlike/internal/savestore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type simulateOptions struct {
	days       int
	seed       uint64
	difficulty string
	contentDir string
	saveID     string
	noSave     bool
}

func newSimulateCmd(a *app) *cobra.Command {
	var opts simulateOptions
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a game automatically and save the final state",
		Long: "simulate starts a new game, deals the starting hand and plays day after day, " +
			"investing idle cards into every available scene, until the game ends or --days run out.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				opts.seed = a.cfg.Game.Seed
			}
			if opts.difficulty == "" {
				opts.difficulty = a.cfg.Game.Difficulty
			}
			if opts.contentDir == "" {
				opts.contentDir = a.cfg.Game.ContentDir
			}
			return runSimulate(cmd.Context(), a, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.days, "days", 30, "maximum number of days to play")
	f.Uint64Var(&opts.seed, "seed", 0, "random seed; 0 picks a fresh one")
	f.StringVar(&opts.difficulty, "difficulty", "", "easy, normal, hard or nightmare")
	f.StringVar(&opts.contentDir, "content", "", "directory of card and scene YAML files")
	f.StringVar(&opts.saveID, "save-id", "", "id for the final save; generated when empty")
	f.BoolVar(&opts.noSave, "no-save", false, "do not persist the final state")
	return cmd
}

func runSimulate(ctx context.Context, a *app, opts simulateOptions, out io.Writer) error {
	logger := a.logger

	difficulty, err := game.ParseDifficulty(opts.difficulty)
	if err != nil {
		return err
	}
	catalog, err := content.LoadDir(opts.contentDir)
	if err != nil {
		return err
	}
	cards, scenes := catalog.Len()
	logger.Info("content loaded",
		zap.String("dir", opts.contentDir),
		zap.Int("cards", cards),
		zap.Int("scenes", scenes),
	)

	session := game.NewSession(game.Options{
		Logger: logger,
		Cards:  catalog,
		Scenes: catalog.Scenes(),
	})
	if opts.seed != 0 {
		err = session.StartNewGameWithSeed(difficulty, opts.seed)
	} else {
		err = session.StartNewGame(difficulty)
	}
	if err != nil {
		return err
	}

	protagonist := a.cfg.Game.Protagonist
	if _, err := session.DealStartingHand(protagonist, startingPool(catalog, protagonist)); err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(out, "Game %s on %s, seed %d\n", session.ID(), difficulty, session.Seed())

	for i := 0; i < opts.days; i++ {
		joined, err := investIdleCards(session)
		if err != nil {
			return err
		}
		report, err := session.NextDay()
		if err != nil {
			return err
		}
		printReport(p, out, report, joined)
		if _, over := session.Ending(); over {
			break
		}
	}

	printSummary(p, out, session)

	if opts.noSave {
		return nil
	}
	snap, err := session.CreateSaveData(opts.saveID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Storage.Timeout)
	defer cancel()
	store, err := savestore.Open(ctx, a.cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Save(ctx, snap); err != nil {
		return err
	}
	p.Fprintf(out, "Saved as %s (%s)\n", snap.SaveID, a.cfg.Storage.Driver)
	return nil
}

// startingPool lists every template that may be dealt at the start: the
// sultan card and the protagonist are never in it.
func startingPool(catalog *content.Catalog, protagonist string) []string {
	var pool []string
	for _, id := range catalog.CardIDs() {
		tpl, _ := catalog.CardTemplate(id)
		if tpl.Type == card.TypeSultan || id == protagonist {
			continue
		}
		pool = append(pool, id)
	}
	return pool
}

// investIdleCards fills the slots of every available scene, in id order,
// with unlocked cards and joins each scene whose required slots are
// filled. The protagonist stays out of play.
func investIdleCards(session *game.Session) ([]string, error) {
	cards := session.Cards()
	scenes := session.Scenes()

	var joined []string
	for _, st := range scenes.AvailableScenes() {
		var placed []int
		for _, slot := range st.SlotStates {
			if slot.Filled() || slot.Locked {
				continue
			}
			for _, inst := range cards.Available() {
				if slices.Contains(inst.CurrentTags, card.ProtagonistTag) {
					continue
				}
				if !scenes.CanPlace(st.SceneID, slot.Index, inst) {
					continue
				}
				ok, err := scenes.PlaceCard(st.SceneID, slot.Index, inst.InstanceID, cards)
				if err != nil {
					return joined, err
				}
				if ok {
					placed = append(placed, slot.Index)
					break
				}
			}
		}
		if scenes.Participate(st.SceneID, cards) {
			joined = append(joined, st.SceneID)
			continue
		}
		for _, idx := range placed {
			scenes.ClearSlot(st.SceneID, idx)
		}
	}
	return joined, nil
}

func printReport(p *message.Printer, out io.Writer, report game.DayReport, joined []string) {
	p.Fprintf(out, "Day %d\n", report.Day)
	for _, id := range joined {
		p.Fprintf(out, "  joined   %s\n", id)
	}
	for _, res := range report.Settled {
		line := string(res.Kind)
		if res.Check != nil {
			line = fmt.Sprintf("%s %s (%d/%d)", line, res.CheckResult, res.Check.SuccessCount, res.Check.Target)
		}
		p.Fprintf(out, "  settled  %s: %s, gold %+d, reputation %+d\n",
			res.SceneID, line, res.EffectsApplied.Gold, res.EffectsApplied.Reputation)
	}
	for _, id := range report.Absent {
		p.Fprintf(out, "  absent   %s\n", id)
	}
}

func printSummary(p *message.Printer, out io.Writer, session *game.Session) {
	ledger := session.Ledger()
	clock := session.Clock()
	p.Fprintf(out, "Day %d, %d days to execution\n", clock.Day(), clock.Countdown())
	p.Fprintf(out, "Gold %d, reputation %d (%s), golden dice %d, rewinds %d\n",
		ledger.Gold(), ledger.Reputation(), ledger.ReputationLevel(), ledger.GoldenDice(), ledger.RewindCharges())
	p.Fprintf(out, "Hand: %d cards, %d scenes completed\n",
		session.Cards().Count(), len(session.Scenes().CompletedSceneIDs()))
	if ending, over := session.Ending(); over {
		p.Fprintf(out, "Ending: %s. %s\n", ending.Type, ending.Message)
	}
}
