// Package game composes the engines of one single-player game: the day
// cycle, think charges, save snapshots and rewind.
package game

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/LivingInDrm/sudanlike/internal/dice"
	"github.com/LivingInDrm/sudanlike/internal/effect"
	"github.com/LivingInDrm/sudanlike/internal/events"
	"github.com/LivingInDrm/sudanlike/internal/player"
	"github.com/LivingInDrm/sudanlike/internal/random"
	"github.com/LivingInDrm/sudanlike/internal/scene"
	"github.com/LivingInDrm/sudanlike/internal/settlement"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures a session.
type Options struct {
	Logger *zap.Logger
	Bus    *events.Bus
	// Cards resolves card template ids for cards_add effects and the
	// starting hand. It may be nil.
	Cards effect.TemplateLookup
	// Scenes are registered on every new or loaded game.
	Scenes []scene.Template
	// Now stamps snapshots; defaults to time.Now.
	Now func() time.Time
}

// Session owns every engine of one game. It is not safe for concurrent
// use; a host serving several callers must serialize access.
type Session struct {
	id         string
	opts       Options
	logger     *zap.Logger
	bus        *events.Bus
	difficulty Difficulty
	ended      *Ending

	rng       *random.Source
	ledger    *player.Ledger
	cards     *card.Engine
	equipment *card.EquipmentEngine
	scenes    *scene.Engine
	applier   *effect.Applier
	executor  *settlement.Executor
	clock     *Clock
	thinker   *Thinker
	days      *Orchestrator
}

// NewSession creates an uninitialized session.
func NewSession(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	id := uuid.NewString()
	return &Session{
		id:     id,
		opts:   opts,
		logger: opts.Logger.With(zap.String("session_id", id)),
		bus:    opts.Bus,
	}
}

// StartNewGame starts a game with a fresh random seed.
func (s *Session) StartNewGame(difficulty Difficulty) error {
	seed, err := random.NewSeed()
	if err != nil {
		return err
	}
	return s.StartNewGameWithSeed(difficulty, seed)
}

// StartNewGameWithSeed starts a reproducible game.
func (s *Session) StartNewGameWithSeed(difficulty Difficulty, seed uint64) error {
	settings, ok := difficulty.Settings()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDifficulty, difficulty)
	}
	if err := s.build(difficulty, seed, player.DefaultResources(settings.InitialGold), settings.ExecutionDays); err != nil {
		return err
	}
	s.days.SetPhase(PhaseAction)
	s.RefreshUnlocks()

	s.logger.Info("new game started",
		zap.String("difficulty", string(difficulty)),
		zap.Uint64("seed", seed),
		zap.Int("execution_days", settings.ExecutionDays),
	)
	s.bus.Publish(events.GameStart, map[string]any{"difficulty": string(difficulty), "seed": seed})
	return nil
}

func (s *Session) build(difficulty Difficulty, seed uint64, resources player.Resources, executionDays int) error {
	s.difficulty = difficulty
	s.ended = nil

	s.rng = random.New(seed)
	s.ledger = player.NewLedger(resources, s.bus)
	s.cards = card.NewEngine(s.bus, s.logger)
	s.equipment = card.NewEquipmentEngine(s.cards, s.bus, s.logger)
	s.scenes = scene.NewEngine(s.bus, s.logger)
	if err := s.scenes.RegisterAll(s.opts.Scenes); err != nil {
		return fmt.Errorf("register scenes: %w", err)
	}
	s.applier = effect.NewApplier(s.ledger, s.cards, s.scenes, s.opts.Cards, s.bus, s.logger)
	s.executor = settlement.NewExecutor(s.scenes, s.cards, s.applier, s.rng, s.bus, s.logger)
	s.clock = NewClock(executionDays, s.bus, s.logger)
	s.thinker = NewThinker(s.ledger, s.cards, s.bus)
	s.days = NewOrchestrator(s.clock, s.cards, s.scenes, s.thinker, s.executor, s.bus, s.logger)
	return nil
}

// Initialized reports whether a game has been started or loaded.
func (s *Session) Initialized() bool { return s.rng != nil }

func (s *Session) ID() string                       { return s.id }
func (s *Session) Difficulty() Difficulty           { return s.difficulty }
func (s *Session) Bus() *events.Bus                 { return s.bus }
func (s *Session) Random() *random.Source           { return s.rng }
func (s *Session) Ledger() *player.Ledger           { return s.ledger }
func (s *Session) Cards() *card.Engine              { return s.cards }
func (s *Session) Equipment() *card.EquipmentEngine { return s.equipment }
func (s *Session) Scenes() *scene.Engine            { return s.scenes }
func (s *Session) Effects() *effect.Applier         { return s.applier }
func (s *Session) Settlement() *settlement.Executor { return s.executor }
func (s *Session) Clock() *Clock                    { return s.clock }
func (s *Session) Thinker() *Thinker                { return s.thinker }
func (s *Session) Orchestrator() *Orchestrator      { return s.days }
func (s *Session) Ending() (Ending, bool)           { return deref(s.ended) }
func (s *Session) Templates() effect.TemplateLookup { return s.opts.Cards }
func (s *Session) SceneTemplates() []scene.Template { return s.scenes.Templates() }
func (s *Session) Seed() uint64                     { return s.rng.Seed() }

func deref(e *Ending) (Ending, bool) {
	if e == nil {
		return Ending{}, false
	}
	return *e, true
}

// DealStartingHand adds the protagonist and as many cards drawn from pool
// as the difficulty allows. The protagonist always carries the protagonist
// tag. It returns the new instance ids, protagonist first.
func (s *Session) DealStartingHand(protagonist string, pool []string) ([]string, error) {
	if !s.Initialized() {
		return nil, ErrNotInitialized
	}
	if s.opts.Cards == nil {
		return nil, fmt.Errorf("deal starting hand: no card templates")
	}
	settings, _ := s.difficulty.Settings()

	tpl, ok := s.opts.Cards.CardTemplate(protagonist)
	if !ok {
		return nil, fmt.Errorf("deal starting hand: unknown protagonist %q", protagonist)
	}
	hero, err := s.cards.Add(tpl)
	if err != nil {
		return nil, fmt.Errorf("deal starting hand: %w", err)
	}
	s.cards.AddTag(hero.InstanceID, card.ProtagonistTag)
	dealt := []string{hero.InstanceID}

	for _, id := range random.Shuffle(s.rng, pool) {
		if len(dealt) > settings.InitialCards {
			break
		}
		tpl, ok := s.opts.Cards.CardTemplate(id)
		if !ok {
			s.logger.Warn("starting card template not found", zap.String("card_id", id))
			continue
		}
		inst, err := s.cards.Add(tpl)
		if err != nil {
			return dealt, fmt.Errorf("deal starting hand: %w", err)
		}
		dealt = append(dealt, inst.InstanceID)
	}
	s.RefreshUnlocks()
	return dealt, nil
}

// RefreshUnlocks unlocks every registered scene that is still locked and
// whose unlock conditions hold. It returns the newly unlocked ids.
func (s *Session) RefreshUnlocks() []string {
	if !s.Initialized() {
		return nil
	}
	completed := s.scenes.CompletedSet()
	var unlocked []string
	for _, tpl := range s.scenes.Templates() {
		if s.scenes.IsUnlocked(tpl.ID) {
			continue
		}
		if s.scenes.CheckUnlockConditions(tpl, s.ledger, s.cards, completed) && s.scenes.Unlock(tpl.ID) {
			unlocked = append(unlocked, tpl.ID)
		}
	}
	return unlocked
}

// NextDay runs settlement for the current day, ends it, checks for the end
// of the game and, if play continues, runs the next dawn. A rewind point
// is taken before anything changes.
func (s *Session) NextDay() (DayReport, error) {
	if !s.Initialized() {
		return DayReport{}, ErrNotInitialized
	}
	if s.ended != nil {
		return DayReport{}, ErrGameOver
	}
	if err := s.SaveStateForRewind(); err != nil {
		return DayReport{}, err
	}

	report, err := s.days.StartSettlement()
	if err != nil {
		return report, err
	}
	s.days.EndDay()
	s.RefreshUnlocks()

	if ending, over := s.days.CheckGameEnd(); over {
		s.ended = &ending
		s.logger.Info("game over",
			zap.String("ending", string(ending.Type)),
			zap.Bool("victory", ending.Victory),
			zap.Int("day", s.clock.Day()),
		)
		s.bus.Publish(events.GameEnd, map[string]any{"ending": string(ending.Type), "victory": ending.Victory})
		return report, nil
	}
	s.days.StartDawn()
	return report, nil
}

// SpendGoldenDice pays for count golden dice from the ledger and adds them
// to an interactive check. Nothing is spent if the check rejects them.
func (s *Session) SpendGoldenDice(checker *dice.Checker, count int) (dice.State, bool, error) {
	if !s.Initialized() {
		return dice.State{}, false, ErrNotInitialized
	}
	if checker.Phase() != dice.PhaseGoldenDice {
		return dice.State{}, false, fmt.Errorf("%w: golden dice outside golden dice phase", dice.ErrWrongPhase)
	}
	if count < 0 {
		return dice.State{}, false, fmt.Errorf("%w: golden dice %d", dice.ErrNegativeCount, count)
	}
	paid, err := s.ledger.UseGoldenDice(count)
	if err != nil || !paid {
		state, _ := checker.State()
		return state, false, err
	}
	state, err := checker.UseGoldenDice(count)
	if err != nil {
		s.ledger.AddGoldenDice(count)
		return dice.State{}, false, err
	}
	return state, true, nil
}

// CreateSaveData captures the whole session. An empty saveID gets a
// generated one. The snapshot is sealed with its checksum.
func (s *Session) CreateSaveData(saveID string) (*SaveSnapshot, error) {
	if saveID == "" {
		saveID = "save_" + uuid.NewString()
	}
	snap, err := s.snapshot(saveID)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(events.GameSave, map[string]any{"saveId": saveID})
	return snap, nil
}

func (s *Session) snapshot(saveID string) (*SaveSnapshot, error) {
	if !s.Initialized() {
		return nil, ErrNotInitialized
	}
	rngState, err := s.rng.State()
	if err != nil {
		return nil, fmt.Errorf("capture random state: %w", err)
	}

	cardState := s.cards.State()
	hand := make([]string, 0, len(cardState.Cards))
	equipped := make(map[string][]string)
	for _, rec := range cardState.Cards {
		hand = append(hand, rec.InstanceID)
		if len(rec.EquippedItems) > 0 {
			equipped[rec.InstanceID] = slices.Clone(rec.EquippedItems)
		}
	}

	res := s.ledger.Data()
	active := make([]string, 0)
	for _, st := range s.scenes.ActiveScenes() {
		active = append(active, st.SceneID)
	}
	completed := s.scenes.CompletedSceneIDs()
	if completed == nil {
		completed = []string{}
	}

	snap := &SaveSnapshot{
		Version:   SnapshotVersion,
		SaveID:    saveID,
		Timestamp: s.opts.Now().UTC(),
		GameState: GameState{
			CurrentDay:         s.clock.Day(),
			ExecutionCountdown: s.clock.Countdown(),
			Gold:               res.Gold,
			Reputation:         res.Reputation,
			RewindCharges:      res.RewindCharges,
			GoldenDice:         res.GoldenDice,
			ThinkCharges:       res.ThinkCharges,
		},
		Cards: CardsState{
			Hand:            hand,
			Equipped:        equipped,
			LockedInScenes:  s.cards.LockedInScenes(),
			ThinkUsedToday:  s.thinker.UsedToday(),
			Instances:       cardState.Cards,
			NextInstanceSeq: cardState.NextSeq,
		},
		Scenes: ScenesState{
			Active:      active,
			Completed:   completed,
			Unlocked:    s.scenes.UnlockedIDs(),
			SceneStates: s.scenes.States(),
		},
		Difficulty:  s.difficulty,
		RandomSeed:  s.rng.Seed(),
		RandomState: rngState,
	}
	if err := snap.Seal(); err != nil {
		return nil, err
	}
	return snap, nil
}

// LoadGame replaces the session state with a snapshot. Registered scene
// templates come from Options; the snapshot only carries runtime state.
// Loading clears the rewind history.
func (s *Session) LoadGame(snap *SaveSnapshot) error {
	if err := s.restore(snap); err != nil {
		return err
	}
	s.clock.ClearHistory()
	s.logger.Info("game loaded",
		zap.String("save_id", snap.SaveID),
		zap.Int("day", snap.GameState.CurrentDay),
	)
	s.bus.Publish(events.GameLoad, map[string]any{"saveId": snap.SaveID})
	return nil
}

func (s *Session) restore(snap *SaveSnapshot) error {
	if snap == nil {
		return fmt.Errorf("load game: nil snapshot")
	}
	if err := snap.VerifyChecksum(); err != nil {
		return fmt.Errorf("load game %s: %w", snap.SaveID, err)
	}
	if !snap.Difficulty.Valid() {
		return fmt.Errorf("load game %s: %w: %q", snap.SaveID, ErrUnknownDifficulty, snap.Difficulty)
	}

	locked := make(map[string]string)
	for sceneID, ids := range snap.Cards.LockedInScenes {
		for _, id := range ids {
			locked[id] = sceneID
		}
	}
	records := slices.Clone(snap.Cards.Instances)
	for i := range records {
		if items, ok := snap.Cards.Equipped[records[i].InstanceID]; ok && len(records[i].EquippedItems) == 0 {
			records[i].EquippedItems = slices.Clone(items)
		}
	}

	// Build into a fresh set of engines so a failed load leaves the
	// session untouched, then keep the bus and rewind history.
	history := s.clock
	staged := &Session{id: s.id, opts: s.opts, bus: s.bus, logger: s.logger}
	g := snap.GameState
	resources := player.Resources{
		Gold:          g.Gold,
		Reputation:    g.Reputation,
		GoldenDice:    g.GoldenDice,
		RewindCharges: g.RewindCharges,
		ThinkCharges:  g.ThinkCharges,
	}
	if err := staged.build(snap.Difficulty, snap.RandomSeed, resources, g.ExecutionCountdown); err != nil {
		return fmt.Errorf("load game %s: %w", snap.SaveID, err)
	}
	nextSeq := snap.Cards.NextInstanceSeq
	if s.cards != nil {
		// ids handed out before the load stay retired
		nextSeq = max(nextSeq, s.cards.State().NextSeq)
	}
	if err := staged.cards.Restore(card.State{Cards: records, Locked: locked, NextSeq: nextSeq}); err != nil {
		return fmt.Errorf("load game %s: %w", snap.SaveID, err)
	}
	if err := staged.scenes.Restore(snap.Scenes.SceneStates); err != nil {
		return fmt.Errorf("load game %s: %w", snap.SaveID, err)
	}
	if err := staged.rng.Restore(snap.RandomState); err != nil {
		return fmt.Errorf("load game %s: %w", snap.SaveID, err)
	}
	staged.clock.Set(g.CurrentDay, g.ExecutionCountdown)
	staged.thinker.RestoreUsedToday(snap.Cards.ThinkUsedToday)
	staged.days.SetPhase(PhaseAction)

	if history != nil {
		staged.clock.history = history.history
	}
	*s = *staged
	return nil
}

// SaveStateForRewind pushes a rewind point.
func (s *Session) SaveStateForRewind() error {
	snap, err := s.snapshot("rewind_" + uuid.NewString())
	if err != nil {
		return err
	}
	s.clock.PushSnapshot(snap)
	return nil
}

// Rewind spends a charge and restores the latest rewind point. With no
// rewind point the charge is refunded and false is returned. A rewind
// point that fails to restore is kept and the charge refunded. The spent
// charge stays spent after the restore.
func (s *Session) Rewind() (bool, error) {
	if !s.Initialized() {
		return false, ErrNotInitialized
	}
	if !s.ledger.UseRewind() {
		return false, nil
	}
	snap, ok := s.clock.PopSnapshot()
	if !ok {
		s.ledger.AddRewindCharges(1)
		return false, nil
	}

	remaining := s.ledger.RewindCharges()
	if err := s.restore(snap); err != nil {
		s.clock.PushSnapshot(snap)
		s.ledger.AddRewindCharges(1)
		return false, err
	}
	s.ledger.Restore(withRewindCharges(s.ledger.Data(), remaining))

	s.logger.Info("rewound",
		zap.String("save_id", snap.SaveID),
		zap.Int("day", s.clock.Day()),
		zap.Int("rewind_charges", remaining),
	)
	return true, nil
}

func withRewindCharges(r player.Resources, charges int) player.Resources {
	r.RewindCharges = charges
	return r
}

// ActiveSceneIDs lists available and participated scenes.
func (s *Session) ActiveSceneIDs() []string {
	var out []string
	for _, st := range s.scenes.ActiveScenes() {
		out = append(out, st.SceneID)
	}
	return out
}

// LockedScenes maps scenes to the cards invested in them.
func (s *Session) LockedScenes() map[string][]string {
	return maps.Clone(s.cards.LockedInScenes())
}
