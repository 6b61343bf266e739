package game

import (
	"fmt"

	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/LivingInDrm/sudanlike/internal/events"
	"github.com/LivingInDrm/sudanlike/internal/scene"
	"github.com/LivingInDrm/sudanlike/internal/settlement"
	"go.uber.org/zap"
)

// Phase is the stage of the current day.
type Phase string

const (
	PhaseDawn       Phase = "dawn"
	PhaseAction     Phase = "action"
	PhaseSettlement Phase = "settlement"
	PhaseGameOver   Phase = "game_over"
)

// EndingType names how a game ended.
type EndingType string

const (
	EndingSurvivalVictory  EndingType = "survival_victory"
	EndingExecutionFailure EndingType = "execution_failure"
	EndingDeathFailure     EndingType = "death_failure"
)

// Ending is the outcome of a finished game.
type Ending struct {
	Victory bool       `json:"is_victory"`
	Type    EndingType `json:"ending_type"`
	Message string     `json:"message"`
}

// DayReport is what one settlement phase did.
type DayReport struct {
	Day     int                  `json:"day"`
	Settled []*settlement.Result `json:"settled"`
	Absent  []string             `json:"absent"`
}

// Orchestrator drives the day cycle dawn -> action -> settlement -> end.
type Orchestrator struct {
	phase    Phase
	clock    *Clock
	cards    *card.Engine
	scenes   *scene.Engine
	thinker  *Thinker
	executor *settlement.Executor
	bus      *events.Bus
	logger   *zap.Logger
}

// NewOrchestrator wires the day cycle.
func NewOrchestrator(clock *Clock, cards *card.Engine, scenes *scene.Engine, thinker *Thinker, executor *settlement.Executor, bus *events.Bus, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		phase:    PhaseDawn,
		clock:    clock,
		cards:    cards,
		scenes:   scenes,
		thinker:  thinker,
		executor: executor,
		bus:      bus,
		logger:   logger,
	}
}

func (o *Orchestrator) Phase() Phase { return o.phase }

// StartDawn resets think charges and counts down every active scene, then
// opens the action phase.
func (o *Orchestrator) StartDawn() {
	o.phase = PhaseDawn
	o.bus.Publish(events.DayDawn, map[string]any{"day": o.clock.Day(), "countdown": o.clock.Countdown()})

	o.thinker.ResetDaily()
	for _, s := range o.scenes.ActiveScenes() {
		switch s.Status {
		case scene.StatusParticipated:
			o.scenes.DecrementRemainingTurns(s.SceneID)
		case scene.StatusAvailable:
			o.scenes.AgeAvailable(s.SceneID)
		}
	}

	o.phase = PhaseAction
	o.bus.Publish(events.DayAction, map[string]any{"day": o.clock.Day()})
}

// StartSettlement settles every expired scene and then applies absence
// penalties to every scene that ran out unplayed.
func (o *Orchestrator) StartSettlement() (DayReport, error) {
	o.phase = PhaseSettlement
	report := DayReport{Day: o.clock.Day(), Settled: []*settlement.Result{}, Absent: []string{}}
	o.bus.Publish(events.DaySettlement, map[string]any{"day": report.Day})

	for _, id := range o.scenes.ExpiredScenes() {
		res, err := o.executor.SettleScene(id)
		if err != nil {
			return report, fmt.Errorf("settle %s on day %d: %w", id, report.Day, err)
		}
		if res != nil {
			report.Settled = append(report.Settled, res)
		}
	}
	for _, id := range o.scenes.AbsentScenes() {
		if o.executor.ApplyAbsencePenalty(id) {
			report.Absent = append(report.Absent, id)
		}
	}

	o.logger.Debug("settlement phase finished",
		zap.Int("day", report.Day),
		zap.Int("settled", len(report.Settled)),
		zap.Int("absent", len(report.Absent)),
	)
	return report, nil
}

// EndDay closes the day and advances the clock.
func (o *Orchestrator) EndDay() {
	o.bus.Publish(events.DayEnd, map[string]any{"day": o.clock.Day()})
	o.clock.AdvanceDay()
	o.phase = PhaseDawn
}

// CheckGameEnd reports the ending if the game is over. On execution day a
// held sultan card wins; otherwise losing the protagonist ends the game.
func (o *Orchestrator) CheckGameEnd() (Ending, bool) {
	if o.clock.IsExecutionDay() {
		o.phase = PhaseGameOver
		if len(o.cards.Sultans()) > 0 {
			return Ending{
				Victory: true,
				Type:    EndingSurvivalVictory,
				Message: "You survived until the execution day with the Sultan card!",
			}, true
		}
		return Ending{
			Type:    EndingExecutionFailure,
			Message: "The execution day has arrived. You failed to save the Sultan.",
		}, true
	}
	if _, ok := o.cards.Protagonist(); !ok {
		o.phase = PhaseGameOver
		return Ending{Type: EndingDeathFailure, Message: "Your protagonist has died."}, true
	}
	return Ending{}, false
}

// SetPhase overrides the phase, used when loading.
func (o *Orchestrator) SetPhase(p Phase) { o.phase = p }
