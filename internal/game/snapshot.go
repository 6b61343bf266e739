package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/LivingInDrm/sudanlike/internal/random"
	"github.com/LivingInDrm/sudanlike/internal/scene"
)

// SnapshotVersion is the save format version written by CreateSaveData.
const SnapshotVersion = 1

// GameState is the clock and resource part of a snapshot.
type GameState struct {
	CurrentDay         int `json:"current_day"`
	ExecutionCountdown int `json:"execution_countdown"`
	Gold               int `json:"gold"`
	Reputation         int `json:"reputation"`
	RewindCharges      int `json:"rewind_charges"`
	GoldenDice         int `json:"golden_dice"`
	ThinkCharges       int `json:"think_charges"`
}

// CardsState is the hand part of a snapshot. Instances carries the full
// records; Hand and Equipped are derived views of them.
type CardsState struct {
	Hand            []string            `json:"hand"`
	Equipped        map[string][]string `json:"equipped"`
	LockedInScenes  map[string][]string `json:"locked_in_scenes"`
	ThinkUsedToday  []string            `json:"think_used_today"`
	Instances       []card.Record       `json:"instances"`
	NextInstanceSeq uint64              `json:"next_instance_seq"`
}

// ScenesState is the scene part of a snapshot.
type ScenesState struct {
	Active      []string               `json:"active"`
	Completed   []string               `json:"completed"`
	Unlocked    []string               `json:"unlocked"`
	SceneStates map[string]scene.State `json:"scene_states"`
}

// SaveSnapshot is everything needed to rebuild a session.
type SaveSnapshot struct {
	Version     int          `json:"version"`
	SaveID      string       `json:"save_id"`
	Timestamp   time.Time    `json:"timestamp"`
	GameState   GameState    `json:"game_state"`
	Cards       CardsState   `json:"cards"`
	Scenes      ScenesState  `json:"scenes"`
	Difficulty  Difficulty   `json:"difficulty"`
	RandomSeed  uint64       `json:"random_seed"`
	RandomState random.State `json:"random_state"`
	Checksum    string       `json:"checksum,omitempty"`
}

// ComputeChecksum hashes a canonical form of the snapshot. The save id,
// the timestamp and the instance id sequence do not take part, so the same
// game state always hashes the same.
func (s *SaveSnapshot) ComputeChecksum() (string, error) {
	data, err := s.canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Seal stores the computed checksum on the snapshot.
func (s *SaveSnapshot) Seal() error {
	sum, err := s.ComputeChecksum()
	if err != nil {
		return err
	}
	s.Checksum = sum
	return nil
}

// VerifyChecksum checks the stored checksum. An unsealed snapshot verifies.
func (s *SaveSnapshot) VerifyChecksum() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.Version)
	}
	if s.Checksum == "" {
		return nil
	}
	sum, err := s.ComputeChecksum()
	if err != nil {
		return err
	}
	if sum != s.Checksum {
		return fmt.Errorf("%w: stored %s, computed %s", ErrChecksumMismatch, s.Checksum, sum)
	}
	return nil
}

// Clone returns a deep copy through the JSON form.
func (s *SaveSnapshot) Clone() (*SaveSnapshot, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return UnmarshalSnapshot(data)
}

// MarshalSnapshot encodes a snapshot as indented JSON.
func MarshalSnapshot(s *SaveSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes JSON and verifies the checksum.
func UnmarshalSnapshot(data []byte) (*SaveSnapshot, error) {
	var s SaveSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.VerifyChecksum(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *SaveSnapshot) canonical() ([]byte, error) {
	var buf bytes.Buffer
	g := s.GameState

	fmt.Fprintf(&buf, "VERSION:%d|%s\n", s.Version, s.Difficulty)
	fmt.Fprintf(&buf, "GAME:%d|%d|%d|%d|%d|%d|%d\n",
		g.CurrentDay, g.ExecutionCountdown, g.Gold, g.Reputation,
		g.RewindCharges, g.GoldenDice, g.ThinkCharges)
	fmt.Fprintf(&buf, "RANDOM:%d|%d|%s\n", s.RandomSeed, s.RandomState.Seed, hex.EncodeToString(s.RandomState.Generator))

	// Hand order is the acquisition order and is kept.
	buf.WriteString("HAND:" + strings.Join(s.Cards.Hand, ",") + "\n")
	writeSortedLists(&buf, "EQUIPPED", s.Cards.Equipped)
	writeSortedLists(&buf, "LOCKED", s.Cards.LockedInScenes)
	used := slices.Sorted(slices.Values(s.Cards.ThinkUsedToday))
	buf.WriteString("THINK:" + strings.Join(used, ",") + "\n")

	records := slices.Clone(s.Cards.Instances)
	slices.SortFunc(records, func(a, b card.Record) int { return strings.Compare(a.InstanceID, b.InstanceID) })
	for _, rec := range records {
		line, err := canonicalRecord(rec)
		if err != nil {
			return nil, err
		}
		buf.WriteString("CARD:" + line + "\n")
	}

	buf.WriteString("ACTIVE:" + strings.Join(slices.Sorted(slices.Values(s.Scenes.Active)), ",") + "\n")
	buf.WriteString("COMPLETED:" + strings.Join(slices.Sorted(slices.Values(s.Scenes.Completed)), ",") + "\n")
	for _, id := range slices.Sorted(maps.Keys(s.Scenes.SceneStates)) {
		st := s.Scenes.SceneStates[id]
		fmt.Fprintf(&buf, "SCENE:%s|%s|%d|%s\n", id, st.Status, st.RemainingTurns, strings.Join(st.InvestedCards, ","))
		for _, slot := range st.SlotStates {
			fmt.Fprintf(&buf, "  SLOT:%d|%s|%t|%s|%t\n", slot.Index, slot.Type, slot.Required, slot.InvestedCardID, slot.Locked)
		}
	}
	return buf.Bytes(), nil
}

// canonicalRecord renders a record with empty collections normalised, so
// nil and empty lists or maps hash the same.
func canonicalRecord(rec card.Record) (string, error) {
	if len(rec.Tags) == 0 {
		rec.Tags = nil
	}
	if len(rec.Attributes) == 0 {
		rec.Attributes = nil
	}
	if len(rec.AttributeBonus) == 0 {
		rec.AttributeBonus = nil
	}
	if len(rec.EquippedItems) == 0 {
		rec.EquippedItems = nil
	}
	if rec.CurrentTags == nil {
		rec.CurrentTags = []string{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode card %s: %w", rec.InstanceID, err)
	}
	return string(data), nil
}

func writeSortedLists(buf *bytes.Buffer, label string, m map[string][]string) {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if len(m[k]) == 0 {
			continue
		}
		fmt.Fprintf(buf, "%s:%s=%s\n", label, k, strings.Join(m[k], ","))
	}
}
