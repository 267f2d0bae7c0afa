package system

import (
	"context"
	"time"

	"github.com/gs2go/npcserver/internal/core/event"
	coresys "github.com/gs2go/npcserver/internal/core/system"
	"github.com/gs2go/npcserver/internal/persist"
	"github.com/gs2go/npcserver/internal/world"
	"go.uber.org/zap"
)

// NpcSaver is the storage side of PersistenceSystem.
type NpcSaver interface {
	SaveBatch(ctx context.Context, rows []persist.NpcStateRow) error
}

// PersistenceSystem periodically saves database NPCs whose properties
// changed. Phase 5 (Persist).
type PersistenceSystem struct {
	world     *world.State
	repo      NpcSaver
	log       *zap.Logger
	dirty     map[int32]struct{}
	tickCount int
	interval  int // save every N ticks
	now       func() time.Time
}

func NewPersistenceSystem(ws *world.State, repo NpcSaver, bus *event.Bus, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	s := &PersistenceSystem{
		world:    ws,
		repo:     repo,
		log:      log,
		dirty:    make(map[int32]struct{}),
		interval: intervalTicks,
		now:      time.Now,
	}
	event.Subscribe(bus, s.onPropsChanged)
	return s
}

func (s *PersistenceSystem) onPropsChanged(e event.NpcPropsChanged) {
	if info := s.world.Info(e.NpcID); info != nil && info.Persist && info.Key != "" {
		s.dirty[e.NpcID] = struct{}{}
	}
}

// Dirty returns the number of NPCs waiting to be saved.
func (s *PersistenceSystem) Dirty() int { return len(s.dirty) }

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.saveDirty()
}

// SaveAll persists every database NPC, ignoring dirty flags.
// Called for graceful shutdown.
func (s *PersistenceSystem) SaveAll() {
	var rows []persist.NpcStateRow
	s.world.AllNpcs(func(info *world.NpcInfo) {
		if info.Persist && info.Key != "" {
			rows = append(rows, s.row(info))
		}
	})
	if s.save(rows) {
		clear(s.dirty)
	}
}

func (s *PersistenceSystem) saveDirty() {
	if len(s.dirty) == 0 {
		return
	}
	rows := make([]persist.NpcStateRow, 0, len(s.dirty))
	for id := range s.dirty {
		if info := s.world.Info(id); info != nil {
			rows = append(rows, s.row(info))
		}
	}
	// Failed saves keep their flags and are retried next interval.
	if s.save(rows) {
		clear(s.dirty)
	}
}

func (s *PersistenceSystem) row(info *world.NpcInfo) persist.NpcStateRow {
	return persist.NpcStateRow{
		Key:     info.Key,
		Level:   info.Level.Name(),
		Props:   info.NPC.Snapshot(),
		SavedAt: s.now(),
	}
}

func (s *PersistenceSystem) save(rows []persist.NpcStateRow) bool {
	if len(rows) == 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.SaveBatch(ctx, rows); err != nil {
		s.log.Error("NPC 狀態存檔失敗", zap.Int("npcs", len(rows)), zap.Error(err))
		return false
	}
	s.log.Debug("NPC 狀態已存檔", zap.Int("npcs", len(rows)))
	return true
}
