package main

import (
	"context"

	"github.com/gs2go/npcserver/internal/assets"
	"github.com/gs2go/npcserver/internal/config"
	"github.com/gs2go/npcserver/internal/data"
	"github.com/gs2go/npcserver/internal/npc"
	"github.com/gs2go/npcserver/internal/persist"
	"github.com/gs2go/npcserver/internal/source"
	"github.com/gs2go/npcserver/internal/world"
	"go.uber.org/zap"
)

// createdEvent is queued on every NPC once it is placed.
const createdEvent = "created"

// npcLoader is the read side of the NPC state store.
type npcLoader interface {
	Load(ctx context.Context, key string) (*persist.NpcStateRow, error)
}

// spawnNpcs places every NPC of the list and restores saved state for the
// persistent ones. It returns how many were spawned and restored.
func spawnNpcs(
	ctx context.Context,
	ws *world.State,
	table *data.NpcTable,
	repo npcLoader,
	host npc.ScriptHost,
	store *assets.Store,
	settings config.NPCConfig,
	log *zap.Logger,
) (spawned, restored int) {
	for _, e := range table.All() {
		script := e.Script
		if script == "" && e.ScriptFile != "" {
			b, err := store.Load(e.ScriptFile)
			if err != nil {
				log.Warn("NPC 腳本檔案不存在", zap.String("key", e.Key), zap.String("file", e.ScriptFile))
			}
			script = string(b)
		}

		n := ws.CreateNPC(e.Key, e.Level, e.Persist, npc.Config{
			Image:  e.Image,
			Script: source.NormalizeLines(script),
			X:      e.X,
			Y:      e.Y,
			Host:   host,
			Assets: store,
			Settings: npc.Settings{
				HasNPCServer:           settings.HasNPCServer,
				TrimCode:               settings.TrimCode,
				AlwaysVisibleFirstSync: settings.AlwaysVisibleFirstSync,
			},
			Log: log,
		})
		spawned++

		if e.Persist {
			row, err := repo.Load(ctx, e.Key)
			if err != nil {
				log.Error("NPC 狀態讀取失敗", zap.String("key", e.Key), zap.Error(err))
			} else if row != nil {
				n.Restore(row.Props)
				restored++
			}
		}
		n.QueueAction(createdEvent, nil, true)
	}
	return spawned, restored
}
