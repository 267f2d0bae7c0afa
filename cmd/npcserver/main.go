package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gs2go/npcserver/internal/assets"
	"github.com/gs2go/npcserver/internal/config"
	"github.com/gs2go/npcserver/internal/core/event"
	coresys "github.com/gs2go/npcserver/internal/core/system"
	"github.com/gs2go/npcserver/internal/data"
	"github.com/gs2go/npcserver/internal/handler"
	gonet "github.com/gs2go/npcserver/internal/net"
	"github.com/gs2go/npcserver/internal/net/packet"
	"github.com/gs2go/npcserver/internal/persist"
	"github.com/gs2go/npcserver/internal/scripting"
	"github.com/gs2go/npcserver/internal/system"
	"github.com/gs2go/npcserver/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m           gs2go npcserver v0.1.0          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       NPC 屬性同步 · Go 伺服器            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s\n\n", serverName)
}

// displayWidth counts CJK characters as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := 46 - displayWidth(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - displayWidth(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("NPCSERVER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Connect to the database and run migrations
	printSection("資料庫")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK(fmt.Sprintf("%s 連線成功", db.Dialect()))

	if err := persist.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("資料庫遷移完成")

	npcRepo, err := persist.NewNpcRepo(db)
	if err != nil {
		return fmt.Errorf("npc repo: %w", err)
	}
	defer npcRepo.Close()
	fmt.Println()

	// 4. Load data tables and assets
	printSection("資料載入")

	npcTable, err := data.LoadNpcTable(cfg.Data.NPCList)
	if err != nil {
		return fmt.Errorf("npc list: %w", err)
	}
	printStat("NPC 配置", npcTable.Count())

	var mapTable *data.MapDataTable
	if cfg.Data.MapList != "" {
		if mapTable, err = data.LoadMapDataTable(cfg.Data.MapList); err != nil {
			return fmt.Errorf("map list: %w", err)
		}
		printStat("Gmap", mapTable.Count())
	}

	store, err := assets.Open(cfg.Assets.Dir, cfg.Assets.Charset, log)
	if err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	printStat("資源檔案", store.Len())
	fmt.Println()

	// 5. World, script host and Lua engine
	bus := event.NewBus()
	worldState := world.NewState(mapTable, bus, log)

	scriptHost := system.NewNpcScriptSystem(nil, cfg.NPC.TimerInterval, log)
	luaEngine, err := scripting.NewEngine(cfg.Scripting.Dir, worldState, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer luaEngine.Close()
	scriptHost.SetActionFactory(luaEngine)

	printSection("NPC")
	spawned, restored := spawnNpcs(ctx, worldState, npcTable, npcRepo, scriptHost, store, cfg.NPC, log)
	printStat("NPC 生成", spawned)
	printStat("NPC 狀態還原", restored)
	fmt.Println()

	// 6. Create packet registry and register handlers
	pktReg := packet.NewRegistry(log)
	deps := &handler.Deps{
		Config: cfg,
		Log:    log,
		World:  worldState,
	}
	handler.RegisterAll(pktReg, deps)

	// 7. Create network server
	netServer, err := gonet.NewServer(cfg.Network.BindAddress, gonet.SessionOptions{
		InSize:        cfg.Network.InQueueSize,
		OutSize:       cfg.Network.OutQueueSize,
		PktPerSec:     cfg.Network.PacketsPerSecond,
		CompressLevel: cfg.Network.CompressLevel,
		ReadTimeout:   cfg.Network.ReadTimeout,
		WriteTimeout:  cfg.Network.WriteTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	// 8. Create systems and register with runner
	sessions := gonet.NewSessionStore()
	persistSys := system.NewPersistenceSystem(worldState, npcRepo, bus, log, cfg.Database.SaveInterval)

	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(netServer, pktReg, sessions, cfg.Network.MaxPacketsPerTick, worldState, bus, log))
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(scriptHost)
	runner.Register(system.NewOutputSystem(sessions))
	runner.Register(persistSys)

	// 9. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	// Client prop writes are applied between ticks; their replies still
	// leave with the next tick's output phase.
	var pollC <-chan time.Time
	if cfg.Network.InputPoll > 0 && cfg.Network.InputPoll < cfg.Network.TickRate {
		poll := time.NewTicker(cfg.Network.InputPoll)
		defer poll.Stop()
		pollC = poll.C
	}

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("監聽位址 %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("遊戲迴圈啟動 (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Network.TickRate)
		case <-pollC:
			runner.TickPhase(coresys.PhaseInput, 0)
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			persistSys.SaveAll()
			netServer.Shutdown()
			log.Info("伺服器已停止")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
