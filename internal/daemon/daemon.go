package daemon

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"faucetminer/internal/chain"
	"faucetminer/internal/config"
	"faucetminer/internal/db"
	"faucetminer/internal/ledger"
	"faucetminer/internal/server"
	"faucetminer/internal/session"

	"github.com/google/uuid"
)

// Daemon orchestrates all FaucetMiner subsystems.
type Daemon struct {
	cfg        *config.Config
	nodeID     string
	startTime  time.Time
	engine     *session.Engine
	reconciler *ledger.Reconciler
	feed       *ledger.FeedClient
	contract   chain.ContractClient
	httpSrv    *server.Server

	mu      sync.RWMutex
	balance string // last polled distributor balance, display only

	stopCh chan struct{}
}

// New creates a new daemon instance.
func New(cfg *config.Config) (*Daemon, error) {
	return &Daemon{cfg: cfg, stopCh: make(chan struct{})}, nil
}

// Start initializes and starts all subsystems in order.
func (d *Daemon) Start() error {
	d.startTime = time.Now()

	// 1. Open database
	if err := db.Open(d.cfg.DBPath()); err != nil {
		return fmt.Errorf("db open: %w", err)
	}

	// 2. Get/set node ID
	nodeID, err := db.GetConfig("node_id")
	if err != nil || nodeID == "" {
		nodeID = uuid.NewString()
		if err := db.SetConfig("node_id", nodeID); err != nil {
			return fmt.Errorf("persist node id: %w", err)
		}
	}
	d.nodeID = nodeID
	log.Printf("[daemon] Node ID: %s", nodeID[:8])

	// 3. Claim ledger reconciler
	d.feed = ledger.NewFeedClient(d.cfg.Feed.BaseURL, d.cfg.Feed.APIKey)
	filter := ledger.NewClaimFilter(
		d.cfg.Feed.DistributorAddress,
		d.cfg.Feed.TokenAddress,
		d.cfg.Feed.ClaimAmount,
		d.cfg.Feed.TokenDecimals,
	)
	d.reconciler = ledger.NewReconciler(d.feed, filter, d.cfg.Feed.PageSize, d.cfg.Feed.AggregatePageSize)

	// 4. Distributor contract client
	if d.cfg.Contract.Endpoint != "" {
		d.contract = chain.NewHTTPContractClient(d.cfg.Contract.Endpoint)
		log.Printf("[daemon] Distributor contract: %s", d.cfg.Contract.Endpoint)
	} else {
		d.contract = &chain.NoopContractClient{MaxReward: d.cfg.Session.MaxReward}
		log.Println("[daemon] No distributor endpoint configured — claims confirm locally")
	}

	// 5. Session engine
	d.engine = session.NewEngine(session.Config{
		Duration:       d.cfg.Session.Duration,
		MaxReward:      d.cfg.Session.MaxReward,
		TickInterval:   d.cfg.Session.TickInterval,
		LogInterval:    d.cfg.Session.LogInterval,
		Wallet:         d.cfg.Session.Wallet,
		AmountDecimals: d.cfg.Feed.TokenDecimals,
	}, d.contract)

	d.engine.OnComplete(func() {
		log.Printf("[daemon] Session complete — %.0f %s ready to claim",
			d.cfg.Session.MaxReward, d.cfg.Feed.TokenSymbol)
	})

	// Confirmed claims land in the fallback ledger; the feed picks them up
	// once the indexer catches up.
	d.engine.SetReporter(func(rep session.ClaimReport) {
		tx := rep.TransactionHash
		if _, err := d.reconciler.RecordLocalClaim(rep.WalletAddress, rep.Amount, &tx); err != nil {
			log.Printf("[daemon] Failed to record claim locally: %v", err)
		}
	})

	// 6. Background loops
	go d.balanceLoop()
	go d.statusLoop()

	// 7. HTTP API
	d.httpSrv = server.New(d.cfg.API.Bind, d.cfg.API.Port, d, d.reconciler)
	if port, err := d.httpSrv.Start(); err != nil {
		log.Printf("[daemon] WARNING: HTTP API failed to start: %v (session engine continues)", err)
	} else {
		log.Printf("[daemon] HTTP API on port %d", port)
	}

	log.Println("[daemon] All systems online")
	return nil
}

// balanceLoop polls the distributor's token balance for display.
func (d *Daemon) balanceLoop() {
	if d.cfg.Feed.DistributorAddress == "" || d.cfg.Feed.TokenAddress == "" {
		return
	}

	interval := d.cfg.Contract.BalancePollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			bal, err := d.feed.TokenBalance(ctx, d.cfg.Feed.TokenAddress, d.cfg.Feed.DistributorAddress)
			cancel()
			if err != nil {
				log.Printf("[daemon] Balance poll failed: %v", err)
				continue
			}
			d.mu.Lock()
			d.balance = ledger.FormatUnits(bal, d.cfg.Feed.TokenDecimals, 2)
			d.mu.Unlock()
		}
	}
}

func (d *Daemon) statusLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			st := d.engine.Status()
			count, _ := db.CountClaims()
			log.Printf("[daemon] Session: %v (%.1f%%) | Local claims: %d | Distributor balance: %s",
				st["state"], st["progress"], count, d.DistributorBalance())
		}
	}
}

// Stop shuts down all subsystems.
func (d *Daemon) Stop() {
	log.Println("[daemon] Shutting down...")
	close(d.stopCh)

	if d.httpSrv != nil {
		d.httpSrv.Stop()
	}
	if d.engine != nil {
		d.engine.Shutdown()
	}
	db.Close()

	log.Println("[daemon] Shutdown complete")
}

// --- Status accessors (used by HTTP API and MCP tools) ---

func (d *Daemon) NodeID() string        { return d.nodeID }
func (d *Daemon) Uptime() time.Duration { return time.Since(d.startTime) }

func (d *Daemon) SessionStatus() map[string]interface{} {
	return d.engine.Status()
}

func (d *Daemon) SessionEvents() []session.Event {
	return d.engine.Events()
}

func (d *Daemon) DistributorBalance() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.balance == "" {
		return "0.00"
	}
	return d.balance
}

// StartSession consults the distributor for the wallet's remaining
// allowance, then starts the engine with the requested devices.
func (d *Daemon) StartSession(ctx context.Context, devices []string) error {
	info, err := d.contract.ClaimInfo(ctx, d.cfg.Session.Wallet)
	if err != nil {
		return err
	}

	devs := make([]session.Device, len(devices))
	for i, name := range devices {
		devs[i] = session.Device(name)
	}
	return d.engine.Start(devs, info.RemainingAllowance)
}

func (d *Daemon) PauseSession() error  { return d.engine.Pause() }
func (d *Daemon) ResumeSession() error { return d.engine.Resume() }

func (d *Daemon) RequestStopSession() error { return d.engine.RequestStop() }
func (d *Daemon) ConfirmStopSession() error { return d.engine.ConfirmStop() }

func (d *Daemon) ClaimSession(ctx context.Context) (string, error) {
	return d.engine.Claim(ctx)
}

// Reconciler exposes the claim ledger for the MCP tools.
func (d *Daemon) Reconciler() *ledger.Reconciler { return d.reconciler }
