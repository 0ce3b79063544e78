// Package mobile provides gomobile-bindable functions for the FaucetMiner
// daemon. All complex data is returned as JSON strings since gomobile cannot
// export maps, slices, or structs with unexported fields.
package mobile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"faucetminer/internal/config"
	"faucetminer/internal/daemon"

	// Required by gomobile bind at build time
	_ "golang.org/x/mobile/bind"
)

var (
	mu      sync.Mutex
	d       *daemon.Daemon
	running bool
	version = "0.1.0"
)

// Start initialises and starts the FaucetMiner daemon.
// configYAML may be empty to use defaults. dataDir is the path to the app's
// private files directory (e.g. Context.getFilesDir() + "/faucetminer").
func Start(configYAML string, dataDir string) error {
	mu.Lock()
	defer mu.Unlock()

	if running {
		return fmt.Errorf("already running")
	}

	cfg, err := config.LoadFromBytes([]byte(configYAML))
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	// On mobile, bind to all interfaces so the API is reachable from localhost
	cfg.API.Bind = "0.0.0.0"

	d, err = daemon.New(cfg)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(); err != nil {
		d = nil
		return fmt.Errorf("start daemon: %w", err)
	}

	running = true
	return nil
}

// Stop gracefully shuts down the daemon.
func Stop() {
	mu.Lock()
	defer mu.Unlock()

	if d != nil {
		d.Stop()
		d = nil
	}
	running = false
}

// IsRunning returns true if the daemon is currently running.
func IsRunning() bool {
	mu.Lock()
	defer mu.Unlock()
	return running
}

// GetStatus returns full daemon status as a JSON string.
func GetStatus() string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return `{"running":false}`
	}

	status := map[string]interface{}{
		"running":             true,
		"node_id":             d.NodeID(),
		"uptime_ms":           d.Uptime().Milliseconds(),
		"session":             d.SessionStatus(),
		"distributor_balance": d.DistributorBalance(),
	}

	data, _ := json.Marshal(status)
	return string(data)
}

// GetSessionStatus returns session state as a JSON string.
func GetSessionStatus() string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return `{"state":"idle"}`
	}
	data, _ := json.Marshal(d.SessionStatus())
	return string(data)
}

// GetSessionLog returns the decorative event stream as a JSON array.
func GetSessionLog() string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return `[]`
	}
	data, _ := json.Marshal(d.SessionEvents())
	return string(data)
}

// StartSession starts a mining session. devicesCSV is a comma-separated
// device list, e.g. "low,high". Returns "" on success or an error message.
func StartSession(devicesCSV string) string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return "daemon not running"
	}
	var devices []string
	for _, dev := range strings.Split(devicesCSV, ",") {
		if dev = strings.TrimSpace(dev); dev != "" {
			devices = append(devices, dev)
		}
	}
	if err := d.StartSession(context.Background(), devices); err != nil {
		return err.Error()
	}
	return ""
}

// PauseSession pauses the running session. Returns "" or an error message.
func PauseSession() string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return "daemon not running"
	}
	if err := d.PauseSession(); err != nil {
		return err.Error()
	}
	return ""
}

// ResumeSession resumes a paused session. Returns "" or an error message.
func ResumeSession() string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return "daemon not running"
	}
	if err := d.ResumeSession(); err != nil {
		return err.Error()
	}
	return ""
}

// StopSession discards the session. Destructive; the caller is expected to
// have confirmed with the user. Returns "" or an error message.
func StopSession() string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return "daemon not running"
	}
	if err := d.RequestStopSession(); err != nil {
		return err.Error()
	}
	if err := d.ConfirmStopSession(); err != nil {
		return err.Error()
	}
	return ""
}

// ClaimSession claims the completed session's reward.
// Returns JSON: {"txid":"0x..."} or {"error":"..."}.
func ClaimSession() string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return `{"error":"daemon not running"}`
	}
	txid, err := d.ClaimSession(context.Background())
	if err != nil {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(data)
	}
	data, _ := json.Marshal(map[string]string{"txid": txid})
	return string(data)
}

// GetVersion returns the FaucetMiner version string.
func GetVersion() string {
	return version
}
