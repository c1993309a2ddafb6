package services

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
)

// Watchdog retention limits. Purge only touches rows that are already
// synced to the home server and older than the retention window.
const (
	watchdogInterval = 10 * time.Minute
	purgeDiskPercent = 70.0
	purgeRetention   = "INTERVAL 30 DAY"
	purgeBatchLimit  = 1000
)

// RunWatchdog starts the retention background service: when disk usage
// crosses the threshold, aged synced messages are purged in batches.
func RunWatchdog(db *sql.DB) {
	ticker := time.NewTicker(watchdogInterval)

	go func() {
		for range ticker.C {
			usage, err := disk.Usage("/")
			if err != nil {
				slog.Error("watchdog disk usage check failed", "error", err)
				continue
			}

			if usage.UsedPercent < purgeDiskPercent {
				slog.Debug("watchdog disk usage ok", "used_percent", usage.UsedPercent)
				continue
			}

			slog.Warn("watchdog purge started", "used_percent", usage.UsedPercent)

			result, err := db.Exec(`
				DELETE FROM messages
				WHERE is_synced = 1
				AND created_at < DATE_SUB(NOW(), `+purgeRetention+`)
				LIMIT ?
			`, purgeBatchLimit)
			if err != nil {
				slog.Error("watchdog message purge failed", "error", err)
				continue
			}

			rows, _ := result.RowsAffected()
			slog.Info("watchdog purge completed", "purged_messages", rows)
		}
	}()

	slog.Info("watchdog started", "interval", watchdogInterval)
}
