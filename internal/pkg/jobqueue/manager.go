package jobqueue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/choosemypower/ziproute/app/repository"
	"github.com/choosemypower/ziproute/internal/pkg/datasync"
	"github.com/choosemypower/ziproute/internal/pkg/env"
	metrics "github.com/choosemypower/ziproute/internal/pkg/metrics/counter"
)

// Manager runs the background maintenance workers: flushing ZIP lookup
// counters from Redis to the mapping table, purging expired plan cache rows,
// and uploading the daily dataset snapshot.
type Manager struct {
	counterFlushTicker *time.Ticker
	purgeTicker        *time.Ticker
	snapshotTicker     *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global background job manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// Start starts the background workers
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so the manager can be
	// restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting background workers")

	// Flush ZIP lookup counters (Redis -> DB) every 5 seconds
	m.counterFlushTicker = time.NewTicker(5 * time.Second)
	m.wg.Add(1)
	go m.counterFlushWorker()

	// Purge expired plan cache rows - configurable interval
	m.purgeTicker = time.NewTicker(purgeInterval())
	m.wg.Add(1)
	go m.purgeWorker()

	// Upload a dataset snapshot once a day when S3 snapshots are enabled
	if cfg, err := datasync.LoadConfig(); err == nil && cfg.IsEnabled() {
		m.snapshotTicker = time.NewTicker(24 * time.Hour)
		m.wg.Add(1)
		go m.snapshotWorker(cfg)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the background workers
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping background workers...")

	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}
	if m.purgeTicker != nil {
		m.purgeTicker.Stop()
	}
	if m.snapshotTicker != nil {
		m.snapshotTicker.Stop()
	}

	// Leave the closed channel in place until Start recreates it; a worker
	// that has not reached its select yet must not see a nil channel.
	close(m.stopCh)
	m.running = false

	m.wg.Wait()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// counterFlushWorker periodically flushes pending lookup counters from Redis to DB
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Counter flush worker stopping")
			return
		case <-m.counterFlushTicker.C:
			if err := metrics.FlushAll(); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush error: %v", err)
			}
		}
	}
}

// purgeWorker periodically deletes expired plan cache rows so the table does
// not grow without bound.
func (m *Manager) purgeWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Plan cache purge worker stopping")
			return
		case <-m.purgeTicker.C:
			if err := m.purgeExpiredOnce(); err != nil {
				log.Errorf("[JobQueue Manager] Plan cache purge error: %v", err)
			}
		}
	}
}

func (m *Manager) purgeExpiredOnce() error {
	deleted, err := repository.GetGlobalRepositories().PlanCache.DeleteExpired(time.Now().UTC())
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Infof("[JobQueue Manager] Purged %d expired plan cache rows", deleted)
	}
	return nil
}

// snapshotWorker periodically exports the mapping table and uploads it to S3
func (m *Manager) snapshotWorker(cfg *datasync.Config) {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Snapshot worker stopping")
			return
		case <-m.snapshotTicker.C:
			if err := m.uploadSnapshotOnce(cfg); err != nil {
				log.Errorf("[JobQueue Manager] Snapshot upload error: %v", err)
			}
		}
	}
}

func (m *Manager) uploadSnapshotOnce(cfg *datasync.Config) error {
	client, err := datasync.NewClient(cfg)
	if err != nil {
		return err
	}

	data, err := datasync.ExportMappingsCSV(repository.GetGlobalRepositories().ZipMapping)
	if err != nil {
		return err
	}

	key := cfg.SnapshotObjectKey(time.Now().UTC())
	if err := client.UploadSnapshot(context.Background(), key, data); err != nil {
		return err
	}
	log.Infof("[JobQueue Manager] Uploaded dataset snapshot %s", key)
	return nil
}

func purgeInterval() time.Duration {
	minutes := 15
	if raw := env.GetEnv("PLAN_CACHE_PURGE_INTERVAL_MINUTES", ""); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			minutes = parsed
		}
	}
	return time.Duration(minutes) * time.Minute
}
