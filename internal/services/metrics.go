// Package services hosts the operational side-channel: periodic
// resource and roster sampling broadcast to websocket subscribers.
package services

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type MetricSample struct {
	CapturedAt         time.Time `db:"captured_at" json:"capturedAt"`
	ProcessMemoryBytes int64     `db:"process_memory_bytes" json:"processMemoryBytes"`
	SystemMemoryTotal  int64     `db:"system_memory_total_bytes" json:"systemMemoryTotalBytes"`
	SystemMemoryUsed   int64     `db:"system_memory_used_bytes" json:"systemMemoryUsedBytes"`
	DiskTotalBytes     int64     `db:"disk_total_bytes" json:"diskTotalBytes"`
	DiskUsedBytes      int64     `db:"disk_used_bytes" json:"diskUsedBytes"`
	ProcessCpuLoad     float64   `db:"process_cpu_load" json:"processCpuLoad"`
	SystemCpuLoad      float64   `db:"system_cpu_load" json:"systemCpuLoad"`
	StudentCount       int       `db:"student_count" json:"studentCount"`
	BondedCount        int       `db:"bonded_count" json:"bondedCount"`
	ImageCount         int       `db:"image_count" json:"imageCount"`
	UnprintedCount     int       `db:"unprinted_count" json:"unprintedCount"`
}

// CaptureMetrics samples process/system resources plus roster totals
// and persists the sample for the history endpoint.
func CaptureMetrics(db *sqlx.DB, diskPath string) (MetricSample, error) {
	proc, _ := process.NewProcess(int32(os.Getpid()))
	memStat, _ := mem.VirtualMemory()
	diskStat, err := disk.Usage(diskPath)
	if err != nil {
		diskStat, _ = disk.Usage("/")
	}
	processRSS := int64(0)
	processCPU := float64(0)
	if proc != nil {
		rss, _ := proc.MemoryInfo()
		if rss != nil {
			processRSS = int64(rss.RSS)
		}
		cpuPerc, _ := proc.CPUPercent()
		processCPU = cpuPerc / 100.0
	}
	sysCPU, _ := cpu.Percent(0, false)
	sysCPUValue := 0.0
	if len(sysCPU) > 0 {
		sysCPUValue = sysCPU[0] / 100.0
	}

	sample := MetricSample{
		CapturedAt:         time.Now().UTC(),
		ProcessMemoryBytes: processRSS,
		ProcessCpuLoad:     processCPU,
		SystemCpuLoad:      sysCPUValue,
	}
	if memStat != nil {
		sample.SystemMemoryTotal = int64(memStat.Total)
		sample.SystemMemoryUsed = int64(memStat.Total - memStat.Available)
	}
	if diskStat != nil {
		sample.DiskTotalBytes = int64(diskStat.Total)
		sample.DiskUsedBytes = int64(diskStat.Used)
	}
	if err := fillRosterCounts(db, &sample); err != nil {
		return MetricSample{}, err
	}

	_, err = db.NamedExec(`
INSERT INTO server_metric_samples (
  captured_at, process_memory_bytes, system_memory_total_bytes,
  system_memory_used_bytes, disk_total_bytes, disk_used_bytes,
  process_cpu_load, system_cpu_load,
  student_count, bonded_count, image_count, unprinted_count
) VALUES (
  :captured_at, :process_memory_bytes, :system_memory_total_bytes,
  :system_memory_used_bytes, :disk_total_bytes, :disk_used_bytes,
  :process_cpu_load, :system_cpu_load,
  :student_count, :bonded_count, :image_count, :unprinted_count
)`, sample)
	if err != nil {
		return MetricSample{}, err
	}
	return sample, nil
}

func fillRosterCounts(db *sqlx.DB, sample *MetricSample) error {
	if err := db.Get(&sample.StudentCount,
		`SELECT COUNT(*) FROM students WHERE deleted_at IS NULL`); err != nil {
		return err
	}
	if err := db.Get(&sample.BondedCount,
		`SELECT COUNT(*) FROM students WHERE deleted_at IS NULL AND has_bonded_with = 1`); err != nil {
		return err
	}
	if err := db.Get(&sample.ImageCount, `SELECT COUNT(*) FROM images`); err != nil {
		return err
	}
	return db.Get(&sample.UnprintedCount,
		`SELECT COUNT(*) FROM images WHERE has_been_printed = 0`)
}

// LatestMetrics returns up to limit samples, oldest first.
func LatestMetrics(db *sqlx.DB, limit int) ([]MetricSample, error) {
	rows := []MetricSample{}
	if err := db.Select(&rows, `
SELECT captured_at, process_memory_bytes, system_memory_total_bytes,
       system_memory_used_bytes, disk_total_bytes, disk_used_bytes,
       process_cpu_load, system_cpu_load,
       student_count, bonded_count, image_count, unprinted_count
FROM server_metric_samples
ORDER BY captured_at DESC
LIMIT ?
`, limit); err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// MetricsHub fans samples out to connected websocket clients.
type MetricsHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	ch      chan MetricSample
}

func NewMetricsHub() *MetricsHub {
	return &MetricsHub{
		clients: map[*websocket.Conn]bool{},
		ch:      make(chan MetricSample, 16),
	}
}

func (h *MetricsHub) Run(ctx context.Context) {
	for {
		select {
		case sample := <-h.ch:
			h.mu.Lock()
			for conn := range h.clients {
				_ = conn.WriteJSON(sample)
			}
			h.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// Broadcast never blocks the sampler; slow consumers drop samples.
func (h *MetricsHub) Broadcast(sample MetricSample) {
	select {
	case h.ch <- sample:
	default:
	}
}

func (h *MetricsHub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *MetricsHub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}
