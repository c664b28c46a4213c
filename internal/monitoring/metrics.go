package monitoring

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mr-seha/recipe-app-api/internal/database"
)

const defaultUploadsPath = "./uploads"

// Service holds runtime context for monitoring and reporting.
type Service struct {
	startedAt time.Time
}

type Snapshot struct {
	TimestampUTC        string  `json:"timestamp_utc"`
	UptimeSeconds       int64   `json:"uptime_seconds"`
	HTTPActiveRequests  int64   `json:"http_active_requests"`
	HTTPTotalRequests   uint64  `json:"http_total_requests"`
	DBOpenConnections   int     `json:"db_open_connections"`
	DBInUseConnections  int     `json:"db_in_use_connections"`
	DBWaitCount         int64   `json:"db_wait_count"`
	Goroutines          int     `json:"goroutines"`
	GoMemoryAllocBytes  uint64  `json:"go_memory_alloc_bytes"`
	GoHeapInUseBytes    uint64  `json:"go_heap_in_use_bytes"`
	UsersTotal          int64   `json:"users_total"`
	RecipesTotal        int64   `json:"recipes_total"`
	TagsTotal           int64   `json:"tags_total"`
	IngredientsTotal    int64   `json:"ingredients_total"`
	UploadsSizeBytes    int64   `json:"uploads_size_bytes"`
	UploadsFilesCount   int64   `json:"uploads_files_count"`
	UploadsFSTotalBytes uint64  `json:"uploads_fs_total_bytes"`
	UploadsFSFreeBytes  uint64  `json:"uploads_fs_free_bytes"`
	ImageUploadsTotal   uint64  `json:"image_uploads_total"`
	ImageUploadsFailed  uint64  `json:"image_uploads_failed"`
	ImageUploadAvgMS    float64 `json:"image_upload_avg_ms"`
}

func NewService(startedAt time.Time) *Service {
	return &Service{startedAt: startedAt}
}

func (s *Service) StatusText() string {
	dbState := "ok"
	if err := database.DB.Ping(); err != nil {
		dbState = "error: " + err.Error()
	}

	uptime := time.Since(s.startedAt).Round(time.Second)
	activeHTTP, totalHTTP := getHTTPStats()
	stats := database.DB.Stats()

	return strings.Join([]string{
		"Recipe API Server Status",
		fmt.Sprintf("Uptime: %s", uptime),
		fmt.Sprintf("DB: %s", dbState),
		fmt.Sprintf("HTTP active requests: %d", activeHTTP),
		fmt.Sprintf("HTTP total requests: %d", totalHTTP),
		fmt.Sprintf("DB open connections: %d", stats.OpenConnections),
		fmt.Sprintf("Go goroutines: %d", runtime.NumGoroutine()),
	}, "\n")
}

func (s *Service) StorageText() string {
	var dbSizeBytes int64
	_ = database.DB.QueryRow(`SELECT COALESCE(pg_database_size(current_database()), 0)`).Scan(&dbSizeBytes)

	uploadsDir := getUploadsDir()
	uploadsBytes := dirSize(uploadsDir)
	uploadsFiles := dirFileCount(uploadsDir)
	uploadsTotal, uploadsFree := fsUsage(uploadsDir)
	uploads := getUploadStats()

	return strings.Join([]string{
		"Recipe API Storage",
		fmt.Sprintf("PostgreSQL DB size: %s", formatBytes(dbSizeBytes)),
		fmt.Sprintf("Uploads folder size (%s): %s", uploadsDir, formatBytes(uploadsBytes)),
		fmt.Sprintf("Uploads files count: %d", uploadsFiles),
		fmt.Sprintf("Uploads disk free: %s", formatBytes(int64(uploadsFree))),
		fmt.Sprintf("Uploads disk total: %s", formatBytes(int64(uploadsTotal))),
		fmt.Sprintf("Image uploads total: %d (failed: %d, avg %.2f ms)", uploads.RequestsTotal, uploads.FailedTotal, uploads.AvgDurationMS),
	}, "\n")
}

func (s *Service) ConnectionsText() string {
	stats := database.DB.Stats()
	activeHTTP, totalHTTP := getHTTPStats()

	return strings.Join([]string{
		"Recipe API Connections",
		fmt.Sprintf("DB MaxOpenConnections: %d", stats.MaxOpenConnections),
		fmt.Sprintf("DB OpenConnections: %d", stats.OpenConnections),
		fmt.Sprintf("DB InUse: %d", stats.InUse),
		fmt.Sprintf("DB Idle: %d", stats.Idle),
		fmt.Sprintf("DB WaitCount: %d", stats.WaitCount),
		fmt.Sprintf("HTTP active requests: %d", activeHTTP),
		fmt.Sprintf("HTTP total requests: %d", totalHTTP),
	}, "\n")
}

func (s *Service) RuntimeText() string {
	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	return strings.Join([]string{
		"Recipe API Runtime",
		fmt.Sprintf("Go version: %s", runtime.Version()),
		fmt.Sprintf("CPU cores: %d", runtime.NumCPU()),
		fmt.Sprintf("Goroutines: %d", runtime.NumGoroutine()),
		fmt.Sprintf("Memory alloc: %s", formatBytes(int64(memory.Alloc))),
		fmt.Sprintf("Memory sys: %s", formatBytes(int64(memory.Sys))),
		fmt.Sprintf("Heap in use: %s", formatBytes(int64(memory.HeapInuse))),
		fmt.Sprintf("GC cycles: %d", memory.NumGC),
	}, "\n")
}

func (s *Service) UsersText() string {
	users := countRows("users")
	recipes := countRows("recipes")
	tags := countRows("tags")
	ingredients := countRows("ingredients")

	return strings.Join([]string{
		"Recipe API Entities",
		fmt.Sprintf("Users: %d", users),
		fmt.Sprintf("Recipes: %d", recipes),
		fmt.Sprintf("Tags: %d", tags),
		fmt.Sprintf("Ingredients: %d", ingredients),
	}, "\n")
}

func (s *Service) AllText() string {
	return strings.Join([]string{
		s.StatusText(),
		"",
		s.UsersText(),
		"",
		s.StorageText(),
		"",
		s.ConnectionsText(),
		"",
		s.RuntimeText(),
	}, "\n")
}

func (s *Service) GetSnapshot() Snapshot {
	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	activeHTTP, totalHTTP := getHTTPStats()
	stats := database.DB.Stats()
	uploadsDir := getUploadsDir()
	uploadsTotal, uploadsFree := fsUsage(uploadsDir)
	uploads := getUploadStats()

	return Snapshot{
		TimestampUTC:        time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds:       int64(time.Since(s.startedAt).Seconds()),
		HTTPActiveRequests:  activeHTTP,
		HTTPTotalRequests:   totalHTTP,
		DBOpenConnections:   stats.OpenConnections,
		DBInUseConnections:  stats.InUse,
		DBWaitCount:         stats.WaitCount,
		Goroutines:          runtime.NumGoroutine(),
		GoMemoryAllocBytes:  memory.Alloc,
		GoHeapInUseBytes:    memory.HeapInuse,
		UsersTotal:          countRows("users"),
		RecipesTotal:        countRows("recipes"),
		TagsTotal:           countRows("tags"),
		IngredientsTotal:    countRows("ingredients"),
		UploadsSizeBytes:    dirSize(uploadsDir),
		UploadsFilesCount:   dirFileCount(uploadsDir),
		UploadsFSTotalBytes: uploadsTotal,
		UploadsFSFreeBytes:  uploadsFree,
		ImageUploadsTotal:   uploads.RequestsTotal,
		ImageUploadsFailed:  uploads.FailedTotal,
		ImageUploadAvgMS:    uploads.AvgDurationMS,
	}
}

func countRows(table string) int64 {
	var count int64
	_ = database.DB.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count)
	return count
}

func getUploadsDir() string {
	value := strings.TrimSpace(os.Getenv("RECIPE_UPLOADS_PATH"))
	if value == "" {
		return defaultUploadsPath
	}
	return value
}

func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		info, infoErr := entry.Info()
		if infoErr != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

func dirFileCount(path string) int64 {
	var count int64
	_ = filepath.WalkDir(path, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		count++
		return nil
	})
	return count
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
