package artifact

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RetentionConfig defines the retention policy for run artifacts.
type RetentionConfig struct {
	RetentionDays        int  // Days to keep runs before deletion
	ArchiveAfterDays     int  // Days before a run is compressed to archive
	ArchiveRetentionDays int  // Days to keep archives
	KeepFailed           bool // Failed runs are exempt from cleanup
	KeepMinRuns          int  // Minimum runs kept regardless of age
}

// DefaultRetentionConfig returns the default policy.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		RetentionDays:        30,
		ArchiveAfterDays:     7,
		ArchiveRetentionDays: 90,
		KeepFailed:           true,
		KeepMinRuns:          100,
	}
}

// Lifecycle applies retention policy to a Manager's artifact tree: old runs
// are compressed into monthly tar.gz archives, older ones deleted.
type Lifecycle struct {
	manager *Manager
	config  RetentionConfig
}

// NewLifecycle creates a lifecycle for the given manager.
func NewLifecycle(manager *Manager, config RetentionConfig) *Lifecycle {
	return &Lifecycle{manager: manager, config: config}
}

// CleanupResult summarizes cleanup actions.
type CleanupResult struct {
	Archived   []string `json:"archived"`
	Deleted    []string `json:"deleted"`
	Kept       []string `json:"kept"`
	Errors     []string `json:"errors,omitempty"`
	SpaceSaved int64    `json:"spaceSaved"`
}

// Cleanup applies the retention policy. With dryRun set it reports what
// would happen without touching the filesystem.
func (l *Lifecycle) Cleanup(dryRun bool) (*CleanupResult, error) {
	result := &CleanupResult{
		Archived: make([]string, 0),
		Deleted:  make([]string, 0),
		Kept:     make([]string, 0),
		Errors:   make([]string, 0),
	}

	runIDs, err := l.manager.ListRuns()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	archiveThreshold := now.Add(-time.Duration(l.config.ArchiveAfterDays) * 24 * time.Hour)
	deleteThreshold := now.Add(-time.Duration(l.config.RetentionDays) * 24 * time.Hour)

	type runInfo struct {
		id      string
		meta    *RunMeta
		size    int64
		endedAt time.Time
	}

	var runs []runInfo
	for _, runID := range runIDs {
		meta, err := l.manager.LoadMeta(runID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("load %s: %v", runID, err))
			continue
		}
		runs = append(runs, runInfo{
			id:      runID,
			meta:    meta,
			size:    dirSize(l.manager.RunDir(runID)),
			endedAt: meta.EndedAt,
		})
	}

	// Oldest first so KeepMinRuns protects the newest.
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].endedAt.Before(runs[j].endedAt)
	})

	removed := 0
	for _, run := range runs {
		if l.config.KeepFailed && run.meta.Status == "failed" {
			result.Kept = append(result.Kept, run.id)
			continue
		}
		// A run with no end time is still in flight.
		if run.endedAt.IsZero() {
			result.Kept = append(result.Kept, run.id)
			continue
		}
		if len(runs)-removed-1 < l.config.KeepMinRuns {
			result.Kept = append(result.Kept, run.id)
			continue
		}

		switch {
		case run.endedAt.Before(deleteThreshold):
			if !dryRun {
				if err := os.RemoveAll(l.manager.RunDir(run.id)); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", run.id, err))
					continue
				}
			}
			result.Deleted = append(result.Deleted, run.id)
			result.SpaceSaved += run.size
			removed++

		case run.endedAt.Before(archiveThreshold):
			if !dryRun {
				if err := l.archiveRun(run.id, run.endedAt); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("archive %s: %v", run.id, err))
					continue
				}
			}
			result.Archived = append(result.Archived, run.id)
			result.SpaceSaved += run.size / 2 // compression estimate
			removed++

		default:
			result.Kept = append(result.Kept, run.id)
		}
	}

	return result, nil
}

// archiveRun compresses a run directory into the monthly archive bucket and
// removes the original.
func (l *Lifecycle) archiveRun(runID string, endedAt time.Time) error {
	runDir := l.manager.RunDir(runID)

	month := endedAt.Format("2006-01")
	if endedAt.IsZero() {
		month = time.Now().Format("2006-01")
	}
	archiveDir := filepath.Join(l.manager.BaseDir(), "archive", month)
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return err
	}

	archivePath := filepath.Join(archiveDir, runID+".tar.gz")
	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	walkErr := filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		relPath, _ := filepath.Rel(runDir, path)
		header.Name = filepath.Join(runID, relPath)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(tw, file)
		return err
	})

	tw.Close()
	gz.Close()
	f.Close()

	if walkErr != nil {
		os.Remove(archivePath)
		return walkErr
	}
	return os.RemoveAll(runDir)
}

// RestoreArchive extracts an archived run back into the runs directory.
func (l *Lifecycle) RestoreArchive(runID string) error {
	archivePath := l.findArchive(runID)
	if archivePath == "" {
		return fmt.Errorf("archive not found: %s", runID)
	}

	runDir := l.manager.RunDir(runID)
	if _, err := os.Stat(runDir); err == nil {
		return fmt.Errorf("run already exists: %s", runID)
	}

	return extractArchive(archivePath, filepath.Dir(runDir))
}

// ListArchives returns all archived run IDs.
func (l *Lifecycle) ListArchives() ([]string, error) {
	archiveDir := filepath.Join(l.manager.BaseDir(), "archive")
	var archives []string

	err := filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".tar.gz") {
			archives = append(archives, strings.TrimSuffix(info.Name(), ".tar.gz"))
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	sort.Strings(archives)
	return archives, nil
}

// DeleteArchive removes an archived run.
func (l *Lifecycle) DeleteArchive(runID string) error {
	archivePath := l.findArchive(runID)
	if archivePath == "" {
		return fmt.Errorf("archive not found: %s", runID)
	}
	return os.Remove(archivePath)
}

// CleanupArchives removes archives past their retention period.
func (l *Lifecycle) CleanupArchives(dryRun bool) (*CleanupResult, error) {
	result := &CleanupResult{
		Deleted: make([]string, 0),
		Kept:    make([]string, 0),
		Errors:  make([]string, 0),
	}

	archiveDir := filepath.Join(l.manager.BaseDir(), "archive")
	threshold := time.Now().Add(-time.Duration(l.config.ArchiveRetentionDays) * 24 * time.Hour)

	err := filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".tar.gz") {
			return nil
		}

		runID := strings.TrimSuffix(info.Name(), ".tar.gz")
		if info.ModTime().Before(threshold) {
			if !dryRun {
				if err := os.Remove(path); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("delete archive %s: %v", runID, err))
					return nil
				}
			}
			result.Deleted = append(result.Deleted, runID)
			result.SpaceSaved += info.Size()
		} else {
			result.Kept = append(result.Kept, runID)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return result, nil
}

// DiskUsage returns disk usage statistics for runs and archives.
func (l *Lifecycle) DiskUsage() (*DiskUsageStats, error) {
	stats := &DiskUsageStats{}

	runIDs, err := l.manager.ListRuns()
	if err != nil {
		return nil, err
	}
	stats.RunCount = len(runIDs)
	for _, runID := range runIDs {
		stats.ActiveSize += dirSize(l.manager.RunDir(runID))
	}

	archiveDir := filepath.Join(l.manager.BaseDir(), "archive")
	filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".tar.gz") {
			stats.ArchiveSize += info.Size()
			stats.ArchiveCount++
		}
		return nil
	})

	stats.TotalSize = stats.ActiveSize + stats.ArchiveSize
	return stats, nil
}

// DiskUsageStats contains disk usage statistics.
type DiskUsageStats struct {
	RunCount     int   `json:"runCount"`
	ArchiveCount int   `json:"archiveCount"`
	ActiveSize   int64 `json:"activeSize"`
	ArchiveSize  int64 `json:"archiveSize"`
	TotalSize    int64 `json:"totalSize"`
}

func (l *Lifecycle) findArchive(runID string) string {
	archiveDir := filepath.Join(l.manager.BaseDir(), "archive")
	var found string
	filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.Name() == runID+".tar.gz" {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

func extractArchive(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		target := filepath.Join(destDir, header.Name)
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(destDir)) {
			return fmt.Errorf("invalid path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			out, err := os.Create(target)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
			if err := os.Chmod(target, os.FileMode(header.Mode)); err != nil {
				return err
			}
		}
	}

	return nil
}

func dirSize(path string) int64 {
	var size int64
	filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}
