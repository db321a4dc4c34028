package artifact

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// seedRun writes a minimal run directory with metadata ended the given
// number of days ago. daysAgo < 0 leaves EndedAt zero (in-flight run).
func seedRun(t *testing.T, m *Manager, runID, status string, daysAgo int) {
	t.Helper()
	if err := m.SaveCode(runID, "print('hi')\n"); err != nil {
		t.Fatalf("seed %s: %v", runID, err)
	}

	meta := RunMeta{RunID: runID, FlowID: "dev-pipeline", Status: status}
	if daysAgo >= 0 {
		meta.EndedAt = time.Now().Add(-time.Duration(daysAgo) * 24 * time.Hour)
		meta.StartedAt = meta.EndedAt.Add(-time.Minute)
	}
	if err := m.SaveMeta(meta); err != nil {
		t.Fatalf("seed meta %s: %v", runID, err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func testRetention() RetentionConfig {
	return RetentionConfig{
		RetentionDays:        30,
		ArchiveAfterDays:     7,
		ArchiveRetentionDays: 90,
		KeepFailed:           true,
		KeepMinRuns:          0,
	}
}

func TestLifecycle_Cleanup(t *testing.T) {
	m := NewManager(t.TempDir())
	l := NewLifecycle(m, testRetention())

	seedRun(t, m, "ancient", "completed", 60) // past retention: delete
	seedRun(t, m, "stale", "completed", 14)   // past archive threshold: archive
	seedRun(t, m, "fresh", "completed", 1)    // recent: keep

	result, err := l.Cleanup(false)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if !contains(result.Deleted, "ancient") {
		t.Errorf("Deleted = %v, want ancient", result.Deleted)
	}
	if !contains(result.Archived, "stale") {
		t.Errorf("Archived = %v, want stale", result.Archived)
	}
	if !contains(result.Kept, "fresh") {
		t.Errorf("Kept = %v, want fresh", result.Kept)
	}

	if _, err := os.Stat(m.RunDir("ancient")); !os.IsNotExist(err) {
		t.Error("ancient run dir should be removed")
	}
	if _, err := os.Stat(m.RunDir("stale")); !os.IsNotExist(err) {
		t.Error("archived run dir should be removed")
	}
	if _, err := os.Stat(m.RunDir("fresh")); err != nil {
		t.Error("fresh run dir should survive")
	}

	archives, err := l.ListArchives()
	if err != nil {
		t.Fatalf("ListArchives: %v", err)
	}
	if !contains(archives, "stale") {
		t.Errorf("ListArchives = %v, want stale", archives)
	}
}

func TestLifecycle_CleanupDryRun(t *testing.T) {
	m := NewManager(t.TempDir())
	l := NewLifecycle(m, testRetention())

	seedRun(t, m, "ancient", "completed", 60)

	result, err := l.Cleanup(true)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if !contains(result.Deleted, "ancient") {
		t.Errorf("dry run should report the deletion: %v", result.Deleted)
	}
	if _, err := os.Stat(m.RunDir("ancient")); err != nil {
		t.Error("dry run must not touch the filesystem")
	}
}

func TestLifecycle_KeepsFailedRuns(t *testing.T) {
	m := NewManager(t.TempDir())
	l := NewLifecycle(m, testRetention())

	seedRun(t, m, "old-failure", "failed", 60)

	result, err := l.Cleanup(false)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if !contains(result.Kept, "old-failure") {
		t.Errorf("failed run should be kept: %+v", result)
	}
	if _, err := os.Stat(m.RunDir("old-failure")); err != nil {
		t.Error("failed run dir should survive")
	}
}

func TestLifecycle_KeepsInFlightRuns(t *testing.T) {
	m := NewManager(t.TempDir())
	l := NewLifecycle(m, testRetention())

	seedRun(t, m, "running", "started", -1)

	result, err := l.Cleanup(false)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if !contains(result.Kept, "running") {
		t.Errorf("in-flight run should be kept: %+v", result)
	}
}

func TestLifecycle_KeepMinRuns(t *testing.T) {
	m := NewManager(t.TempDir())
	cfg := testRetention()
	cfg.KeepMinRuns = 2
	l := NewLifecycle(m, cfg)

	seedRun(t, m, "oldest", "completed", 90)
	seedRun(t, m, "older", "completed", 60)
	seedRun(t, m, "old", "completed", 45)

	result, err := l.Cleanup(false)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if len(result.Deleted) != 1 || result.Deleted[0] != "oldest" {
		t.Errorf("Deleted = %v, want only oldest", result.Deleted)
	}
	if len(result.Kept) != 2 {
		t.Errorf("Kept = %v, want two newest runs", result.Kept)
	}
}

func TestLifecycle_RestoreArchive(t *testing.T) {
	m := NewManager(t.TempDir())
	l := NewLifecycle(m, testRetention())

	seedRun(t, m, "stale", "completed", 14)
	if _, err := l.Cleanup(false); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if err := l.RestoreArchive("stale"); err != nil {
		t.Fatalf("RestoreArchive: %v", err)
	}

	code, err := m.Load("stale", FileCode)
	if err != nil {
		t.Fatalf("Load after restore: %v", err)
	}
	if code != "print('hi')\n" {
		t.Errorf("restored code = %q", code)
	}

	// Restoring over an existing run must fail.
	if err := l.RestoreArchive("stale"); err == nil {
		t.Error("RestoreArchive should refuse to overwrite an existing run")
	}
}

func TestLifecycle_RestoreArchiveMissing(t *testing.T) {
	m := NewManager(t.TempDir())
	l := NewLifecycle(m, testRetention())

	err := l.RestoreArchive("no-such-run")
	if err == nil || !strings.Contains(err.Error(), "archive not found") {
		t.Errorf("RestoreArchive = %v, want archive not found", err)
	}
}

func TestLifecycle_DeleteArchive(t *testing.T) {
	m := NewManager(t.TempDir())
	l := NewLifecycle(m, testRetention())

	seedRun(t, m, "stale", "completed", 14)
	if _, err := l.Cleanup(false); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if err := l.DeleteArchive("stale"); err != nil {
		t.Fatalf("DeleteArchive: %v", err)
	}
	archives, _ := l.ListArchives()
	if len(archives) != 0 {
		t.Errorf("ListArchives = %v, want empty", archives)
	}

	if err := l.DeleteArchive("stale"); err == nil {
		t.Error("second DeleteArchive should fail")
	}
}

func TestLifecycle_CleanupArchives(t *testing.T) {
	m := NewManager(t.TempDir())
	l := NewLifecycle(m, testRetention())

	seedRun(t, m, "stale", "completed", 14)
	if _, err := l.Cleanup(false); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	// Age the archive file past the archive retention window.
	archives, _ := l.ListArchives()
	if len(archives) != 1 {
		t.Fatalf("archives = %v", archives)
	}
	old := time.Now().Add(-120 * 24 * time.Hour)
	archivePath := l.findArchive("stale")
	if err := os.Chtimes(archivePath, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	result, err := l.CleanupArchives(false)
	if err != nil {
		t.Fatalf("CleanupArchives: %v", err)
	}
	if !contains(result.Deleted, "stale") {
		t.Errorf("Deleted = %v, want stale", result.Deleted)
	}
	if _, err := os.Stat(archivePath); !os.IsNotExist(err) {
		t.Error("expired archive should be removed")
	}
}

func TestLifecycle_DiskUsage(t *testing.T) {
	m := NewManager(t.TempDir())
	l := NewLifecycle(m, testRetention())

	seedRun(t, m, "fresh", "completed", 1)
	seedRun(t, m, "stale", "completed", 14)
	if _, err := l.Cleanup(false); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	stats, err := l.DiskUsage()
	if err != nil {
		t.Fatalf("DiskUsage: %v", err)
	}
	if stats.RunCount != 1 {
		t.Errorf("RunCount = %d, want 1", stats.RunCount)
	}
	if stats.ArchiveCount != 1 {
		t.Errorf("ArchiveCount = %d, want 1", stats.ArchiveCount)
	}
	if stats.ActiveSize <= 0 || stats.ArchiveSize <= 0 {
		t.Errorf("sizes = %+v, want positive", stats)
	}
	if stats.TotalSize != stats.ActiveSize+stats.ArchiveSize {
		t.Errorf("TotalSize = %d, want sum of parts", stats.TotalSize)
	}
}

func TestExtractArchive_RejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.tar.gz")

	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	content := []byte("owned")
	if err := tw.WriteHeader(&tar.Header{
		Name:     "../escape.txt",
		Typeflag: tar.TypeReg,
		Mode:     0644,
		Size:     int64(len(content)),
	}); err != nil {
		t.Fatalf("write header: %v", err)
	}
	tw.Write(content)
	tw.Close()
	gz.Close()
	f.Close()

	destDir := filepath.Join(dir, "dest")
	if err := os.MkdirAll(destDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	err = extractArchive(archivePath, destDir)
	if err == nil || !strings.Contains(err.Error(), "invalid path in archive") {
		t.Errorf("extractArchive = %v, want invalid path error", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(statErr) {
		t.Error("traversal file must not be written")
	}
}
