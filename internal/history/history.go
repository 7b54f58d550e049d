package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/atinylittleshell/mia/internal/session"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type HistoryManager struct {
	db      *gorm.DB
	dataDir string
	maxRuns int
}

// ScriptRun is one finished exchange with the interpreter.
type ScriptRun struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`

	Trigger string `gorm:"column:trigger_kind;index"`
	Script  string
	Outcome string
	Message string
	Output  string
}

const (
	historySchemaVersion = 1
)

// NewHistoryManager opens (and migrates if needed) the history database at dbFilePath.
// The schema version marker is kept next to the database file. maxRuns bounds how
// many runs are kept; zero keeps everything.
func NewHistoryManager(dbFilePath string, maxRuns int) (*HistoryManager, error) {
	dbFileExists := true
	if _, err := os.Stat(dbFilePath); errors.Is(err, os.ErrNotExist) {
		dbFileExists = false
	} else if err != nil {
		return nil, fmt.Errorf("error checking history db: %w", err)
	}

	dataDir := filepath.Dir(dbFilePath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating history directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbFilePath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("error opening history database: %w", err)
	}

	manager := &HistoryManager{db: db, dataDir: dataDir, maxRuns: maxRuns}

	if manager.needsMigration(dbFileExists) {
		if err := db.AutoMigrate(&ScriptRun{}); err != nil {
			return nil, fmt.Errorf("error auto-migrating history schema: %w", err)
		}
		if err := manager.writeSchemaVersion(historySchemaVersion); err != nil {
			return nil, fmt.Errorf("error writing history schema version: %w", err)
		}
	}

	return manager, nil
}

func (historyManager *HistoryManager) needsMigration(dbFileExists bool) bool {
	if !dbFileExists {
		return true
	}

	versionMatches, err := historyManager.schemaVersionMatches()
	if err != nil || !versionMatches {
		return true
	}

	// A marker without the table means the db was replaced; migrate again.
	return !historyManager.db.Migrator().HasTable(&ScriptRun{})
}

func (historyManager *HistoryManager) writeSchemaVersion(version int) error {
	return os.WriteFile(historyManager.schemaVersionPath(), []byte(strconv.Itoa(version)), 0644)
}

func (historyManager *HistoryManager) schemaVersionMatches() (bool, error) {
	data, err := os.ReadFile(historyManager.schemaVersionPath())
	if err != nil {
		return false, err
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, err
	}
	if version != historySchemaVersion {
		return false, fmt.Errorf("history schema version mismatch: got %d, want %d", version, historySchemaVersion)
	}
	return true, nil
}

func (historyManager *HistoryManager) schemaVersionPath() string {
	return filepath.Join(historyManager.dataDir, "history_schema_version")
}

// Record implements session.Recorder.
func (historyManager *HistoryManager) Record(ctx context.Context, run session.Run) error {
	entry := ScriptRun{
		Trigger: string(run.Trigger),
		Script:  run.Script,
		Outcome: string(run.Outcome),
		Message: run.Message,
		Output:  run.Output,
	}

	if result := historyManager.db.WithContext(ctx).Create(&entry); result.Error != nil {
		return result.Error
	}

	return historyManager.prune(ctx)
}

// prune deletes the oldest runs beyond maxRuns.
func (historyManager *HistoryManager) prune(ctx context.Context) error {
	if historyManager.maxRuns <= 0 {
		return nil
	}

	var cutoff ScriptRun
	result := historyManager.db.WithContext(ctx).
		Order("id desc").
		Offset(historyManager.maxRuns).
		Limit(1).
		Find(&cutoff)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return nil
	}

	return historyManager.db.WithContext(ctx).Where("id <= ?", cutoff.ID).Delete(&ScriptRun{}).Error
}

// GetRecentRuns returns up to limit runs, oldest first.
func (historyManager *HistoryManager) GetRecentRuns(limit int) ([]ScriptRun, error) {
	var runs []ScriptRun
	result := historyManager.db.Order("id desc").Limit(limit).Find(&runs)
	if result.Error != nil {
		return nil, result.Error
	}

	slices.Reverse(runs)
	return runs, nil
}

// GetRecentScripts returns distinct scripts from fresh submissions, most recent first.
func (historyManager *HistoryManager) GetRecentScripts(limit int) ([]string, error) {
	var scripts []string
	result := historyManager.db.Model(&ScriptRun{}).
		Where("trigger_kind = ?", string(session.TriggerSubmit)).
		Group("script").
		Order("MAX(id) desc").
		Limit(limit).
		Pluck("script", &scripts)
	if result.Error != nil {
		return nil, result.Error
	}

	return scripts, nil
}

// SearchScripts returns runs whose script contains query, most recent first.
func (historyManager *HistoryManager) SearchScripts(query string, limit int) ([]ScriptRun, error) {
	var runs []ScriptRun
	result := historyManager.db.Where("script LIKE ?", "%"+query+"%").
		Order("id desc").
		Limit(limit).
		Find(&runs)
	if result.Error != nil {
		return nil, result.Error
	}

	return runs, nil
}

func (historyManager *HistoryManager) DeleteRun(id uint) error {
	result := historyManager.db.Delete(&ScriptRun{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no history entry found with id %d", id)
	}

	return nil
}

func (historyManager *HistoryManager) ResetHistory() error {
	return historyManager.db.Exec("DELETE FROM script_runs").Error
}

// Close releases the underlying database handle.
func (historyManager *HistoryManager) Close() error {
	sqlDB, err := historyManager.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ session.Recorder = (*HistoryManager)(nil)
