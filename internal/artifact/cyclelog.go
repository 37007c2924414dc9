package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"marketpipe/internal/contracts"
)

// CycleRecord is one row of the queryable cycle history.
type CycleRecord struct {
	CycleID      string
	Query        string
	Action       string
	FocusSymbols []string
	Failed       bool
	ErrorStage   string
	ErrorKind    string
	StartedAt    time.Time
	FinishedAt   time.Time
}

type cycleLogModel struct {
	ID           int64          `gorm:"column:id;primaryKey"`
	CycleID      string         `gorm:"column:cycle_id;uniqueIndex"`
	Query        string         `gorm:"column:query"`
	Action       string         `gorm:"column:action;index"`
	FocusSymbols string         `gorm:"column:focus_symbols"`
	Decision     datatypes.JSON `gorm:"column:decision_json"`
	Failed       int            `gorm:"column:failed;index"`
	ErrorStage   string         `gorm:"column:error_stage"`
	ErrorKind    string         `gorm:"column:error_kind"`
	StartedAtMS  int64          `gorm:"column:started_at"`
	FinishedAtMS int64          `gorm:"column:finished_at"`
}

func (cycleLogModel) TableName() string { return "cycle_log" }

// CycleLog keeps a compact sqlite index over finalized cycles so history can
// be queried without rescanning the artifact directory.
type CycleLog struct {
	db *gorm.DB
}

func NewCycleLog(path string) (*CycleLog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("cycle log: 路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	// DriverName 指向 modernc 的纯 Go 驱动，避免 cgo 依赖。
	db, err := gorm.Open(&sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&cycleLogModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: 单进程写入，低并发即可。
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &CycleLog{db: db}, nil
}

func (l *CycleLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Append records one finalized cycle. Callers treat failures as best-effort:
// the JSON artifact on disk remains the source of truth.
func (l *CycleLog) Append(ctx context.Context, art *contracts.CycleArtifact) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("cycle log 未初始化")
	}
	if art == nil || art.CycleID == "" {
		return fmt.Errorf("cycle log: artifact 缺少 cycle_id")
	}
	model := cycleLogModel{
		CycleID:      art.CycleID,
		Query:        art.Query,
		StartedAtMS:  art.StartedAt.UnixMilli(),
		FinishedAtMS: art.FinishedAt.UnixMilli(),
	}
	if art.FinalDecision != nil {
		model.Action = string(art.FinalDecision.Action)
		if raw, err := json.Marshal(art.FinalDecision); err == nil {
			model.Decision = datatypes.JSON(raw)
		}
	}
	if art.FocusSelection != nil {
		model.FocusSymbols = strings.Join(art.FocusSelection.FocusSymbols, ",")
	}
	if art.Failed() {
		model.Failed = 1
		model.ErrorStage = art.Error.Stage
		model.ErrorKind = art.Error.Kind
	}
	return l.db.WithContext(ctx).Create(&model).Error
}

// Recent returns up to limit finalized cycles, newest first.
func (l *CycleLog) Recent(ctx context.Context, limit int) ([]CycleRecord, error) {
	if l == nil || l.db == nil {
		return nil, fmt.Errorf("cycle log 未初始化")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var models []cycleLogModel
	if err := l.db.WithContext(ctx).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]CycleRecord, 0, len(models))
	for _, m := range models {
		rec := CycleRecord{
			CycleID:    m.CycleID,
			Query:      m.Query,
			Action:     m.Action,
			Failed:     m.Failed != 0,
			ErrorStage: m.ErrorStage,
			ErrorKind:  m.ErrorKind,
			StartedAt:  time.UnixMilli(m.StartedAtMS),
			FinishedAt: time.UnixMilli(m.FinishedAtMS),
		}
		if m.FocusSymbols != "" {
			rec.FocusSymbols = strings.Split(m.FocusSymbols, ",")
		}
		out = append(out, rec)
	}
	return out, nil
}
