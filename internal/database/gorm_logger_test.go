package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchbaselabs/identitystore/internal/bucket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestMissingKeyLookupLogsNothing(testContext *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	db, err := OpenSQLite(filepath.Join(testContext.TempDir(), "quiet.db"), zap.New(core))
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	documents, err := NewDocumentBucket(DocumentBucketConfig{Database: db, Name: "identity"})
	if err != nil {
		testContext.Fatalf("failed to build document bucket: %v", err)
	}

	result, err := documents.Get(context.Background(), "absent")
	if err != nil {
		testContext.Fatalf("get failed: %v", err)
	}
	if result.Status != bucket.StatusKeyNotFound {
		testContext.Fatalf("expected KeyNotFound, got %s", result.Status)
	}
	if entries := logs.FilterLoggerName("gorm").FilterLevelExact(zapcore.ErrorLevel).All(); len(entries) != 0 {
		testContext.Fatalf("expected no gorm error entries, got %v", entries)
	}
}

func TestFailedStatementLogsThroughZap(testContext *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	db, err := OpenSQLite(filepath.Join(testContext.TempDir(), "loud.db"), zap.New(core))
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := db.Exec("SELECT * FROM no_such_table").Error; err == nil {
		testContext.Fatalf("expected the statement to fail")
	}
	entries := logs.FilterMessage("gorm query failed").All()
	if len(entries) != 1 {
		testContext.Fatalf("expected one gorm failure entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "gorm" || entries[0].Level != zapcore.ErrorLevel {
		testContext.Fatalf("unexpected entry %+v", entries[0])
	}
}

func TestSilencedGormLoggerDropsFailures(testContext *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	quiet := newGormLogger(zap.New(core)).LogMode(gormlogger.Silent)
	quiet.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("disk I/O error"))
	quiet.Error(context.Background(), "ignored %d", 1)
	if logs.Len() != 0 {
		testContext.Fatalf("expected silent mode to drop everything, got %d entries", logs.Len())
	}
}
