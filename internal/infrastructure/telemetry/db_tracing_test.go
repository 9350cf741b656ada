package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type tracedProduct struct {
	ID    uint `gorm:"primaryKey"`
	Stock int
}

func openTracedDB(t *testing.T, cfg DBTracingConfig, log *zap.Logger) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, RegisterDBTracing(db, cfg, log))
	require.NoError(t, db.AutoMigrate(&tracedProduct{}))
	return db
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db := openTracedDB(t, DBTracingConfig{}, zap.NewNop())
	assert.Nil(t, db.Callback().Query().Get("telemetry:after_query"))
}

func TestRegisterDBTracing_AnnotatesSpans(t *testing.T) {
	recorder := installRecorder(t)
	db := openTracedDB(t, DBTracingConfig{Enabled: true, SlowQueryThresh: time.Hour}, zap.NewNop())
	require.NoError(t, db.Create(&tracedProduct{ID: 1, Stock: 2}).Error)

	ctx, parent := StartServiceSpan(context.Background(), "order", "reserve")
	res := db.WithContext(ctx).Model(&tracedProduct{}).
		Where("id = ? AND stock + ? >= 0", 1, -5).
		UpdateColumn("stock", gorm.Expr("stock + ?", -5))
	parent.End()
	require.NoError(t, res.Error)
	assert.Equal(t, int64(0), res.RowsAffected)

	var children int
	for _, s := range recorder.Ended() {
		if s.Parent().SpanID() != parent.SpanContext().SpanID() {
			continue
		}
		children++
		attrs := attrMap(s.Attributes())
		if v, ok := attrs["db.rows_affected"]; ok {
			assert.Equal(t, int64(0), v.AsInt64())
		}
		_, slow := attrs["db.slow_query"]
		assert.False(t, slow)
	}
	assert.NotZero(t, children, "guarded update should produce a child span")
}

func TestRegisterDBTracing_SlowQueryLogged(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	db := openTracedDB(t, DBTracingConfig{Enabled: true, SlowQueryThresh: time.Nanosecond}, zap.New(core))

	var products []tracedProduct
	require.NoError(t, db.Find(&products).Error)

	assert.NotZero(t, recorded.FilterMessage("slow query").Len())
}
