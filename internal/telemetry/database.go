package telemetry

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey      = "otel:span"
	startTimeKey = "otel:startTime"
	maxStatement = 500
)

// GormPlugin traces every gorm create, query, update, delete and raw call
// as a child of the request span. system is the db.system attribute
// ("postgresql", "sqlite").
func GormPlugin(system string) gorm.Plugin {
	return &gormTracing{tracer: otel.Tracer("gorm"), system: system}
}

type gormTracing struct {
	tracer trace.Tracer
	system string
}

func (p *gormTracing) Name() string {
	return "telemetry:tracing"
}

func (p *gormTracing) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	before := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) { p.start(tx, op) }
	}

	// gorm's processor types are unexported, so each hook is spelled out
	errs := []error{
		cb.Create().Before("gorm:create").Register("telemetry:before_create", before("INSERT")),
		cb.Query().Before("gorm:query").Register("telemetry:before_query", before("SELECT")),
		cb.Update().Before("gorm:update").Register("telemetry:before_update", before("UPDATE")),
		cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", before("DELETE")),
		cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", before("RAW")),

		cb.Create().After("gorm:create").Register("telemetry:after_create", p.end),
		cb.Query().After("gorm:query").Register("telemetry:after_query", p.end),
		cb.Update().After("gorm:update").Register("telemetry:after_update", p.end),
		cb.Delete().After("gorm:delete").Register("telemetry:after_delete", p.end),
		cb.Raw().After("gorm:raw").Register("telemetry:after_raw", p.end),
	}
	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("failed to register tracing callback: %w", err)
		}
	}
	return nil
}

func (p *gormTracing) start(tx *gorm.DB, op string) {
	ctx := tx.Statement.Context
	if ctx == nil || !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		// no request span to hang off; skip background work such as migrations
		return
	}
	table := tx.Statement.Table
	if table == "" {
		table = "unknown"
	}
	_, span := p.tracer.Start(ctx, "db."+table,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", p.system),
			attribute.String("db.sql.table", table),
			attribute.String("db.operation", op),
		),
	)
	tx.InstanceSet(spanKey, span)
	tx.InstanceSet(startTimeKey, time.Now())
}

func (p *gormTracing) end(tx *gorm.DB) {
	raw, ok := tx.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := raw.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if started, ok := tx.InstanceGet(startTimeKey); ok {
		if t, ok := started.(time.Time); ok {
			span.SetAttributes(attribute.Int64("db.duration_ms", time.Since(t).Milliseconds()))
		}
	}
	if sql := tx.Statement.SQL.String(); sql != "" {
		if len(sql) > maxStatement {
			sql = sql[:maxStatement] + "... (truncated)"
		}
		span.SetAttributes(attribute.String("db.statement", sql))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", tx.RowsAffected))
	if tx.Error != nil && tx.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}
}
