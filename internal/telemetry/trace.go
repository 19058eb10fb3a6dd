package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrPrincipalID   = "principal.id"
	AttrPrincipalRole = "principal.role"
	AttrSessionID     = "session.id"
	AttrEventKind     = "identity.event"

	AttrRoleTag    = "role.tag"
	AttrRoleTarget = "role.target_principal"

	AttrPolicyAction   = "policy.action"
	AttrPolicyResource = "policy.resource"
	AttrPolicyAllowed  = "policy.allowed"

	AttrAdminDegraded = "admin.degraded"
	AttrAdminRowCount = "admin.row_count"

	AttrHREntity = "hr.entity"
	AttrHRKey    = "hr.key"
)

// StartSpan starts spanName on the tracer named after the calling package,
// e.g. "hrapi/services/roles".
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
