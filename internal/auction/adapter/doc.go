// Package adapter implements the auction repository on PostgreSQL.
package adapter

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("auction/adapter")
