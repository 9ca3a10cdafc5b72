package mal

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("anistats.lib.scrapers.mal")
