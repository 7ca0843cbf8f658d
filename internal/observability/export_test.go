package observability

// InitLoggerTo exposes initLogger for tests that capture output.
var InitLoggerTo = initLogger
