/*
Package log provides structured logging for the console using zerolog.

The package wraps a global zerolog.Logger with a small configuration surface
and helpers that attach the fields the reconciler and the CRM command layer
log most often.

# Configuration

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stderr,
	})

Until Init is called the global logger discards everything, so library code
and tests can log freely without configuring output.

# Context Loggers

  - WithComponent: component name ("crm", "composite", "manager", ...)
  - WithPlaceholderID: placeholder component logger with the id of an
    AND/OR constraint placeholder

Components create their logger once at construction:

	logger := log.WithComponent("crm")
	logger.Error().
		Str("host", host).
		Str("command", cmd).
		Int("exit_code", res.ExitCode).
		Msg("CRM command failed")

# Levels

Debug is used for per-parameter validation verdicts and resource-set
computations, Info for committed changes, Warn for stale cluster status
that forced a fallback, and Error for remote command failures.
*/
package log
