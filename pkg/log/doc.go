/*
Package log provides structured logging for Loft built on zerolog.

Call Init once at startup, then derive child loggers scoped to a
component, agent, or workspace:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("reconcile")
	logger.Info().Str("workspace", ws.Name).Msg("workspace updated")

Console output (human readable) is the default; JSON output is intended
for production where logs are shipped to an aggregator.
*/
package log
