package config

// ChangeSet describes what changed between two configs. Log level is applied
// live; a pipeline change is only reported, since running sessions keep the
// defaults they started with. Everything else (listen address, provider
// credentials, history DSN) requires a restart and is not tracked.
type ChangeSet struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	PipelineChanged bool
	NewPipeline     PipelineConfig
}

// Empty reports whether no hot-reloadable field changed.
func (c ChangeSet) Empty() bool {
	return !c.LogLevelChanged && !c.PipelineChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ChangeSet {
	var c ChangeSet

	if old.Server.LogLevel != new.Server.LogLevel {
		c.LogLevelChanged = true
		c.NewLogLevel = new.Server.LogLevel
	}

	if old.Pipeline != new.Pipeline {
		c.PipelineChanged = true
		c.NewPipeline = new.Pipeline
	}

	return c
}
