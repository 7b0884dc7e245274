package core

// Materialization constants for resource configs.
const (
	MaterializationTable       = "table"
	MaterializationView        = "view"
	MaterializationIncremental = "incremental"
	MaterializationEphemeral   = "ephemeral"
	MaterializationSeed        = "seed"
	MaterializationSnapshot    = "snapshot"
	MaterializationTest        = "test"
)

// OnSchemaChange options for incremental models.
const (
	OnSchemaChangeIgnore           = "ignore"
	OnSchemaChangeFail             = "fail"
	OnSchemaChangeAppendNewColumns = "append_new_columns"
	OnSchemaChangeSyncAllColumns   = "sync_all_columns"
)

// OnConfigurationChange options for materialized views and dynamic tables.
const (
	OnConfigurationChangeApply    = "apply"
	OnConfigurationChangeContinue = "continue"
	OnConfigurationChangeFail     = "fail"
)

// IsOnConfigurationChange reports whether s is a known on_configuration_change option.
func IsOnConfigurationChange(s string) bool {
	switch s {
	case OnConfigurationChangeApply, OnConfigurationChangeContinue, OnConfigurationChangeFail:
		return true
	}
	return false
}

// Snapshot strategies with built-in validation. Any other value is a custom strategy.
const (
	SnapshotStrategyTimestamp = "timestamp"
	SnapshotStrategyCheck     = "check"
)

// CheckColsAll is the check_cols sentinel meaning every column.
const CheckColsAll = "all"

// Store-failures-as options for tests.
const (
	StoreFailuresEphemeral = "ephemeral"
	StoreFailuresTable     = "table"
	StoreFailuresView      = "view"
)
