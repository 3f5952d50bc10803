package constants

const (
	EnvLogLevel = "RULEMORPH_LOG_LEVEL"
	EnvDebug    = "RULEMORPH_DEBUG"
)

const (
	// APPNAME is the program name used for config discovery and logging.
	APPNAME = "rulemorph"

	// ConfigFileExtension is the extension of the optional engine config file.
	ConfigFileExtension = "toml"
)
