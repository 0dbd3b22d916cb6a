package log

// LoggerConfig is the logging section of the process-wide GlobalConfig
// (SPEC_FULL.md §2.1): level, console formatting, and an optional
// rotating file appender.
type LoggerConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`
	Console bool             `mapstructure:"console" yaml:"console"`
	Colors  bool             `mapstructure:"colors" yaml:"colors"`
	File    *FileAppenderOpt `mapstructure:"file,omitempty" yaml:"file,omitempty"`
}

// FormatterConfig tunes the console formatter's presentation.
type FormatterConfig struct {
	EnableColors   bool `mapstructure:"enable_colors,omitempty" yaml:"enable_colors,omitempty"`
	FullTimestamp  bool `mapstructure:"full_timestamp,omitempty" yaml:"full_timestamp,omitempty"`
	DisableSorting bool `mapstructure:"disable_sorting,omitempty" yaml:"disable_sorting,omitempty"`
}

// DefaultConfig is used when no "log" section is present in the
// loaded GlobalConfig.
var DefaultConfig = LoggerConfig{
	Level:   "info",
	Console: true,
	Colors:  true,
}
