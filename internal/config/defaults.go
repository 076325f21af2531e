package config

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

type wrapperDefaultApplier struct{}

func (wrapperDefaultApplier) Domain() string { return "create_wrapper_folder" }

func (wrapperDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.WrapperFolder.Index == "" {
		cfg.WrapperFolder.Index = DefaultIndexFile
	}
}

type composeDefaultApplier struct{}

func (composeDefaultApplier) Domain() string { return "compose" }

func (composeDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Compose.MaxDepth <= 0 {
		cfg.Compose.MaxDepth = DefaultMaxDepth
	}
}

type scriptsDefaultApplier struct{}

func (scriptsDefaultApplier) Domain() string { return "scripts" }

func (scriptsDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Scripts.Timeout <= 0 {
		cfg.Scripts.Timeout = DefaultScriptTimeout
	}
}

type buildDefaultApplier struct{}

func (buildDefaultApplier) Domain() string { return "build" }

func (buildDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Build.Workers <= 0 {
		cfg.Build.Workers = DefaultWorkers
	}
}

var defaultAppliers = []DefaultApplier{
	wrapperDefaultApplier{},
	composeDefaultApplier{},
	scriptsDefaultApplier{},
	buildDefaultApplier{},
}

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) {
	for _, a := range defaultAppliers {
		a.ApplyDefaults(cfg)
	}
}
