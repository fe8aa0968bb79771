package configs

// Settings holds the compile-time toggles spec.md §6 calls out:
// infanticide, debug tracing, the default quantum, and the scheduling
// policy. They are "compile-time" in the sense that a program run never
// changes them mid-flight; loading them from an optional CUE file is this
// codebase's stand-in for recompiling the interpreter with different
// constants.
type Settings struct {
	Infanticide bool   `json:"infanticide"`
	Debug       string `json:"debug"`    // "off", "trace", or "interactive"
	Quantum     int    `json:"quantum"`  // 0: run-to-suspend, <0: random[1,128], >0: fixed
	Schedule    string `json:"schedule"` // "process-fair" or "thread-fair"
}

// DefaultSettings matches spec.md's compiled-in defaults: infanticide
// enabled, debug tracing off, DEFAULTQUANTA, process-fair scheduling.
func DefaultSettings() Settings {
	return Settings{
		Infanticide: true,
		Debug:       "off",
		Quantum:     10,
		Schedule:    "process-fair",
	}
}

// SettingsSchema constrains the CUE file accepted by LoadSettings.
const SettingsSchema = `
infanticide?: bool
debug?:       "off" | "trace" | "interactive"
quantum?:     int
schedule?:    "process-fair" | "thread-fair"
`

// LoadSettings reads Settings from the given CUE file, filling in
// DefaultSettings for any field it does not define. A missing path is
// not an error: an absent or empty filePath simply yields the defaults.
func LoadSettings(filePath string) (Settings, error) {
	settings := DefaultSettings()
	if filePath == "" {
		return settings, nil
	}

	loader := NewLoader([]string{filePath}, SettingsSchema)

	if err := assignIfPresent(loader, "infanticide", &settings.Infanticide); err != nil {
		return settings, err
	}
	if err := assignIfPresent(loader, "debug", &settings.Debug); err != nil {
		return settings, err
	}
	if err := assignIfPresent(loader, "quantum", &settings.Quantum); err != nil {
		return settings, err
	}
	if err := assignIfPresent(loader, "schedule", &settings.Schedule); err != nil {
		return settings, err
	}

	return settings, nil
}

func assignIfPresent(loader Loader, path string, target any) error {
	err := loader.AssignFirst(path, target)
	if err == ErrValueNotFound {
		return nil
	}
	return err
}
