package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/lumina-photos/face-detect/pkg/types"
)

// Defaults applied whenever an environment value is absent, empty or
// malformed. Resolution never fails: a bad value means the default.
const (
	DefaultModel    = "buffalo_l"
	DefaultProvider = "CPUExecutionProvider"
	DefaultCtxID    = -1

	DefaultBackend   = "server"
	DefaultServerURL = "http://localhost:8008"
	DefaultScriptCmd = "face-runner"
	DefaultModelsDir = "./models"
)

// DefaultDetSize is the detector input size used when
// LUMINA_INSIGHTFACE_DET_SIZE is unset or unparsable.
var DefaultDetSize = types.Size{W: 640, H: 640}

// Config holds the resolved runtime configuration for one invocation.
type Config struct {
	Model     string
	Providers []string
	CtxID     int
	DetSize   types.Size

	// Collaborator transport. ScriptCmd is split on whitespace when the
	// script backend starts, so it cannot name a path containing spaces.
	Backend   string
	ServerURL string
	ScriptCmd string
	ModelsDir string
}

// FromEnv resolves configuration from the environment. It is total: every
// field falls back to its default on any parse failure, so startup can
// never be blocked by a bad override.
func FromEnv() *Config {
	return &Config{
		Model:     getEnv("LUMINA_INSIGHTFACE_MODEL", DefaultModel),
		Providers: parseProviders(getEnv("LUMINA_INSIGHTFACE_PROVIDERS", DefaultProvider)),
		CtxID:     parseCtxID(getEnv("LUMINA_INSIGHTFACE_CTX_ID", strconv.Itoa(DefaultCtxID))),
		DetSize:   parseDetSize(getEnv("LUMINA_INSIGHTFACE_DET_SIZE", "640,640")),
		Backend:   getEnv("LUMINA_INSIGHTFACE_BACKEND", DefaultBackend),
		ServerURL: getEnv("LUMINA_INSIGHTFACE_URL", DefaultServerURL),
		ScriptCmd: getEnv("LUMINA_INSIGHTFACE_SCRIPT", DefaultScriptCmd),
		ModelsDir: getEnv("LUMINA_INSIGHTFACE_MODELS_DIR", DefaultModelsDir),
	}
}

// getEnv returns the named variable, or def when it is unset or blank.
func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// parseProviders splits a comma-separated provider list, dropping empty
// segments. An empty result falls back to the single default provider.
func parseProviders(csv string) []string {
	var providers []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			providers = append(providers, p)
		}
	}
	if len(providers) == 0 {
		return []string{DefaultProvider}
	}
	return providers
}

func parseCtxID(s string) int {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultCtxID
	}
	return id
}

// parseDetSize parses a "W,H" pair. Both dimensions must be positive
// integers; anything else yields the default size.
func parseDetSize(s string) types.Size {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return DefaultDetSize
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return DefaultDetSize
	}
	return types.Size{W: w, H: h}
}
