package config

import (
	"errors"
	"os"
	"strings"

	"github.com/agentforge/orchestrator/pkg/models"
)

// ErrNoCredential is returned when an agent's configured credential
// environment variable is unset or empty.
var ErrNoCredential = errors.New("no credential configured for agent")

// ResolveCredential looks up agent's API key from env, a plain map of
// environment variable name to value rather than the live process
// environment, so the lookup is a pure function and easy to test.
func ResolveCredential(agent models.AgentConfig, env map[string]string) (string, error) {
	if agent.CredentialEnvVar == "" {
		return "", ErrNoCredential
	}

	value := strings.TrimSpace(env[agent.CredentialEnvVar])
	if value == "" {
		return "", ErrNoCredential
	}

	return value, nil
}

// ResolveCredentialFromProcessEnv is the thin, impure wrapper production
// code calls; it snapshots the names an agent roster actually references
// and delegates to ResolveCredential.
func ResolveCredentialFromProcessEnv(agent models.AgentConfig) (string, error) {
	env := map[string]string{}
	if agent.CredentialEnvVar != "" {
		env[agent.CredentialEnvVar] = os.Getenv(agent.CredentialEnvVar)
	}
	return ResolveCredential(agent, env)
}

// MaskCredential returns a display-safe version of a secret, showing
// only its last four characters.
func MaskCredential(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return "***" + secret[len(secret)-4:]
}
