// Package config resolves run settings from three layers: command-line
// flags win over an optional dotenv file, which wins over process
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for one run.
type Config struct {
	SonarURL     string
	SonarToken   string
	SonarProject string
	PullRequest  string

	Provider  string // mistral or mock
	Model     string
	AIAPIKey  string
	AIBaseURL string

	HostKind    string // gitlab or github
	HostURL     string
	HostToken   string
	HostProject string // gitlab project path or github owner/repo

	TargetBranch string
	WorkBranch   string
	BatchSize    int
	Limit        int
	DryRun       bool
	CreateMR     bool

	RepoRoot        string
	PromptOverrides string
	TrackerPath     string
	NoCache         bool
}

// Flags carries the raw flag values from the command line. Empty strings
// and zero ints mean the flag was not set and lower layers apply.
type Flags struct {
	EnvFile string

	SonarURL     string
	SonarToken   string
	SonarProject string
	PullRequest  string

	Provider  string
	Model     string
	AIAPIKey  string
	AIBaseURL string

	HostKind    string
	HostURL     string
	HostToken   string
	HostProject string

	TargetBranch string
	WorkBranch   string
	BatchSize    int
	Limit        int
	DryRun       bool
	CreateMR     bool

	RepoRoot        string
	PromptOverrides string
	TrackerPath     string
	NoCache         bool
}

// resolver looks up one setting across the three layers.
type resolver struct {
	file   *viper.Viper // nil when no env file was given
	getenv func(string) string
}

func newResolver(envFile string) (*resolver, error) {
	r := &resolver{getenv: os.Getenv}
	if envFile == "" {
		return r, nil
	}

	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("dotenv")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read env file %s: %w", envFile, err)
	}
	r.file = v
	return r, nil
}

// value resolves one string setting: flag, then env file, then environment.
func (r *resolver) value(flagValue, key string) string {
	if flagValue != "" {
		return flagValue
	}
	if r.file != nil {
		if v := r.file.GetString(key); v != "" {
			return v
		}
	}
	return r.getenv(key)
}

func (r *resolver) intValue(flagValue int, key string, fallback int) int {
	if flagValue > 0 {
		return flagValue
	}
	if raw := r.value("", key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Resolve merges flags, the optional env file, and the environment into a
// Config with defaults applied. It does not validate; call Validate on the
// result.
func Resolve(flags Flags) (*Config, error) {
	r, err := newResolver(flags.EnvFile)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SonarURL:     r.value(flags.SonarURL, "SONAR_URL"),
		SonarToken:   r.value(flags.SonarToken, "SONAR_TOKEN"),
		SonarProject: r.value(flags.SonarProject, "SONAR_PROJECT"),
		PullRequest:  r.value(flags.PullRequest, "SONAR_PULL_REQUEST"),

		Provider:  orDefault(r.value(flags.Provider, "AI_PROVIDER"), "mistral"),
		Model:     orDefault(r.value(flags.Model, "AI_MODEL"), "mistral-small"),
		AIAPIKey:  r.value(flags.AIAPIKey, "MISTRAL_API_KEY"),
		AIBaseURL: r.value(flags.AIBaseURL, "AI_BASE_URL"),

		HostKind:    orDefault(r.value(flags.HostKind, "HOST_KIND"), "gitlab"),
		HostURL:     r.value(flags.HostURL, "HOST_URL"),
		HostToken:   r.value(flags.HostToken, "HOST_TOKEN"),
		HostProject: r.value(flags.HostProject, "HOST_PROJECT"),

		// TargetBranch stays empty when unset so the CLI can fall back
		// to the local checkout's branch before defaulting to main.
		TargetBranch: r.value(flags.TargetBranch, "TARGET_BRANCH"),
		WorkBranch:   r.value(flags.WorkBranch, "WORK_BRANCH"),
		BatchSize:    r.intValue(flags.BatchSize, "BATCH_SIZE", 10),
		Limit:        r.intValue(flags.Limit, "ISSUE_LIMIT", 10),
		DryRun:       flags.DryRun,
		CreateMR:     flags.CreateMR,

		RepoRoot:        orDefault(r.value(flags.RepoRoot, "REPO_ROOT"), "."),
		PromptOverrides: r.value(flags.PromptOverrides, "PROMPT_OVERRIDES"),
		TrackerPath:     r.value(flags.TrackerPath, "TRACKER_PATH"),
		NoCache:         flags.NoCache,
	}
	return cfg, nil
}
