// Package config reads atlas settings from viper: the config file,
// environment variables and .env files loaded by the CLI.
package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/expression"
)

// Config keys.
const (
	KeyDataset           = "dataset"
	KeyTarget            = "target"
	KeyStrict            = "strict"
	KeyPolicyMetric      = "policy.metric"
	KeyPolicyThreshold   = "policy.threshold"
	KeyPolicyMaxPValue   = "policy.max_p_value"
	KeyPolicyMinCells    = "policy.min_cells"
	KeyPolicyPseudocount = "policy.pseudocount"
)

// GetString is a helper to get string values from Viper.
// It checks both OS environment variables and Viper configuration.
func GetString(key string) string {
	osValue := os.Getenv(key)
	viperValue := viper.GetString(key)

	// If Viper doesn't have it but OS does, return OS value
	if viperValue == "" && osValue != "" {
		return osValue
	}
	return viperValue
}

// DatasetPath returns the configured manifest path. CTCLATLAS_DATASET takes
// precedence over the config file.
func DatasetPath() string {
	if v := os.Getenv("CTCLATLAS_DATASET"); v != "" {
		return v
	}
	return GetString(KeyDataset)
}

// Target returns the configured default target group, or "" when unset.
func Target() (expression.Group, error) {
	s := viper.GetString(KeyTarget)
	if s == "" {
		return "", nil
	}
	return expression.ParseGroup(s)
}

// Policy overlays the policy keys that are set in viper on base.
func Policy(base compare.Policy) (compare.Policy, error) {
	p := base
	if viper.IsSet(KeyPolicyMetric) {
		m, err := compare.ParseMetric(viper.GetString(KeyPolicyMetric))
		if err != nil {
			return p, err
		}
		p.Metric = m
	}
	if viper.IsSet(KeyPolicyThreshold) {
		p.Threshold = viper.GetFloat64(KeyPolicyThreshold)
	}
	if viper.IsSet(KeyPolicyMaxPValue) {
		p.MaxPValue = viper.GetFloat64(KeyPolicyMaxPValue)
	}
	if viper.IsSet(KeyPolicyMinCells) {
		p.MinCells = viper.GetInt(KeyPolicyMinCells)
	}
	if viper.IsSet(KeyPolicyPseudocount) {
		p.Pseudocount = viper.GetFloat64(KeyPolicyPseudocount)
	}
	return p, p.Validate()
}
