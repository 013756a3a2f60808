package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/tier"
)

// LoadTierRules reads the tier rules file. An empty path or a missing file
// yields the built-in defaults.
func LoadTierRules(path string) (tier.Rules, error) {
	if path == "" {
		return tier.DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return tier.DefaultRules(), nil
	}
	if err != nil {
		return tier.Rules{}, fmt.Errorf("read tier rules: %w", err)
	}
	return ParseTierRules(data)
}

// ParseTierRules decodes YAML over the defaults and validates the result
func ParseTierRules(data []byte) (tier.Rules, error) {
	rules := tier.DefaultRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return tier.Rules{}, fmt.Errorf("parse tier rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return tier.Rules{}, fmt.Errorf("invalid tier rules: %w", err)
	}
	return rules, nil
}

// ParseTokens turns "token:role" pairs into a token lookup
func ParseTokens(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		var token, role string
		if i := strings.LastIndexByte(pair, ':'); i >= 0 {
			token, role = pair[:i], pair[i+1:]
		}
		if token == "" || (role != "admin" && role != "viewer") {
			return nil, fmt.Errorf("invalid token entry %q, want token:admin or token:viewer", pair)
		}
		out[token] = role
	}
	return out, nil
}
