// Package token implements the token session manager: acquisition of OAuth
// credentials via the device authorization grant or an offline refresh token,
// local signature validation, and stage-partitioned persistence of the
// resulting token pairs.
package token

import (
	"fmt"
	"strings"
)

// Stage identifies a deployment environment. Cached credentials are
// partitioned by stage so one token file can serve every environment.
type Stage string

const (
	StageTest Stage = "TEST"
	StageDev  Stage = "DEV"
	StageStg  Stage = "STAGE"
	StageProd Stage = "PROD"
)

// AllStages lists every valid stage in a stable order.
var AllStages = []Stage{StageTest, StageDev, StageStg, StageProd}

// ParseStage converts a stage name into a Stage value. Matching is
// case-insensitive.
func ParseStage(name string) (Stage, error) {
	candidate := Stage(strings.ToUpper(strings.TrimSpace(name)))
	for _, stage := range AllStages {
		if candidate == stage {
			return stage, nil
		}
	}
	return "", &ConfigError{Reason: fmt.Sprintf("stage %q is not one of %v", name, AllStages)}
}

// FlowMode selects how the manager obtains credentials when none are cached.
type FlowMode string

const (
	// FlowDevice runs the OAuth 2.0 device authorization grant, requiring
	// interactive operator approval in a browser.
	FlowDevice FlowMode = "DEVICE"
	// FlowOffline exchanges a pre-issued long-lived refresh token. No
	// refresh token is ever written back to storage in this mode.
	FlowOffline FlowMode = "OFFLINE"
)

// ParseFlowMode converts a mode name into a FlowMode value.
func ParseFlowMode(name string) (FlowMode, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case string(FlowDevice), "":
		return FlowDevice, nil
	case string(FlowOffline):
		return FlowOffline, nil
	}
	return "", &ConfigError{Reason: fmt.Sprintf("auth mode %q is not one of [DEVICE OFFLINE]", name)}
}

// TokenPair holds the credentials for one stage. AccessToken is always
// present; RefreshToken is empty in offline mode.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Clone returns a copy of the pair, or nil for a nil receiver.
func (p *TokenPair) Clone() *TokenPair {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// StageTokens maps each stage to its cached token pair. Every stage key is
// present; a nil value means no credentials are cached for that stage.
type StageTokens map[Stage]*TokenPair

// NewStageTokens returns a store with all stages present and unset.
func NewStageTokens() StageTokens {
	tokens := make(StageTokens, len(AllStages))
	for _, stage := range AllStages {
		tokens[stage] = nil
	}
	return tokens
}

// Normalize ensures every stage key exists, inserting nil entries for any
// that are missing (e.g. after decoding a hand-edited file).
func (s StageTokens) Normalize() {
	for _, stage := range AllStages {
		if _, ok := s[stage]; !ok {
			s[stage] = nil
		}
	}
}

// StripRefreshTokens removes the refresh token from every entry. Called
// before persistence in offline mode so long-lived tokens never reach the
// cache.
func (s StageTokens) StripRefreshTokens() {
	for stage, pair := range s {
		if pair != nil && pair.RefreshToken != "" {
			stripped := *pair
			stripped.RefreshToken = ""
			s[stage] = &stripped
		}
	}
}

// Clone returns a deep copy of the store.
func (s StageTokens) Clone() StageTokens {
	clone := make(StageTokens, len(s))
	for stage, pair := range s {
		clone[stage] = pair.Clone()
	}
	return clone
}
