// Package model defines the core data structures for launchchime.
package model

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Volume bounds.
const (
	MinVolume     = 0.0
	MaxVolume     = 1.0
	DefaultVolume = 1.0
)

// NoSound is the reserved catalog entry meaning "no sound selected".
// It never resolves to a playable asset.
const NoSound = "None"

// AppConfig describes one monitored application.
// Field names are part of the persisted format.
type AppConfig struct {
	ID               string  `json:"id"`
	AppName          string  `json:"appName"`
	BundleIdentifier string  `json:"bundleIdentifier"`
	AppPath          string  `json:"appPath"` // icon lookup only, never used for matching
	SoundFileName    string  `json:"soundFileName"`
	IsActivated      bool    `json:"isActivated"`
	Volume           float64 `json:"volume"`
}

// Validation errors.
var (
	ErrEmptyID               = errors.New("id cannot be empty")
	ErrEmptyBundleIdentifier = errors.New("bundle identifier cannot be empty")
)

// NewID returns a fresh opaque identifier.
func NewID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

// NewAppConfig creates an activated AppConfig at full volume with a generated ID.
func NewAppConfig(appName, bundleID, appPath, soundFileName string) (*AppConfig, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		ID:               id,
		AppName:          appName,
		BundleIdentifier: strings.TrimSpace(bundleID),
		AppPath:          appPath,
		SoundFileName:    soundFileName,
		IsActivated:      true,
		Volume:           DefaultVolume,
	}, nil
}

// Validate checks that the config has the fields required for identity.
func (c *AppConfig) Validate() error {
	if c.ID == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(c.BundleIdentifier) == "" {
		return ErrEmptyBundleIdentifier
	}
	return nil
}

// SetVolume stores v clamped to [MinVolume, MaxVolume].
func (c *AppConfig) SetVolume(v float64) {
	c.Volume = ClampVolume(v)
}

// HasSound reports whether the config carries a playable sound reference.
func (c *AppConfig) HasSound() bool {
	return IsPlayableSound(c.SoundFileName)
}

// ShouldPlay reports whether a launch of this app produces a sound.
func (c *AppConfig) ShouldPlay() bool {
	return c.IsActivated && c.HasSound()
}

// UnmarshalJSON decodes an AppConfig, filling defaults for fields that older
// records may lack and clamping the volume.
func (c *AppConfig) UnmarshalJSON(data []byte) error {
	type plain AppConfig
	decoded := plain{
		IsActivated: true,
		Volume:      DefaultVolume,
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*c = AppConfig(decoded)
	c.Volume = ClampVolume(c.Volume)
	return nil
}

// ClampVolume limits v to [MinVolume, MaxVolume]. NaN maps to DefaultVolume.
func ClampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultVolume
	}
	if v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

// IsPlayableSound reports whether name refers to an asset rather than the
// empty string or the NoSound sentinel.
func IsPlayableSound(name string) bool {
	return name != "" && name != NoSound
}
