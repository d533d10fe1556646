// Package settings holds the user preferences: which devices to suppress on
// join, whether to auto-join waiting rooms, and the countdown timings. The
// persisted copy lives in the shared store as one JSON value per key;
// environment variables seed the values on first run.
package settings

import (
	"encoding/json"
	"fmt"

	"github.com/mstoykov/envconfig"
	"gopkg.in/guregu/null.v3"

	"github.com/automeet/automeet/internal/store"
)

// Preference defaults and bounds. Only the announcement interval carries an
// enforced range; the countdown duration is whatever the user asks for, with
// anything below one second meaning "join immediately".
const (
	DefaultCountdownDuration = 10
	DefaultAnnounceInterval  = 5
	MinAnnounceInterval      = 1
	MaxAnnounceInterval      = 30
)

// Preferences are the persisted user preferences. All fields are nullable so
// a partial update (PATCH body, environment, stored subset) can be told apart
// from an explicit value.
type Preferences struct {
	DisableMic              null.Bool `json:"disableMic" envconfig:"AUTOMEET_DISABLE_MIC"`
	DisableVideo            null.Bool `json:"disableVideo" envconfig:"AUTOMEET_DISABLE_VIDEO"`
	AutoJoin                null.Bool `json:"autoJoin" envconfig:"AUTOMEET_AUTO_JOIN"`
	CountdownDuration       null.Int  `json:"countdownDuration" envconfig:"AUTOMEET_COUNTDOWN_DURATION"`
	TTSAnnouncementInterval null.Int  `json:"ttsAnnouncementInterval" envconfig:"AUTOMEET_TTS_ANNOUNCEMENT_INTERVAL"`
}

// NewPreferences returns the default preferences. Defaults are invalid null
// values so Apply can distinguish them from explicit user choices.
func NewPreferences() Preferences {
	return Preferences{
		DisableMic:              null.NewBool(true, false),
		DisableVideo:            null.NewBool(true, false),
		AutoJoin:                null.NewBool(false, false),
		CountdownDuration:       null.NewInt(DefaultCountdownDuration, false),
		TTSAnnouncementInterval: null.NewInt(DefaultAnnounceInterval, false),
	}
}

// Apply saves non-null values from the passed preferences in the receiver.
func (p Preferences) Apply(cfg Preferences) Preferences {
	if cfg.DisableMic.Valid {
		p.DisableMic = cfg.DisableMic
	}
	if cfg.DisableVideo.Valid {
		p.DisableVideo = cfg.DisableVideo
	}
	if cfg.AutoJoin.Valid {
		p.AutoJoin = cfg.AutoJoin
	}
	if cfg.CountdownDuration.Valid {
		p.CountdownDuration = cfg.CountdownDuration
	}
	if cfg.TTSAnnouncementInterval.Valid {
		p.TTSAnnouncementInterval = cfg.TTSAnnouncementInterval
	}
	return p
}

// CountdownSeconds returns the configured countdown duration. Values below
// one second mean the join happens immediately, without a countdown.
func (p Preferences) CountdownSeconds() int64 {
	return p.CountdownDuration.Int64
}

// AnnounceIntervalSeconds returns the announcement interval clamped to
// [MinAnnounceInterval, MaxAnnounceInterval]. Clamping happens on read so a
// corrupt stored value can never zero the announcement cadence.
func (p Preferences) AnnounceIntervalSeconds() int64 {
	v := p.TTSAnnouncementInterval.Int64
	if v < MinAnnounceInterval {
		return MinAnnounceInterval
	}
	if v > MaxAnnounceInterval {
		return MaxAnnounceInterval
	}
	return v
}

// storedKeys maps each preference field to its store key, in the order the
// fields are declared.
var storedKeys = []string{
	store.KeyDisableMic,
	store.KeyDisableVideo,
	store.KeyAutoJoin,
	store.KeyCountdownDuration,
	store.KeyAnnounceInterval,
}

// StoredKeys returns the store keys that hold preference values.
func StoredKeys() []string {
	keys := make([]string, len(storedKeys))
	copy(keys, storedKeys)
	return keys
}

func (p *Preferences) fieldFor(key string) (json.Unmarshaler, json.Marshaler) {
	switch key {
	case store.KeyDisableMic:
		return &p.DisableMic, p.DisableMic
	case store.KeyDisableVideo:
		return &p.DisableVideo, p.DisableVideo
	case store.KeyAutoJoin:
		return &p.AutoJoin, p.AutoJoin
	case store.KeyCountdownDuration:
		return &p.CountdownDuration, p.CountdownDuration
	case store.KeyAnnounceInterval:
		return &p.TTSAnnouncementInterval, p.TTSAnnouncementInterval
	default:
		return nil, nil
	}
}

// valid reports whether the field behind the given store key holds an
// explicit value.
func (p Preferences) valid(key string) bool {
	switch key {
	case store.KeyDisableMic:
		return p.DisableMic.Valid
	case store.KeyDisableVideo:
		return p.DisableVideo.Valid
	case store.KeyAutoJoin:
		return p.AutoJoin.Valid
	case store.KeyCountdownDuration:
		return p.CountdownDuration.Valid
	case store.KeyAnnounceInterval:
		return p.TTSAnnouncementInterval.Valid
	default:
		return false
	}
}

// FromStore decodes the preference subset of a store snapshot. Keys missing
// from the snapshot stay null.
func FromStore(values map[string]string) (Preferences, error) {
	var p Preferences
	for _, key := range storedKeys {
		raw, ok := values[key]
		if !ok || raw == "" {
			continue
		}
		target, _ := p.fieldFor(key)
		if err := target.UnmarshalJSON([]byte(raw)); err != nil {
			return Preferences{}, fmt.Errorf("stored %s value %q is invalid: %w", key, raw, err)
		}
	}
	return p, nil
}

// ToStore encodes every explicitly set preference as store values. Null
// fields are omitted, which makes partial updates natural: encode the patch,
// Set it, done.
func (p Preferences) ToStore() (map[string]string, error) {
	values := make(map[string]string, len(storedKeys))
	for _, key := range storedKeys {
		if !p.valid(key) {
			continue
		}
		_, source := p.fieldFor(key)
		raw, err := source.MarshalJSON()
		if err != nil {
			return nil, err
		}
		values[key] = string(raw)
	}
	return values, nil
}

// GetConsolidatedPreferences combines the default values with the
// environment and the stored values and returns the final result. The store
// has the last word: it is the canonical settings surface, mutated by the
// config command and the REST API, while environment variables only seed it.
func GetConsolidatedPreferences(stored map[string]string, env map[string]string) (Preferences, error) {
	result := NewPreferences()

	envPrefs := Preferences{}
	if err := envconfig.Process("", &envPrefs, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}); err != nil {
		return result, err
	}
	result = result.Apply(envPrefs)

	storedPrefs, err := FromStore(stored)
	if err != nil {
		return result, err
	}
	result = result.Apply(storedPrefs)

	return result, nil
}
