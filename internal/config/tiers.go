package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TierTable maps storage zones and usage kinds to rate tiers. Keys are
// case-insensitive because viper lowercases map keys on load.
type TierTable struct {
	Zones map[string]string `mapstructure:"zones"`
	Kinds map[string]string `mapstructure:"kinds"`
}

func DefaultTierTable() TierTable {
	return TierTable{
		Zones: map[string]string{
			"frozen":  "FrozenStorage",
			"chilled": "ChilledStorage",
			"ambient": "AmbientStorage",
		},
		Kinds: map[string]string{
			"surcharge": "Expedited",
		},
	}
}

// ZoneTier returns the tier configured for a temperature zone, or nil.
func (t TierTable) ZoneTier(zone string) *string {
	return lookupTier(t.Zones, zone)
}

// KindTier returns the tier configured for a usage kind, or nil.
func (t TierTable) KindTier(kind string) *string {
	return lookupTier(t.Kinds, kind)
}

// Clone returns a deep copy so callers can hold the table for a whole run.
func (t TierTable) Clone() TierTable {
	return TierTable{
		Zones: normalizeKeys(t.Zones),
		Kinds: normalizeKeys(t.Kinds),
	}
}

func lookupTier(m map[string]string, key string) *string {
	if len(m) == 0 {
		return nil
	}
	value, ok := m[strings.ToLower(strings.TrimSpace(key))]
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return nil
	}
	return &value
}

func normalizeKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}

// TierConfigHolder keeps the current tier table and swaps it on config reload.
type TierConfigHolder struct {
	current atomic.Value // holds TierTable
}

// NewStaticTierHolder returns a holder that never reloads.
func NewStaticTierHolder(table TierTable) *TierConfigHolder {
	holder := &TierConfigHolder{}
	holder.current.Store(table.Clone())
	return holder
}

func NewTierConfigHolder(log *zap.Logger) (*TierConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.tiers")

	v := viper.New()
	v.SetConfigName("tiers")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/coldstore")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COLDSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultTierTable()
	v.SetDefault("tiers.zones", defaults.Zones)
	v.SetDefault("tiers.kinds", defaults.Kinds)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var table TierTable
	if err := v.UnmarshalKey("tiers", &table); err != nil {
		return nil, err
	}
	if err := validateTierTable(table); err != nil {
		return nil, err
	}

	holder := NewStaticTierHolder(table)
	if !fileLoaded {
		log.Info("tier config file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated TierTable
		if err := v.UnmarshalKey("tiers", &updated); err != nil {
			log.Warn("tier config reload failed", zap.Error(err))
			return
		}
		if err := validateTierTable(updated); err != nil {
			log.Warn("invalid tier config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated.Clone())
		log.Info("tier config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// Get returns a private copy of the current table.
func (h *TierConfigHolder) Get() TierTable {
	return h.current.Load().(TierTable).Clone()
}

func validateTierTable(t TierTable) error {
	for zone, tier := range t.Zones {
		if strings.TrimSpace(zone) == "" {
			return errors.New("tiers.zones contains an empty zone name")
		}
		if strings.TrimSpace(tier) == "" {
			return errors.New("tiers.zones." + zone + " has an empty tier")
		}
	}
	for kind := range t.Kinds {
		if strings.TrimSpace(kind) == "" {
			return errors.New("tiers.kinds contains an empty kind")
		}
	}
	return nil
}
