package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"plantaton/internal/domain"
	"plantaton/internal/logger"
	"plantaton/internal/repository"

	redis "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

const (
	settingsCacheKey   = "plantaton:settings"
	settingsVersionKey = "plantaton:settings:version"
	settingsCacheTTL   = 5 * time.Minute
)

// cacheSettingsScript stores the payload only when its version is not older
// than the last written one.
var cacheSettingsScript = redis.NewScript(`
local floor = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[1]) < floor then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// dropSettingsScript raises the version floor and drops the cached payload.
var dropSettingsScript = redis.NewScript(`
local floor = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[1]) > floor then
	redis.call('SET', KEYS[2], ARGV[1])
end
redis.call('DEL', KEYS[1])
return 1
`)

// SettingsService resolves the typed game configuration.
//
// Stored rows override the defaults. The resolved value is cached in
// Redis when configured and otherwise in process; both caches are dropped
// on every write, and a copy older than the last write is never cached.
type SettingsService struct {
	store    repository.Store
	redis    *redis.Client
	defaults domain.Settings
	audit    *AuditService
	now      func() time.Time

	mu     sync.RWMutex
	cached *domain.Settings
	floor  int64
}

func NewSettingsService(store repository.Store, rdb *redis.Client, defaults domain.Settings, audit *AuditService) *SettingsService {
	return &SettingsService{
		store:    store,
		redis:    rdb,
		defaults: defaults,
		audit:    audit,
		now:      time.Now,
	}
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	if s.redis == nil {
		s.mu.RLock()
		cached := s.cached
		s.mu.RUnlock()
		if cached != nil {
			return *cached, nil
		}
	} else if settings, ok := s.fromRedis(ctx); ok {
		return settings, nil
	}

	settings, err := s.load(ctx, s.store)
	if err != nil {
		return domain.Settings{}, err
	}
	s.remember(ctx, settings)
	return settings, nil
}

// load reads the stored rows on top of the defaults. Invalid rows are
// logged and ignored.
func (s *SettingsService) load(ctx context.Context, q repository.SettingsQueries) (domain.Settings, error) {
	values, version, err := q.LoadSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	settings := s.defaults
	if err := settings.ApplySettings(values); err != nil {
		logger.WithContext(ctx).Warn("ignoring invalid stored settings", "error", err)
	}
	settings.Version = version
	return settings, nil
}

// Update validates and stores a partial settings document. Keys that are
// absent keep their current value.
func (s *SettingsService) Update(ctx context.Context, actorID int64, values map[string]string) (domain.Settings, error) {
	if len(values) == 0 {
		return domain.Settings{}, ErrInvalidSetting.WithMessage("No settings provided")
	}
	for key := range values {
		if !domain.KnownSetting(key) {
			return domain.Settings{}, ErrInvalidSetting.WithMessage(fmt.Sprintf("Unknown setting %q", key))
		}
	}

	var updated domain.Settings
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		current, err := s.load(ctx, q)
		if err != nil {
			return err
		}
		if err := current.ApplySettings(values); err != nil {
			return ErrInvalidSetting.WithMessage(err.Error())
		}
		stored := current.Values()
		changed := make(map[string]string, len(values))
		for key := range values {
			changed[key] = stored[key]
		}
		version, err := q.SaveSettings(ctx, changed, s.now())
		if err != nil {
			return err
		}
		current.Version = version
		updated = current
		return nil
	})
	if err != nil {
		return domain.Settings{}, mapNotFound(err, ErrInvalidSetting)
	}

	s.Invalidate(ctx, updated.Version)
	s.audit.Log(ctx, actorID, domain.AuditActionSettingsUpdate, domain.AuditCategorySettings, 0, map[string]any{
		"keys":    keysOf(values),
		"version": updated.Version,
	})
	logger.WithContext(ctx).Info("settings updated", "version", updated.Version, "actor_id", actorID)
	return updated, nil
}

// Invalidate drops every cached copy and refuses to cache anything older
// than version afterwards.
func (s *SettingsService) Invalidate(ctx context.Context, version int64) {
	s.mu.Lock()
	s.cached = nil
	s.floor = max(s.floor, version)
	s.mu.Unlock()

	if s.redis != nil {
		keys := []string{settingsCacheKey, settingsVersionKey}
		if err := dropSettingsScript.Run(ctx, s.redis, keys, version).Err(); err != nil {
			logger.WithContext(ctx).Warn("failed to drop settings cache", "error", err)
		}
	}
}

func (s *SettingsService) remember(ctx context.Context, settings domain.Settings) {
	if s.redis == nil {
		s.mu.Lock()
		if settings.Version >= s.floor {
			s.cached = &settings
		}
		s.mu.Unlock()
		return
	}
	payload, err := json.Marshal(cachedSettings{Version: settings.Version, Values: settings.Values()})
	if err != nil {
		return
	}
	keys := []string{settingsCacheKey, settingsVersionKey}
	ttl := settingsCacheTTL.Milliseconds()
	if err := cacheSettingsScript.Run(ctx, s.redis, keys, settings.Version, payload, ttl).Err(); err != nil {
		logger.WithContext(ctx).Warn("failed to cache settings", "error", err)
	}
}

type cachedSettings struct {
	Version int64             `json:"version"`
	Values  map[string]string `json:"values"`
}

func (s *SettingsService) fromRedis(ctx context.Context) (domain.Settings, bool) {
	raw, err := s.redis.Get(ctx, settingsCacheKey).Bytes()
	if err != nil {
		return domain.Settings{}, false
	}
	var c cachedSettings
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Settings{}, false
	}
	settings := s.defaults
	if err := settings.ApplySettings(c.Values); err != nil {
		return domain.Settings{}, false
	}
	settings.Version = c.Version
	return settings, true
}

// DecodeSettingsUpdate accepts either {"key": k, "value": v} or a document
// of key/value pairs and flattens every value to its stored string form.
func DecodeSettingsUpdate(body []byte) (map[string]string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, ErrInvalidSetting.WithMessage("Body must be a JSON object")
	}

	if rawKey, ok := doc["key"]; ok && len(doc) == 2 {
		if rawValue, ok := doc["value"]; ok {
			var key string
			if err := json.Unmarshal(rawKey, &key); err != nil {
				return nil, ErrInvalidSetting.WithMessage("key must be a string")
			}
			doc = map[string]json.RawMessage{key: rawValue}
		}
	}

	values := make(map[string]string, len(doc))
	for key, raw := range doc {
		v, err := rawSettingValue(raw)
		if err != nil {
			return nil, ErrInvalidSetting.WithMessage(fmt.Sprintf("%s: %v", key, err))
		}
		values[key] = v
	}
	return values, nil
}

func rawSettingValue(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", fmt.Errorf("value is required")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '[', '{':
		return trimmed, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("unsupported value %s", trimmed)
		}
		return n.String(), nil
	}
}

// LoadSettingsDefaults reads a YAML file of setting keys on top of the
// built-in defaults. An empty path returns the built-in defaults.
func LoadSettingsDefaults(path string) (domain.Settings, error) {
	defaults := domain.DefaultSettings()
	if path == "" {
		return defaults, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("read settings defaults: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return defaults, fmt.Errorf("parse settings defaults: %w", err)
	}

	values := make(map[string]string, len(doc))
	for key, v := range doc {
		switch tv := v.(type) {
		case string:
			values[key] = tv
		case int:
			values[key] = strconv.Itoa(tv)
		case float64:
			values[key] = strconv.FormatFloat(tv, 'f', -1, 64)
		case nil:
		default:
			b, err := json.Marshal(tv)
			if err != nil {
				return defaults, fmt.Errorf("settings defaults %s: %w", key, err)
			}
			values[key] = string(b)
		}
	}
	for key := range values {
		if !domain.KnownSetting(key) {
			return defaults, fmt.Errorf("settings defaults: unknown key %q", key)
		}
	}
	if err := defaults.ApplySettings(values); err != nil {
		return defaults, fmt.Errorf("settings defaults: %w", err)
	}
	return defaults, nil
}

func keysOf(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
