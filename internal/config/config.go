// Package config reads the INI configuration file §6 of the spec
// describes: source sections, a target section, loader settings, and
// validation rules.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

const (
	defaultBatchSize         = 1000
	defaultMemoryBudgetBytes = 512 * 1024 * 1024
	defaultRecordSizeEstimate = 500
	defaultTimeoutSeconds    = 1800
	defaultSortField         = "receiveTime"
	defaultMaxFileSizeBytes  = 100 * 1024 * 1024
)

// SourceConfig is one `[source.<name>]` section.
type SourceConfig struct {
	Name             string
	Type             string // registered extractor type: "cos", "db", "mongo"
	Category         string
	ConnectionString string
	Properties       map[string]string

	SQLTemplate string
	DBURL       string
	DBUser      string
	DBPassword  string

	COSBucket     string
	COSRegion     string
	COSEndpoint   string
	COSPrefix     string
	COSSecretID   string
	COSSecretKey  string
	COSMaxFileSize int64
}

// TargetConfig is the `[target]` section.
type TargetConfig struct {
	Type                string
	ConnectionString    string // "host:port"
	BatchSize           int
	BusinessDateColumn  string // column Validate's scalar query filters on

	DDBHost     string
	DDBPort     string
	DDBUser     string
	DDBPassword string
	DDBDatabase string
}

// LoaderConfig is the `[loader]` section.
type LoaderConfig struct {
	SortField          string
	MemoryBudgetBytes  int64
	RecordSizeEstimate int64
	TimeoutSeconds     int
}

// ValidationConfig is the `[validation]` section: a list of rule
// descriptors. The validator (§4.6) only implements the row-count rule;
// other descriptors are accepted but ignored, matching the spec's silence
// on what else a rule descriptor can name.
type ValidationConfig struct {
	Rules []string
}

// Config is the fully resolved configuration handed to the orchestrator.
type Config struct {
	Sources     []SourceConfig
	Target      TargetConfig
	Loader      LoaderConfig
	Validation  ValidationConfig
	ScratchRoot string
	LockPath    string
}

// Load parses the INI file at path into a Config, applying the defaults
// §6 documents for loader settings. Secret-bearing keys (db.password,
// cos.secretId, cos.secretKey) left blank in the INI file fall back to a
// `.env` file in the working directory, loaded once up front: the same
// pattern the benchmark harness this driver is descended from uses to
// keep credentials out of checked-in config.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "config: .env not loaded: %v\n", err)
	}

	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}

	cfg := &Config{
		ScratchRoot: "/tmp/dayetl",
		LockPath:    ".etl.lock",
	}

	if gen := f.Section(ini.DefaultSection); gen != nil {
		if v := gen.Key("scratchRoot").String(); v != "" {
			cfg.ScratchRoot = v
		}
		if v := gen.Key("lockPath").String(); v != "" {
			cfg.LockPath = v
		}
	}

	for _, sec := range f.Sections() {
		name := sec.Name()
		switch {
		case strings.HasPrefix(name, "source."):
			sc, err := parseSource(strings.TrimPrefix(name, "source."), sec)
			if err != nil {
				return nil, err
			}
			cfg.Sources = append(cfg.Sources, sc)
		case name == "target":
			cfg.Target = parseTarget(sec)
		case name == "loader":
			cfg.Loader = parseLoader(sec)
		case name == "validation":
			cfg.Validation.Rules = sec.Key("rules").Strings(",")
		}
	}

	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("config %q: no [source.*] sections declared", path)
	}

	return cfg, nil
}

// envOrIni resolves a secret-bearing key: the INI value wins when set,
// otherwise falls back to DAYETL_<SOURCE>_<KEY> from the process
// environment (populated by godotenv.Load from a `.env` file, or set
// directly in the environment).
func envOrIni(sourceName, key, iniValue string) string {
	if iniValue != "" {
		return iniValue
	}
	envName := fmt.Sprintf("DAYETL_%s_%s", strings.ToUpper(sourceName), key)
	return os.Getenv(envName)
}

func parseSource(name string, sec *ini.Section) (SourceConfig, error) {
	sc := SourceConfig{
		Name:             name,
		Type:             sec.Key("type").String(),
		Category:         sec.Key("category").String(),
		ConnectionString: sec.Key("connectionString").String(),
		Properties:       map[string]string{},

		SQLTemplate: sec.Key("sql.template").String(),
		DBURL:       sec.Key("db.url").String(),
		DBUser:      sec.Key("db.user").String(),
		DBPassword:  envOrIni(name, "DB_PASSWORD", sec.Key("db.password").String()),

		COSBucket:    sec.Key("cos.bucket").String(),
		COSRegion:    sec.Key("cos.region").String(),
		COSEndpoint:  sec.Key("cos.endpoint").String(),
		COSPrefix:    sec.Key("cos.prefix").String(),
		COSSecretID:  envOrIni(name, "COS_SECRET_ID", sec.Key("cos.secretId").String()),
		COSSecretKey: envOrIni(name, "COS_SECRET_KEY", sec.Key("cos.secretKey").String()),
	}

	if sc.Type == "" {
		return sc, fmt.Errorf("config: source %q missing required 'type'", name)
	}

	maxSize := defaultMaxFileSizeBytes
	if v := sec.Key("cos.maxFileSize").String(); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return sc, fmt.Errorf("config: source %q cos.maxFileSize: %w", name, err)
		}
		maxSize = int(parsed)
	}
	sc.COSMaxFileSize = int64(maxSize)

	for _, k := range sec.Keys() {
		if strings.HasPrefix(k.Name(), "properties.") {
			sc.Properties[strings.TrimPrefix(k.Name(), "properties.")] = k.String()
		}
	}

	return sc, nil
}

func parseTarget(sec *ini.Section) TargetConfig {
	tc := TargetConfig{
		Type:               sec.Key("type").String(),
		ConnectionString:   sec.Key("connectionString").String(),
		BatchSize:          sec.Key("batchSize").MustInt(defaultBatchSize),
		BusinessDateColumn: sec.Key("businessDateColumn").MustString("receive_time"),
		DDBHost:            sec.Key("properties.ddb.host").String(),
		DDBPort:            sec.Key("properties.ddb.port").String(),
		DDBUser:            sec.Key("properties.ddb.user").String(),
		DDBPassword:        sec.Key("properties.ddb.password").String(),
		DDBDatabase:        sec.Key("properties.ddb.database").String(),
	}
	if tc.BatchSize <= 0 {
		tc.BatchSize = defaultBatchSize
	}
	if tc.BusinessDateColumn == "" {
		tc.BusinessDateColumn = "receive_time"
	}
	return tc
}

func parseLoader(sec *ini.Section) LoaderConfig {
	lc := LoaderConfig{
		SortField:          sec.Key("sortField").MustString(defaultSortField),
		MemoryBudgetBytes:  sec.Key("memoryBudgetBytes").MustInt64(defaultMemoryBudgetBytes),
		RecordSizeEstimate: sec.Key("recordSizeEstimate").MustInt64(defaultRecordSizeEstimate),
		TimeoutSeconds:     sec.Key("timeoutSeconds").MustInt(defaultTimeoutSeconds),
	}
	if lc.SortField == "" {
		lc.SortField = defaultSortField
	}
	if lc.MemoryBudgetBytes <= 0 {
		lc.MemoryBudgetBytes = defaultMemoryBudgetBytes
	}
	if lc.RecordSizeEstimate <= 0 {
		lc.RecordSizeEstimate = defaultRecordSizeEstimate
	}
	if lc.TimeoutSeconds <= 0 {
		lc.TimeoutSeconds = defaultTimeoutSeconds
	}
	return lc
}

// ValidateRegistrations fails fast (the "Supplemented Features" check in
// SPEC_FULL.md) if any configured source type has no registered extractor
// factory. Unlike the extractor-resolution-is-lazy rule in §4.8, this is a
// pre-flight sanity check run before the process lock is acquired, not a
// replacement for it: an extractor can still be registered after config
// load and before the first day runs, so this only catches the common case
// of a typo in `type`.
func (c *Config) ValidateRegistrations(knownSourceTypes map[string]bool) error {
	for _, sc := range c.Sources {
		if !knownSourceTypes[sc.Type] {
			return fmt.Errorf("config: source %q has unregistered type %q", sc.Name, sc.Type)
		}
	}
	return nil
}
