package config

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"pmlogd/pkg/logger"
)

var config_logger = logger.Config_logger

// Error constants definition
var (
	ErrExpectedStdlog    = errors.New("expected stdlog as first output definition")
	ErrExpectedGlobal    = errors.New("expected global context definition")
	ErrTooManyOutputs    = errors.New("too many output definitions")
	ErrFileNotSpecified  = errors.New("File not specified")
	ErrFileNotAbsolute   = errors.New("expected File full path value")
	ErrUnknownOutput     = errors.New("output not recognized")
	ErrMalformedRule     = errors.New("malformed rule")
	ErrEmptyGroupName    = errors.New("empty group name")
	ErrNoOutputsDeclared = errors.New("no outputs declared")
	ErrNoGlobalContext   = errors.New("no global context declared")
)

const (
	outputPrefix  = "OUTPUT="
	contextPrefix = "CONTEXT="
)

// Load reads the routing configuration file. Any section that fails
// aborts the load; the caller is expected to fall back to
// DefaultConfig.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load config file from %s: %w", path, err)
	}

	cfg := &Config{Contexts: make(map[string]*ContextConf)}

	for _, section := range file.Sections() {
		group := section.Name()
		switch {
		case group == ini.DefaultSection:
			// ini's implicit top-level section, empty in our format
		case strings.HasPrefix(group, outputPrefix):
			name := strings.TrimPrefix(group, outputPrefix)
			if err := parseOutputSection(cfg, name, section); err != nil {
				return nil, fmt.Errorf("[%s]: %w", group, err)
			}
		case strings.HasPrefix(group, contextPrefix):
			name := strings.TrimPrefix(group, contextPrefix)
			if err := parseContextSection(cfg, name, section); err != nil {
				return nil, fmt.Errorf("[%s]: %w", group, err)
			}
		default:
			config_logger.Warn("Unrecognized group, skipping", "group", group)
		}
	}

	if len(cfg.Outputs) == 0 {
		return nil, ErrNoOutputsDeclared
	}
	if cfg.Context(ContextGlobal) == nil {
		return nil, ErrNoGlobalContext
	}

	return cfg, nil
}

// LoadOrDefault reads the routing configuration file and installs the
// hard-coded default configuration when the load fails. It never
// returns nil.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		config_logger.Warn("Using default configuration", "path", path, "error", err)
		return DefaultConfig()
	}
	return cfg
}

// clampName truncates a section name that exceeds the limit, matching
// the permissive handling of oversized names in the file format.
func clampName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	config_logger.Warn("Name too long, truncating", "name", name, "limit", limit)
	return name[:limit]
}

func parseOutputSection(cfg *Config, name string, section *ini.Section) error {
	if name == "" {
		return ErrEmptyGroupName
	}
	if len(cfg.Outputs) == 0 && name != OutputStdlog {
		return ErrExpectedStdlog
	}
	name = clampName(name, OutputMaxNameLen)

	path := section.Key("File").String()
	switch {
	case path == "":
		return ErrFileNotSpecified
	case path[0] != '/':
		return ErrFileNotAbsolute
	}

	maxSize := int64(DefaultLogSize)
	if section.HasKey("MaxSize") {
		raw := section.Key("MaxSize").String()
		if size, ok := ParseSize(raw); ok {
			maxSize = size
		} else {
			config_logger.Warn("Unrecognized format in MaxSize", "output", name, "value", raw)
		}
	}
	if maxSize < MinLogSize {
		config_logger.Warn("Log size must be >= 4KB, setting to that minimum", "output", name)
		maxSize = MinLogSize
	} else if maxSize > MaxLogSize {
		config_logger.Warn("Log size must be <= 64MB, setting to that maximum", "output", name)
		maxSize = MaxLogSize
	}

	rotations := DefaultRotations
	if section.HasKey("Rotations") {
		if n, err := section.Key("Rotations").Int(); err == nil {
			rotations = n
		} else {
			config_logger.Warn("Unrecognized format in Rotations", "output", name, "error", err)
		}
		if rotations < MinRotations {
			config_logger.Warn("Rotations must be >= 1, setting to that minimum", "output", name)
			rotations = MinRotations
		} else if rotations > MaxRotations {
			config_logger.Warn("Rotations must be <= 9, setting to that maximum", "output", name)
			rotations = MaxRotations
		}
	}

	if len(cfg.Outputs) >= MaxNumOutputs {
		return ErrTooManyOutputs
	}
	cfg.Outputs = append(cfg.Outputs, OutputConf{
		Name:      name,
		Path:      path,
		MaxSize:   maxSize,
		Rotations: rotations,
	})
	return nil
}

func parseContextSection(cfg *Config, name string, section *ini.Section) error {
	if name == "" {
		return ErrEmptyGroupName
	}
	if len(cfg.Contexts) == 0 && name != ContextGlobal {
		return ErrExpectedGlobal
	}
	name = clampName(name, ContextMaxNameLen)

	ctx := &ContextConf{Name: name, FlushLevel: LevelEmerg}

	for i := 1; i <= ContextMaxNumRules; i++ {
		key := fmt.Sprintf("Rule%d", i)
		if !section.HasKey(key) {
			break
		}
		rule, err := parseRule(cfg, section.Key(key).String())
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		ctx.Rules = append(ctx.Rules, rule)
	}

	if section.HasKey("BufferSize") {
		raw := section.Key("BufferSize").String()
		size, ok := ParseSize(raw)
		if !ok {
			return fmt.Errorf("couldn't parse BufferSize %q", raw)
		}
		if size < 0 {
			config_logger.Warn("BufferSize must be >= 0, setting to 0", "context", name)
			size = 0
		}
		ctx.BufferSize = int(size)
	}

	if section.HasKey("FlushLevel") {
		raw := section.Key("FlushLevel").String()
		level, ok := ParseLevel(raw)
		if !ok || level == Any {
			return fmt.Errorf("couldn't parse FlushLevel %q", raw)
		}
		ctx.FlushLevel = level
	}

	cfg.Contexts[name] = ctx
	return nil
}

// nextToken splits s at the first occurrence of any byte in seps,
// returning the leading token, the separator (0 when s is exhausted)
// and the remainder.
func nextToken(s, seps string) (token string, sep byte, rest string) {
	if i := strings.IndexAny(s, seps); i >= 0 {
		return s[:i], s[i], s[i+1:]
	}
	return s, 0, ""
}

// parseRule parses a rule value of the form
//
//	<facility>[.[!]<level>[.<program>]],[-]<outputName>
//
// The output must name an already-declared output.
func parseRule(cfg *Config, val string) (RuleConf, error) {
	rule := RuleConf{Level: Any}

	token, sep, rest := nextToken(val, ".,")
	facility, ok := ParseFacility(token)
	if !ok {
		return rule, fmt.Errorf("%w: facility not parsed: %q", ErrMalformedRule, token)
	}
	rule.Facility = facility

	if sep == '.' {
		if strings.HasPrefix(rest, "!") {
			rule.LevelInvert = true
			rest = rest[1:]
		}
		token, sep, rest = nextToken(rest, ".,")
		level, ok := ParseLevel(token)
		if !ok {
			return rule, fmt.Errorf("%w: level not parsed: %q", ErrMalformedRule, token)
		}
		rule.Level = level
	}

	if sep == '.' {
		token, sep, rest = nextToken(rest, ".,")
		rule.Program = clampName(token, ProgramMaxNameLen)
	}

	if sep != ',' {
		return rule, fmt.Errorf("%w: expected ',' after filter", ErrMalformedRule)
	}

	if strings.HasPrefix(rest, "-") {
		rule.Omit = true
		rest = rest[1:]
	}

	token, sep, _ = nextToken(rest, ".,")
	index, ok := cfg.FindOutput(token)
	if !ok {
		return rule, fmt.Errorf("%w: %q", ErrUnknownOutput, token)
	}
	rule.OutputIndex = index

	if sep != 0 {
		return rule, fmt.Errorf("%w: unexpected data after output", ErrMalformedRule)
	}

	return rule, nil
}
