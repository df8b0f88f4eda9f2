package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"corsa-hq/quaestor/pkg/policy"
)

// FileSource loads rule sets from YAML files on disk. The path can be a
// single file or a directory; directories are walked recursively and
// every .yaml/.yml file is loaded.
type FileSource struct {
	path     string
	registry *Registry
	logger   *slog.Logger
}

// NewFileSource creates a file-based rule source. The registry resolves
// custom predicate names; it may be nil when no rule file uses custom
// conditions.
func NewFileSource(path string, registry *Registry, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:     path,
		registry: registry,
		logger:   logger,
	}
}

// Load reads all rules from the configured path and validates the
// combined set. Invalid files inside a directory are logged and skipped;
// a single-file path that fails to load is an error.
func (s *FileSource) Load(ctx context.Context) ([]*policy.Rule, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	var rules []*policy.Rule
	if info.IsDir() {
		rules, err = s.loadDirectory(ctx)
	} else {
		rules, err = s.loadFile(s.path)
	}
	if err != nil {
		return nil, err
	}

	if errs := policy.ValidateRuleSet(rules); len(errs) > 0 {
		return nil, fmt.Errorf("rule set from %q is invalid: %w", s.path, errs[0])
	}

	s.logger.Info("loaded rules from source",
		"path", s.path,
		"rule_count", len(rules),
	)

	return rules, nil
}

// loadDirectory loads every YAML rule file under the directory.
func (s *FileSource) loadDirectory(ctx context.Context) ([]*policy.Rule, error) {
	var rules []*policy.Rule

	err := filepath.Walk(s.path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		fileRules, err := s.loadFile(path)
		if err != nil {
			s.logger.Warn("failed to load rule file, skipping",
				"path", path,
				"error", err,
			)
			return nil // Skip invalid files
		}

		rules = append(rules, fileRules...)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", s.path, err)
	}

	return rules, nil
}

// loadFile loads and resolves a single rule file.
func (s *FileSource) loadFile(path string) ([]*policy.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule file %q: %w", path, err)
	}

	rules := make([]*policy.Rule, 0, len(file.Rules))
	for i, spec := range file.Rules {
		rule, err := s.resolveRule(spec)
		if err != nil {
			return nil, fmt.Errorf("rule %d in %q: %w", i, path, err)
		}
		rules = append(rules, rule)
	}

	s.logger.Debug("loaded rule file",
		"path", path,
		"rule_count", len(rules),
	)

	return rules, nil
}

// ruleFile is the YAML schema of a rule file.
type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Priority    int             `yaml:"priority"`
	Active      *bool           `yaml:"active"`
	Conditions  []conditionSpec `yaml:"conditions"`
	Action      actionSpec      `yaml:"action"`
}

type conditionSpec struct {
	Type    string      `yaml:"type"`
	Value   interface{} `yaml:"value"`
	ValueTo interface{} `yaml:"valueTo"`

	// Predicate names a registered custom predicate. Only meaningful
	// for custom conditions.
	Predicate string `yaml:"predicate"`
}

type actionSpec struct {
	Type              string   `yaml:"type"`
	ApproverIDs       []string `yaml:"approverIds"`
	RequiredApprovals int      `yaml:"requiredApprovals"`
	EscalateTo        string   `yaml:"escalateTo"`
}

// resolveRule maps a YAML rule spec onto the engine's rule type,
// resolving custom predicate names through the registry. Rules omitting
// the active key default to active.
func (s *FileSource) resolveRule(spec ruleSpec) (*policy.Rule, error) {
	rule := &policy.Rule{
		ID:          spec.ID,
		Name:        spec.Name,
		Description: spec.Description,
		Priority:    spec.Priority,
		IsActive:    spec.Active == nil || *spec.Active,
		Action: policy.Action{
			Type:              policy.ActionType(spec.Action.Type),
			ApproverIDs:       spec.Action.ApproverIDs,
			RequiredApprovals: spec.Action.RequiredApprovals,
			EscalateTo:        spec.Action.EscalateTo,
		},
	}

	for _, cond := range spec.Conditions {
		condType := policy.ConditionType(cond.Type)

		if condType == policy.ConditionCustom {
			if cond.Predicate == "" {
				return nil, fmt.Errorf("custom condition requires a predicate name")
			}
			if s.registry == nil {
				return nil, fmt.Errorf("custom predicate %q referenced but no registry configured", cond.Predicate)
			}
			predicate, ok := s.registry.Lookup(cond.Predicate)
			if !ok {
				return nil, fmt.Errorf("custom predicate %q is not registered", cond.Predicate)
			}
			rule.Conditions = append(rule.Conditions, policy.Condition{
				Type:  condType,
				Value: predicate,
			})
			continue
		}

		rule.Conditions = append(rule.Conditions, policy.Condition{
			Type:    condType,
			Value:   cond.Value,
			ValueTo: cond.ValueTo,
		})
	}

	return rule, nil
}
