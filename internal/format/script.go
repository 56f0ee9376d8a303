package format

import (
	"context"
	"fmt"
	"os"

	common_models "go-viz/internal/common/models"
	"go-viz/internal/config"
	"go-viz/internal/features/transform"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"go.uber.org/zap"
)

// Script lets an operator-supplied tengo script rewrite value labels. The
// script sees column, column_type, value and label and may reassign label.
//
//	txt := import("text")
//	if column_type == "number" && value > 1000000 { label = txt.format_float(value / 1000000, 'f', 1, 64) + "M" }
type Script struct {
	base     transform.Formatter
	compiled *tengo.Compiled
	logger   *zap.Logger
}

var _ transform.Formatter = (*Script)(nil)

func NewScript(src []byte, base transform.Formatter, logger *zap.Logger) (*Script, error) {
	if base == nil {
		base = NewDefault("en")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	script := tengo.NewScript(src)
	script.SetImports(stdlib.GetModuleMap("text", "math", "fmt", "times"))
	for _, name := range []string{"column", "column_type", "label"} {
		if err := script.Add(name, ""); err != nil {
			return nil, fmt.Errorf("failed to declare %s: %w", name, err)
		}
	}
	if err := script.Add("value", nil); err != nil {
		return nil, fmt.Errorf("failed to declare value: %w", err)
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile format script: %w", err)
	}
	return &Script{base: base, compiled: compiled, logger: logger}, nil
}

// LoadScript reads and compiles the script at path.
func LoadScript(path string, base transform.Formatter, logger *zap.Logger) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read format script: %w", err)
	}
	return NewScript(src, base, logger)
}

// FormatValue runs the script on a fresh copy of the compiled program. A
// failing script falls back to the base label.
func (s *Script) FormatValue(column common_models.Column, value any) string {
	label := s.base.FormatValue(column, value)

	run := s.compiled.Clone()
	for name, v := range map[string]any{
		"column":      column.Name,
		"column_type": string(column.Type),
		"value":       value,
		"label":       label,
	} {
		if err := run.Set(name, v); err != nil {
			s.logger.Warn("format script rejected variable", zap.String("name", name), zap.Error(err))
			return label
		}
	}

	if err := run.RunContext(context.Background()); err != nil {
		s.logger.Warn("format script failed", zap.String("column", column.Name), zap.Error(err))
		return label
	}
	return run.Get("label").String()
}

func (s *Script) FormatTimeUnit(unit transform.TimeUnit) string {
	return s.base.FormatTimeUnit(unit)
}

func (s *Script) OperatorLabel(op transform.FilterOperator) string {
	return s.base.OperatorLabel(op)
}

// New returns the preview formatter configured by cfg: the locale default,
// wrapped by the format script when one is set.
func New(cfg *config.Config, logger *zap.Logger) (transform.Formatter, error) {
	base := NewDefault(cfg.Locale)
	if cfg.FormatScript == "" {
		return base, nil
	}
	s, err := LoadScript(cfg.FormatScript, base, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded format script", zap.String("path", cfg.FormatScript))
	return s, nil
}
