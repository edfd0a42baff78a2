package config

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/niksmo/catalog-audit/internal/core/port"
	"github.com/spf13/viper"
)

var _ port.BrandRuleSource = (*BrandTable)(nil)

// A BrandTable serves the brand to collection rules and can follow
// edits of the config file without a restart.
type BrandTable struct {
	rules atomic.Pointer[[]domain.BrandRule]
}

func NewBrandTable(brands []Brand) *BrandTable {
	t := &BrandTable{}
	t.Set(brands)
	return t
}

func (t *BrandTable) Set(brands []Brand) {
	rules := make([]domain.BrandRule, 0, len(brands))
	for _, b := range brands {
		rules = append(rules, domain.BrandRule{
			Brand:       b.Name,
			Collections: append([]string(nil), b.Collections...),
		})
	}
	t.rules.Store(&rules)
}

func (t *BrandTable) BrandRules() []domain.BrandRule {
	return *t.rules.Load()
}

// Watch reloads the table whenever the file at path changes.
// An invalid edit is logged and the previous rules are kept.
func (t *BrandTable) Watch(path string) error {
	const op = "BrandTable.Watch"
	log := slog.With("op", op)

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		brands, err := readBrands(v)
		if err != nil {
			log.Error("brand table reload rejected", "file", e.Name, "err", err)
			return
		}
		t.Set(brands)
		log.Info("brand table reloaded", "file", e.Name, "brands", len(brands))
	})
	v.WatchConfig()
	return nil
}

func readBrands(v *viper.Viper) ([]Brand, error) {
	var section struct {
		Brands []Brand `mapstructure:"brands" validate:"dive"`
	}
	if err := v.Unmarshal(&section); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(section); err != nil {
		return nil, err
	}
	return section.Brands, nil
}
