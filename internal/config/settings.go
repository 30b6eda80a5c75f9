package config

import (
	"github.com/Digital-Shane/metaweave/internal/provider"
)

// Settings are the named getters read by the orchestrators, smart lists and
// menus.
type Settings interface {
	Language() string
	Detail() provider.Detail
	PageSize() int
	HiddenNiches() []string
	Specials() string
	Interleave() bool
	Discrepancy() bool
	ReduceExtras() bool
	ReduceUnofficial() bool
	ReduceShort() bool
	ShortSeconds() int
}

var _ Settings = (*Config)(nil)

func (c *Config) Language() string        { return c.Menu.Language }
func (c *Config) Detail() provider.Detail { return provider.ParseDetail(c.Menu.Detail) }
func (c *Config) PageSize() int           { return c.Menu.PageSize }
func (c *Config) HiddenNiches() []string  { return c.Menu.HideNiches }
func (c *Config) Specials() string        { return c.Show.Specials }
func (c *Config) Interleave() bool        { return c.Show.Interleave }

// Discrepancy reports whether the next episode is hidden when it was
// watched at least as often as the current one.
func (c *Config) Discrepancy() bool { return c.Show.Discrepancy }

func (c *Config) ReduceExtras() bool     { return c.Show.ReduceExtras }
func (c *Config) ReduceUnofficial() bool { return c.Show.ReduceUnofficial }
func (c *Config) ReduceShort() bool      { return c.Show.ReduceShort }
func (c *Config) ShortSeconds() int      { return c.Show.ShortSeconds }
