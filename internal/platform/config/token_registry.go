package config

import (
	"fmt"
	"strings"
)

// TokenInfo contains token metadata for trading pairs
type TokenInfo struct {
	Symbol       string // Token symbol (ETH, BTC, USDC, etc.)
	Address      string // On-chain address
	Decimals     int    // Token decimals (18 for ETH, 8 for WBTC, 6 for USDC)
	IsStablecoin bool   // Whether this is a stablecoin
}

// defaultTokenRegistry is the built-in registry of well-known tokens on
// Ethereum mainnet, used when the config carries no registry of its own.
var defaultTokenRegistry = map[string]TokenInfo{
	"ETH": {
		Symbol:       "ETH",
		Address:      "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // WETH
		Decimals:     18,
		IsStablecoin: false,
	},
	"WBTC": {
		Symbol:       "WBTC",
		Address:      "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599",
		Decimals:     8,
		IsStablecoin: false,
	},
	"LINK": {
		Symbol:       "LINK",
		Address:      "0x514910771AF9Ca656af840dff83E8264EcF986CA",
		Decimals:     18,
		IsStablecoin: false,
	},
	"UNI": {
		Symbol:       "UNI",
		Address:      "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984",
		Decimals:     18,
		IsStablecoin: false,
	},
	"AAVE": {
		Symbol:       "AAVE",
		Address:      "0x7Fc66500c84A76Ad7e9c93437bFc5Ac33E2DDaE9",
		Decimals:     18,
		IsStablecoin: false,
	},
	"USDC": {
		Symbol:       "USDC",
		Address:      "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Decimals:     6,
		IsStablecoin: true,
	},
	"USDT": {
		Symbol:       "USDT",
		Address:      "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		Decimals:     6,
		IsStablecoin: true,
	},
	"DAI": {
		Symbol:       "DAI",
		Address:      "0x6B175474E89094C44Da98b954EedeAC495271d0F",
		Decimals:     18,
		IsStablecoin: true,
	},
}

// TokenRegistry resolves the effective token registry: configured tokens
// merged over the built-in defaults, keyed by symbol.
func (c *Config) TokenRegistry() map[string]TokenInfo {
	out := make(map[string]TokenInfo, len(defaultTokenRegistry)+len(c.Tokens.Registry))
	for sym, info := range defaultTokenRegistry {
		out[sym] = info
	}
	for sym, def := range c.Tokens.Registry {
		out[strings.ToUpper(sym)] = TokenInfo{
			Symbol:       strings.ToUpper(sym),
			Address:      def.Address,
			Decimals:     def.Decimals,
			IsStablecoin: def.IsStablecoin,
		}
	}
	return out
}

// ParsePair parses a trading pair string like "ETH-USDC" into base and
// quote token info against the effective registry.
func (c *Config) ParsePair(pairName string) (base TokenInfo, quote TokenInfo, err error) {
	registry := c.TokenRegistry()

	parts := strings.Split(pairName, "-")
	if len(parts) != 2 {
		return TokenInfo{}, TokenInfo{}, fmt.Errorf("invalid pair format: %s (expected BASE-QUOTE like ETH-USDC)", pairName)
	}

	baseSymbol, quoteSymbol := strings.ToUpper(parts[0]), strings.ToUpper(parts[1])

	base, ok := registry[baseSymbol]
	if !ok {
		return TokenInfo{}, TokenInfo{}, fmt.Errorf("unknown base token: %s", baseSymbol)
	}

	quote, ok = registry[quoteSymbol]
	if !ok {
		return TokenInfo{}, TokenInfo{}, fmt.Errorf("unknown quote token: %s", quoteSymbol)
	}

	if baseSymbol == quoteSymbol {
		return TokenInfo{}, TokenInfo{}, fmt.Errorf("base and quote tokens must be different: %s", pairName)
	}

	return base, quote, nil
}

// DecimalsOverride returns the configured decimals override for a token
// address, if any. Addresses are matched case-insensitively.
func (c *Config) DecimalsOverride(address string) (int, bool) {
	if len(c.Tokens.DecimalsOverrides) == 0 {
		return 0, false
	}
	want := strings.ToLower(address)
	for addr, dec := range c.Tokens.DecimalsOverrides {
		if strings.ToLower(addr) == want {
			return dec, true
		}
	}
	return 0, false
}

// StableAddresses returns the configured stablecoin addresses, lower-cased,
// falling back to the registry's stablecoins when none are configured.
func (c *Config) StableAddresses() []string {
	if len(c.Tokens.Stables) > 0 {
		out := make([]string, 0, len(c.Tokens.Stables))
		for _, a := range c.Tokens.Stables {
			out = append(out, strings.ToLower(a))
		}
		return out
	}

	var out []string
	for _, info := range c.TokenRegistry() {
		if info.IsStablecoin {
			out = append(out, strings.ToLower(info.Address))
		}
	}
	return out
}

// IsUSDSymbol reports whether a symbol looks USD-pegged per the configured
// hint list.
func (c *Config) IsUSDSymbol(symbol string) bool {
	sym := strings.ToUpper(symbol)
	for _, hint := range c.Tokens.USDSymbolHints {
		if sym == strings.ToUpper(hint) {
			return true
		}
	}
	return false
}
