package quote

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/config"
)

// BuildRouters constructs one Router per configured venue. Unknown kinds
// are a configuration error, not a silent skip.
func BuildRouters(cfgs []config.RouterConfig, pools poolResolver) ([]Router, error) {
	routers := make([]Router, 0, len(cfgs))
	seen := make(map[string]struct{}, len(cfgs))

	for _, cfg := range cfgs {
		if _, dup := seen[cfg.Name]; dup {
			return nil, fmt.Errorf("duplicate router name %q", cfg.Name)
		}
		seen[cfg.Name] = struct{}{}

		routerAddr := common.HexToAddress(cfg.Router)
		factoryAddr := common.HexToAddress(cfg.Factory)

		switch cfg.Kind {
		case "v3":
			routers = append(routers, NewV3Router(cfg.Name, routerAddr, factoryAddr, cfg.FeeTiers, cfg.GasUnits, pools))
		case "v2":
			routers = append(routers, NewV2Router(cfg.Name, routerAddr, factoryAddr, cfg.FeeBps, cfg.GasUnits, pools))
		default:
			return nil, fmt.Errorf("router %s: unsupported kind %q", cfg.Name, cfg.Kind)
		}
	}

	return routers, nil
}
