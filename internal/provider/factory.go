package provider

import (
	"fmt"

	"github.com/melodydashora/Vecto-Pilot-sub003/internal/config"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/event"
	"github.com/melodydashora/Vecto-Pilot-sub003/internal/logging"
)

// FromConfig builds a Router with the three pipeline roles registered from
// configuration. Providers with missing credentials are still placed in their
// chains; they classify as config failures at call time and the router falls
// through, which keeps a partially-credentialed install usable.
func FromConfig(cfg *config.Config, bus *event.Bus, log *logging.Logger) (*Router, error) {
	invokers := map[string]Invoker{
		"anthropic": NewAnthropic(cfg.Providers.Anthropic.APIKey, cfg.Providers.Anthropic.Model, cfg.Providers.Anthropic.BaseURL),
		"openai":    NewOpenAI(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.Model, cfg.Providers.OpenAI.BaseURL),
		"google":    NewGoogle(cfg.Providers.Google.APIKey, cfg.Providers.Google.Model, cfg.Providers.Google.BaseURL),
	}

	r := NewRouter(bus, log)
	roles := []struct {
		name string
		rc   config.RoleConfig
	}{
		{RoleResearch, cfg.Roles.Research},
		{RoleStrategist, cfg.Roles.Strategist},
		{RolePlanner, cfg.Roles.Planner},
	}
	for _, role := range roles {
		chain := make([]Invoker, 0, len(role.rc.Chain))
		for _, name := range role.rc.Chain {
			inv, ok := invokers[name]
			if !ok {
				return nil, fmt.Errorf("role %s: unknown provider %q", role.name, name)
			}
			chain = append(chain, inv)
		}
		r.RegisterRole(role.name, role.rc.Timeout, chain...)
	}
	return r, nil
}
