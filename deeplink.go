// Package deeplink turns external and internal links into validated,
// authorized navigation actions for the Waqiti app.
//
// The Manager is the entry point. It puts two interchangeable routing
// strategies behind one policy: the pattern dispatcher (pkg/dispatch) and
// the type-keyed legacy handler (pkg/legacy).
//
//	d := dispatch.New(auth.ContextProvider{}, dispatch.WithStore(store))
//	routes.Register(d, directory)
//
//	m := deeplink.New(deeplink.DefaultConfig(), d, legacy.New(auth.ContextProvider{}))
//	m.SetHost(ctx, host)
//
//	res := m.Handle(ctx, "waqiti://pay/m1?amount=5", dispatch.Partial{Source: dispatch.SourceQR})
//	if !res.Success {
//	    // res.ErrorCode is one of the dispatch codes; res.RequiresUserAction
//	    // says whether the user must sign in, confirm or grant a permission.
//	}
//
// Link generation is the inverse of matching:
//
//	url, _ := m.GenerateURL("/pay/:merchantId", map[string]any{"merchantId": "m1"},
//	    deeplink.GenerateOptions{Source: "qr", Campaign: "spring"})
//	// "waqiti://pay/m1?utm_campaign=spring&utm_source=qr"
package deeplink

import (
	"context"

	"github.com/waqiti-dev/deeplink/pkg/dispatch"
)

// Strategy handles a link end to end. Both the dispatcher and the legacy
// handler satisfy it.
type Strategy interface {
	Handle(ctx context.Context, raw string, p dispatch.Partial) dispatch.Result
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, raw string, p dispatch.Partial) dispatch.Result

// Handle implements Strategy.
func (f StrategyFunc) Handle(ctx context.Context, raw string, p dispatch.Partial) dispatch.Result {
	return f(ctx, raw, p)
}

// Strategy names reported in analytics.
const (
	StrategyRouter = "router"
	StrategyLegacy = "legacy"
)
