// Package linktest provides testing helpers for code built on the link
// dispatcher.
//
// # Quick Start
//
//	func TestPayLink(t *testing.T) {
//	    host := linktest.NewHost()
//	    d := dispatch.New(linktest.SignedIn("u1"))
//	    d.SetHost(ctx, host)
//	    routes.Register(d, dir)
//
//	    res := d.Route(ctx, "waqiti://pay/m1?amount=5", linktest.NewPartial().Build())
//	    linktest.ExpectSuccess(t, res, "Payment")
//	    linktest.ExpectNavigated(t, host, "Payment")
//	}
//
// # Fluent Partial Builder
//
//	p := linktest.NewPartial().
//	    From(dispatch.SourceQR).
//	    Campaign("spring").
//	    Device("ios", "17.2").
//	    Build()
//
// # Identity
//
// SignedIn returns an auth.Static provider for a user with the given
// permissions; Anonymous returns one with no user.
package linktest
