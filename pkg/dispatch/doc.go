// Package dispatch turns links into validated, authorized navigation
// actions.
//
// A Dispatcher owns an ordered route registry and a pending queue. Each call
// to Route walks the same steps:
//
//	queue if no host → parse → match → build context → auth check →
//	permission check → handler → track
//
// Every outcome is a Result; failures carry a Code from a closed set
// (see codes.go) and never surface as errors or panics.
//
// # Registering Routes
//
//	d := dispatch.New(auth.ContextProvider{}, dispatch.WithStore(store))
//	d.Register(dispatch.Route{
//	    Definition: router.Definition{Pattern: "/pay/:merchantId", RequiresAuth: true},
//	    Handler: func(ctx context.Context, params router.Params, rc *dispatch.Context) (dispatch.Result, error) {
//	        ...
//	        return dispatch.Success("Payment", map[string]any{"merchantId": params["merchantId"]}), nil
//	    },
//	})
//
// # Navigation Host and Queue
//
// Links routed before SetHost are queued and answered with
// NAVIGATION_NOT_READY. SetHost replays them in order, exactly once:
//
//	res := d.Route(ctx, "waqiti://home", dispatch.Partial{}) // queued
//	d.SetHost(ctx, host)                                     // replays it
//
// # Middleware
//
// Middleware wraps every routing call, replays included. Middleware that
// implements QueueObserver is told the queue depth whenever it changes.
package dispatch
