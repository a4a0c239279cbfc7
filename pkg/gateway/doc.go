// Package gateway is the WebSocket session layer: connection upgrades,
// session lifecycle, frame dispatch, and the bridge between sessions and
// the event bus.
//
// One Gateway serves one endpoint. It authenticates upgrades (UI-session
// tokens or API keys, constant-time), enforces the origin allow-list and
// the connection cap, and hands each accepted socket a Session with its
// own token-bucket rate limit. Inbound frames are JSON envelopes
// {type, payload}; outbound frames use the same shape. Protocol failures
// are reported in-band as connection:error events and never close the
// socket; only auth (1008), origin (1008), capacity (1013), and shutdown
// (1001) produce close frames.
//
// Usage:
//
//	gw := gateway.New(gateway.Options{
//		Config: cfg.Gateway,
//		Bus:    bus.Default(),
//		Agent:  gateway.NewRouterAgent(router, "", ""),
//		Tokens: store,
//	})
//	gw.Start()
//	mux.Handle(cfg.Gateway.Path, gw)
//	defer gw.Shutdown(ctx)
//
// Chat frames stream assistant turns as chat:stream:start, a sequence of
// chat:stream:chunk events, chat:stream:end with the assembled reply, and
// a final chat:message. Without any configured provider the gateway
// streams a synthesized demo reply on the same event sequence.
//
// The event bridge (event:subscribe, event:unsubscribe, event:publish)
// attaches sessions to bus patterns, capped at MaxSessionSubscriptions per
// session, and admits client publishes only into the external. and
// client. namespaces with the source stamped "ws:<sessionID>".
package gateway
