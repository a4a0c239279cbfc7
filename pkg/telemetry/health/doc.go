// Package health implements the liveness and readiness probes behind
// the gateway's /healthz and /readyz endpoints.
//
// # Liveness vs readiness
//
// Liveness (/healthz) answers 200 whenever the process can answer at
// all; orchestrators use it to decide when to restart. Readiness
// (/readyz) runs every registered check and answers 503 while any of
// them fails; load balancers use it to decide when to send traffic.
//
// # Usage
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("providers", func(ctx context.Context) error {
//	    if len(registry.Configured()) == 0 {
//	        return errors.New("no provider configured")
//	    }
//	    return nil
//	})
//
//	mux.HandleFunc("/healthz", checker.LivenessHandler())
//	mux.HandleFunc("/readyz", checker.ReadinessHandler())
//
// Checks run concurrently, each under the checker's per-check timeout,
// so one stuck component cannot wedge the probe.
package health
