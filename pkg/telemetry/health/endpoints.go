package health

import (
	"encoding/json"
	"net/http"
)

// LivenessHandler returns the handler for GET /healthz. It answers 200
// whenever the process is able to answer at all.
//
// Example response:
//
//	{
//	    "status": "ok",
//	    "timestamp": "2026-08-25T10:30:00Z"
//	}
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := c.Liveness(r.Context())
		writeStatus(w, r, http.StatusOK, status)
	}
}

// ReadinessHandler returns the handler for GET /readyz. It runs every
// registered check and answers 200 once all of them pass, or 503 while
// any of them fails, so load balancers hold traffic until the gateway
// can actually route requests.
//
// Example response (degraded):
//
//	{
//	    "status": "degraded",
//	    "checks": {
//	        "providers": {"status": "unhealthy", "message": "no provider configured"}
//	    },
//	    "timestamp": "2026-08-25T10:30:00Z"
//	}
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := c.Readiness(r.Context())
		code := http.StatusOK
		if status.Status != "ready" {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, r, code, status)
	}
}

func writeStatus(w http.ResponseWriter, r *http.Request, code int, status Status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(status)
	}
}
