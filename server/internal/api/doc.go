// Package api implements the read-only REST surface under /api/v1.
//
// Routes (GET only, anything else is 405):
//
//	/api/v1/targets              active targets, strongest signal first
//	/api/v1/targets/active       same as /targets
//	/api/v1/targets/{id}         one target, 404 if unknown
//	/api/v1/targets/type/{type}  active targets of one classification
//	/api/v1/statistics           derived statistics
//	/api/v1/health               health report plus diagnostic hints
//	/api/v1/alerts               firing and recently resolved alerts
//	/api/v1/snapshot             targets, statistics and health in one document
//
// All bodies are JSON. Errors are {"error": "..."}.
package api
