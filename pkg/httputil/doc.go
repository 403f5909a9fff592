// Package httputil provides the HTTP plumbing of the crisprtower API.
//
// # Overview
//
// The server in internal/server is a thin chi router over the pipeline. This
// package holds the parts every handler shares:
//
//   - [WriteJSON] and [WriteError]: response encoding
//   - [RequestID]: request ids taken from X-Request-ID or generated
//   - [Observe]: per-route request hooks for metrics
//   - [QueryList] and [QueryBool]: query parameter parsing
//
// # Errors
//
// [WriteError] maps structured errors from pkg/errors to a status code with
// [errors.HTTPStatus] and writes a JSON body:
//
//	{"error": {"code": "NOT_FOUND", "message": "..."}, "request_id": "..."}
//
// Internal errors are logged and reported without their message.
//
// # Metrics
//
// [Observe] reports every request to [observability.HTTP] with the chi route
// pattern ("/api/v1/datasets/{name}/scene") rather than the raw path, so
// metric cardinality stays bounded by the number of routes.
//
// [errors.HTTPStatus]: github.com/matzehuels/crisprtower/pkg/errors.HTTPStatus
// [observability.HTTP]: github.com/matzehuels/crisprtower/pkg/observability.HTTP
package httputil
