// Package server provides HTTP routing, middleware, and the collection API handlers.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # API Handlers
//
// [CollectHandler] serves the task API:
//
//	POST /api/v1/collect          submit a collection task
//	GET  /api/v1/status/{taskId}  read a task snapshot
//	GET  /api/v1/tasks            paginated task listing
//
// [HealthHandler] serves GET /health, returning 503 when the persistence
// gateway is unreachable.
//
// Validation failures map to 400 with a machine-readable error code, unknown
// tasks to 404, and everything else to 500.
package server
