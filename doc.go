// Package flexbase is the FlexBase API server: a social catalogue where
// collectors post photos and videos of what they own.
//
// The code is organized into subpackages:
//
//   - cmd/server: HTTP and websocket server
//   - cmd/seed: development data seeder
//   - cmd/cli: command line client for the JSON API
//   - internal/handlers: JSON API and server rendered page handlers
//   - internal/social: posts, follows, likes, comments and collections
//   - internal/visibility: who may see which post
//   - internal/repository: Mongo and in-memory stores
//   - internal/websocket: realtime hub, user channels and post rooms
//   - internal/storage: media uploads to S3 or local disk
//   - internal/auth: signup, login and session tokens
//   - internal/middleware: request IDs, logging, rate limits, errors
//   - internal/container: dependency wiring and lifecycle
//
// See the individual package documentation for detailed API reference.
package flexbase
