/*
Package ports defines the driven ports (interfaces) of the TaskUp client core.

These interfaces decouple the store, router and auth manager from external
implementations so each can be constructed in isolation and tested with fakes.

# Key Interfaces

  - KVStore: string blob storage for the persisted session (memory, file, redis, sqlite).
  - Gateway: outbound HTTP calls with a bearer token (see pkg/gateway).
  - Notifier: user-facing toasts (success, info, error).
*/
package ports
