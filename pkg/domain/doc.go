/*
Package domain contains the core models shared by the TaskUp client core.

It defines the vocabulary that the state store, the router and the session manager
agree on. The package is kept free of I/O and persistence so every other package can
depend on it without pulling adapters along.

# Key Entities

  - Action: an immutable message dispatched to the state store (closed ActionType enum).
  - Slices: AppState, UserState, ProjectsState, TasksState, TeamsState, NotificationsState, UIState.
  - Session: the authenticated-user/token bundle owned by the session manager.
  - User: a profile document with typed well-known fields and free-form extras.
  - LifecycleHooks: observability callbacks fired by the store, router and session manager.
*/
package domain
