/*
Package reducers holds the seven slice reducers of the application state tree
and its initial value.

Every reducer returns its input pointer unchanged for actions it does not
handle, and a fresh copy otherwise, so unrelated slices keep their identity
across dispatches.

	s := store.New(reducers.InitialState())
	reducers.RegisterAll(s)
*/
package reducers
