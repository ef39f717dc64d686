// Package store holds the client-side state containers.
//
// Each container caches one entity list together with a loading flag, the
// last error message and a filter. Operations call the matching service,
// then replace the state as a whole; a published State is never modified,
// so subscribers may keep the snapshots they receive.
//
//	events := store.NewEvents(eventSvc, notificationSvc, logger)
//	stop := events.Subscribe(func(s store.EventState) {
//	    render(s.Items, s.IsLoading, s.Error)
//	})
//	defer stop()
//	err := events.FetchAll(ctx, nil)
//
// Concurrent operations are allowed; the last state written wins.
package store
