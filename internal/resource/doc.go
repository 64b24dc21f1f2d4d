// Package resource admits filtered queries under global limits.
//
// A Controller bounds two things:
//
//   - Concurrency: the number of selects executing at once. Further
//     callers block in AcquireSelect until a slot frees or their context
//     ends.
//   - Memory: the bytes of decoded request bitsets held by in-flight
//     selects. AcquireMemory never blocks; it fails with
//     ErrMemoryLimitExceeded and the caller rejects the request.
//
// A nil *Controller admits everything:
//
//	rc := resource.NewController(resource.Config{
//	    MaxConcurrentSelects: 32,
//	    MemoryLimitBytes:     1 << 30,
//	})
//	if err := rc.AcquireSelect(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseSelect()
package resource
