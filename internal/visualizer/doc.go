// Package visualizer renders live frequency bands from the active capture
// session while the user is speaking. It samples the session's recent audio
// window on a fixed refresh tick, folds the spectrum into a small number of
// bands, and hands them to a renderer. A visualizer never outlives the
// capture session it reads from; Stop is idempotent and safe to call from
// any teardown path.
package visualizer
