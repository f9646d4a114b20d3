// Package dispatch runs view callbacks with panic recovery.
//
// Listener callbacks and renderer passes are user code. An Executor runs
// each one, turns a returned error or a recovered panic into a Result and
// counts the outcome, so the caller decides where the failure is reported
// and nothing unwinds through the dataflow or the event handler.
//
//	exec := dispatch.NewExecutor()
//	if err := exec.ExecuteFunc(ctx, "resize", fn).Err(); err != nil {
//	    report(err)
//	}
package dispatch
