// Package interrupt implements cooperative suspension of tool calls.
//
// A tool that needs an external decision calls Suspend. The first time the
// call runs, Suspend returns an *Interrupt error; the tool returns it and the
// kernel unwinds the run, persisting a session.Suspension through the Gate.
// When the caller later supplies a decision, the kernel binds it to a context
// with Gate.Bind and executes the same call again. This time Suspend returns
// the decision, so the tool finishes from the point where it paused:
//
//	decision, err := interrupt.Suspend(ctx, "Approve buying 20 AAPL stocks for $3804.00?")
//	if err != nil {
//		return tools.Result{}, err
//	}
//	if decision.Approved() {
//		// ...
//	}
//
// Tools must therefore be deterministic up to their Suspend call: the resumed
// execution has to reach Suspend with the same prompt it produced before.
package interrupt
