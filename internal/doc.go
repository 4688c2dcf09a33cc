// Package internal runs cost and recurrence analyses over pseudocode trees.
//
// Session analyzes one tree: it builds the cost table of an iterative
// procedure or extracts and solves the recurrence of a recursive one, in a
// single case or in all cases at once. Engine reads files, picking the JSON
// AST reader or the Go frontend by extension, and runs a Session per
// procedure.
//
// Cache stores encoded results keyed by source hash and analysis options.
// Watcher re-runs the engine when watched files change.
//
// Usage:
//
//	engine := internal.NewEngine(internal.Options{Logger: logger})
//	results, err := engine.Run("fib.json", types.Worst)
//	if err != nil {
//	    // handle error
//	}
//	for _, r := range results {
//	    fmt.Println(r.Procedure, r.Totals.BigTheta)
//	}
package internal
