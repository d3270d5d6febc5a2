// Package gosim runs behavioral designs written in Go.
//
// A Design declares its signal table and a Mount function. Mount is called
// once per instance and returns the Component that settles the design on
// every Eval; per-instance registers live in the closure, the way clocked
// parts keep their state:
//
//	Mount: func(st *gosim.State) gosim.Component {
//	    clk := st.Edge(sigClk)
//	    return func(st *gosim.State) bool {
//	        if clk.Rising(st) {
//	            st.Set(sigCount, st.Get(sigCount)+1)
//	        }
//	        return false
//	    }
//	}
//
// Designs are registered by name in a Registry, which is itself an
// engine.Loader. The package registers the reference designs counter,
// lfsr and ram in Default.
package gosim
