// Package handle provides opaque, generation-checked handles.
//
// A Handle names one value owned by a Table. Handles expose no arithmetic;
// they can only be compared, printed and round-tripped through Uint64 or
// Parse for transport.
//
//	table := handle.NewTable[*Session]()
//
//	h, err := table.Insert(sess)
//	sess, ok := table.Get(h)
//	sess, ok = table.Remove(h) // h is now permanently invalid
//
// # Generations
//
// Slots are recycled after Remove, but each reuse increments the slot's
// generation. A handle kept past its Remove therefore never resolves to the
// value that later occupies the same slot:
//
//	h1, _ := table.Insert(a)
//	table.Remove(h1)
//	h2, _ := table.Insert(b) // same slot, next generation
//	_, ok := table.Get(h1)   // ok == false
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	table.Subscribe(handle.ObserverFunc(func(e handle.Event) {
//	    log.Printf("handle %s %s", e.Handle, e.Type)
//	}))
package handle
