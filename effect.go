package mutant

// Effect observes the committed post-mutation state and may dispatch
// follow-up actions. It receives a plain snapshot, not a live reactive
// handle. Effects are where I/O belongs; at most one is installed per
// store (use CombineEffects to install several).
type Effect func(state any, action Action, dispatch Dispatcher)

// CombineEffects returns one Effect invoking each given effect in order
// against the same snapshot. A panicking effect does not prevent later
// effects from running; the first recovered panic is re-raised afterwards
// so the store reports it as an EffectFault.
func CombineEffects(effects ...Effect) Effect {
	return func(state any, action Action, dispatch Dispatcher) {
		var recovered any
		for _, eff := range effects {
			if eff == nil {
				continue
			}
			func() {
				defer func() {
					if r := recover(); r != nil && recovered == nil {
						recovered = r
					}
				}()
				eff(state, action, dispatch)
			}()
		}
		if recovered != nil {
			panic(recovered)
		}
	}
}
