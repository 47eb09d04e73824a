package engine

// Event records a state transition for the block event log. Attrs hold
// string key/value pairs; the ABCI layer sorts keys before emitting so
// the log is deterministic across nodes.
type Event struct {
	Type  string
	Attrs map[string]string
}

func event(typ string, kv ...string) Event {
	attrs := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs[kv[i]] = kv[i+1]
	}
	return Event{Type: typ, Attrs: attrs}
}
