package model

// All lists the persisted models in dependency order.
func All() []interface{} {
	return []interface{}{
		&ChatSession{},
		&ChatMessage{},
	}
}
