package models

// Entity is a stored graph node: the matched span text and the recognizer's label.
// Name is the identity key; Label is not part of it.
type Entity struct {
	Name  string `bson:"name" json:"name"`
	Label string `bson:"label" json:"label"`
}

// Pair renders the entity the way the extract endpoint reports it: [text, label].
func (e Entity) Pair() [2]string {
	return [2]string{e.Name, e.Label}
}

// Pairs converts a recognizer result into the [[text, label], ...] response shape.
func Pairs(entities []Entity) [][2]string {
	out := make([][2]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Pair())
	}
	return out
}

// DedupeByName collapses entities sharing a name. The label of the last occurrence
// wins; the result keeps the order in which names first appeared.
func DedupeByName(entities []Entity) []Entity {
	index := make(map[string]int, len(entities))
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		if i, ok := index[e.Name]; ok {
			out[i].Label = e.Label
			continue
		}
		index[e.Name] = len(out)
		out = append(out, e)
	}
	return out
}
