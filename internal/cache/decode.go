package cache

import "encoding/json"

// As converts a value returned by ResultCache.Get into the concrete type the
// caller stored. The memory cache hands back the original pointer; the SQL
// caches hand back the stored JSON, which is decoded here. A value of the
// wrong shape reads as a miss.
func As[T any](value any) (*T, bool) {
	switch v := value.(type) {
	case *T:
		return v, true
	case json.RawMessage:
		var out T
		if err := json.Unmarshal(v, &out); err != nil {
			return nil, false
		}
		return &out, true
	default:
		return nil, false
	}
}
