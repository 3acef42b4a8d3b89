package types

// ValueStore is an ordered collection of named values, used for construct
// inputs, outputs, and scoped workspace values. Iteration follows insertion
// order.
type ValueStore struct {
	// Name labels the store for diagnostics, typically the construct name.
	Name string

	keys   []string
	values map[string]Value
}

// NewValueStore creates an empty named value store.
func NewValueStore(name string) *ValueStore {
	return &ValueStore{
		Name:   name,
		values: make(map[string]Value),
	}
}

// Insert adds or replaces the value under key. A replaced key keeps its
// original position.
func (s *ValueStore) Insert(key string, value Value) {
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the value under key.
func (s *ValueStore) Get(key string) (Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

// GetOr returns the value under key, or fallback when absent.
func (s *ValueStore) GetOr(key string, fallback Value) Value {
	if v, ok := s.values[key]; ok {
		return v
	}
	return fallback
}

// GetString returns the string value under key.
func (s *ValueStore) GetString(key string) (string, bool) {
	v, ok := s.values[key]
	if !ok {
		return "", false
	}
	return v.AsString()
}

// GetInt returns the integer value under key.
func (s *ValueStore) GetInt(key string) (int64, bool) {
	v, ok := s.values[key]
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// GetBool returns the boolean value under key.
func (s *ValueStore) GetBool(key string) (bool, bool) {
	v, ok := s.values[key]
	if !ok {
		return false, false
	}
	return v.AsBool()
}

// Has reports whether key is present.
func (s *ValueStore) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Delete removes key from the store.
func (s *ValueStore) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (s *ValueStore) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Len returns the number of entries.
func (s *ValueStore) Len() int {
	return len(s.keys)
}

// Iter calls fn for each entry in insertion order, stopping early when fn
// returns false.
func (s *ValueStore) Iter(fn func(key string, value Value) bool) {
	for _, k := range s.keys {
		if !fn(k, s.values[k]) {
			return
		}
	}
}

// Merge inserts every entry of other into this store, overwriting existing
// keys.
func (s *ValueStore) Merge(other *ValueStore) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		s.Insert(k, other.values[k])
	}
}

// Clone returns a shallow copy of the store.
func (s *ValueStore) Clone() *ValueStore {
	out := NewValueStore(s.Name)
	for _, k := range s.keys {
		out.Insert(k, s.values[k])
	}
	return out
}

// ToObject converts the store into an ordered object value.
func (s *ValueStore) ToObject() Value {
	obj := ObjectValue()
	for _, k := range s.keys {
		obj.SetKey(k, s.values[k])
	}
	return obj
}

// Fingerprint computes the digest of the store contents. Key order does not
// affect the result.
func (s *ValueStore) Fingerprint() Did {
	return s.ToObject().Fingerprint()
}
