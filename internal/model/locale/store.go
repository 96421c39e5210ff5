package locale

// Store exposes locale retrieval for prompts and HTTP handlers.
type Store interface {
	List() []Locale
	FindByCode(code string) (Locale, bool)
}

// MemoryStore implements Store over an in-memory slice.
type MemoryStore struct {
	items []Locale
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied locales.
func NewMemoryStore(items []Locale) *MemoryStore {
	return &MemoryStore{items: append([]Locale(nil), items...)}
}

// List returns the catalog in seed order.
func (s *MemoryStore) List() []Locale {
	return append([]Locale(nil), s.items...)
}

// FindByCode looks up a locale by normalized language code.
func (s *MemoryStore) FindByCode(code string) (Locale, bool) {
	code = Normalize(code)
	for _, item := range s.items {
		if item.Code == code {
			return item, true
		}
	}
	return Locale{}, false
}

// Resolve returns the catalog entry for code, falling back to the default
// language when the code is unknown.
func Resolve(s Store, code string) Locale {
	if loc, ok := s.FindByCode(code); ok {
		return loc
	}
	loc, _ := s.FindByCode(DefaultCode)
	return loc
}
