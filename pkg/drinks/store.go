package drinks

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound       = errors.New("drink not found")
	ErrDuplicateTitle = errors.New("a drink with this title already exists")
)

// Store is an in-memory catalog safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	drinks map[int]Drink
	nextID int
}

func NewStore() *Store {
	return &Store{drinks: make(map[int]Drink), nextID: 1}
}

// List returns all drinks ordered by id.
func (s *Store) List() []Drink {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Drink, 0, len(s.drinks))
	for _, d := range s.drinks {
		out = append(out, d.Long())
	}
	slices.SortFunc(out, func(a, b Drink) int { return a.ID - b.ID })
	return out
}

func (s *Store) Get(id int) (Drink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drinks[id]
	if !ok {
		return Drink{}, ErrNotFound
	}
	return d.Long(), nil
}

func (s *Store) Create(in Input) (Drink, error) {
	if err := in.ValidateCreate(); err != nil {
		return Drink{}, err
	}
	title := strings.TrimSpace(*in.Title)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.titleTaken(title, 0) {
		return Drink{}, ErrDuplicateTitle
	}

	d := Drink{ID: s.nextID, Title: title, Recipe: slices.Clone(in.Recipe)}
	s.drinks[d.ID] = d
	s.nextID++
	return d.Long(), nil
}

func (s *Store) Update(id int, in Input) (Drink, error) {
	if err := in.ValidatePatch(); err != nil {
		return Drink{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drinks[id]
	if !ok {
		return Drink{}, ErrNotFound
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if s.titleTaken(title, id) {
			return Drink{}, ErrDuplicateTitle
		}
		d.Title = title
	}
	if in.Recipe != nil {
		d.Recipe = slices.Clone(in.Recipe)
	}
	s.drinks[id] = d
	return d.Long(), nil
}

func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drinks[id]; !ok {
		return ErrNotFound
	}
	delete(s.drinks, id)
	return nil
}

// titleTaken must be called with the lock held.
func (s *Store) titleTaken(title string, except int) bool {
	for id, d := range s.drinks {
		if id != except && strings.EqualFold(d.Title, title) {
			return true
		}
	}
	return false
}

type seedFile struct {
	Drinks []Input `yaml:"drinks"`
}

// LoadSeed adds the drinks listed in a YAML file and returns how many were added.
func (s *Store) LoadSeed(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	for i, in := range seed.Drinks {
		if _, err := s.Create(in); err != nil {
			return i, fmt.Errorf("seed drink #%d: %w", i+1, err)
		}
	}

	slog.Info("Loaded seed drinks", "file", path, "count", len(seed.Drinks))
	return len(seed.Drinks), nil
}
