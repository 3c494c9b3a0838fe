package drinks

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func water() Input {
	return Input{
		Title:  strPtr("Water"),
		Recipe: Recipe{{Name: "Water", Color: "blue", Parts: 1}},
	}
}

func TestRecipeAcceptsObjectOrArray(t *testing.T) {
	var obj Input
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Matcha","recipe":{"name":"milk","color":"grey","parts":1}}`), &obj))
	assert.Equal(t, Recipe{{Name: "milk", Color: "grey", Parts: 1}}, obj.Recipe)

	var arr Input
	require.NoError(t, json.Unmarshal([]byte(`{"recipe":[{"name":"milk","color":"grey","parts":1},{"name":"matcha","color":"green","parts":3}]}`), &arr))
	assert.Len(t, arr.Recipe, 2)
	assert.Nil(t, arr.Title)

	var bad Input
	assert.Error(t, json.Unmarshal([]byte(`{"recipe":"milk"}`), &bad))
}

func TestShortHidesIngredientNames(t *testing.T) {
	d := Drink{ID: 3, Title: "Flat White", Recipe: Recipe{
		{Name: "espresso", Color: "brown", Parts: 1},
		{Name: "milk", Color: "white", Parts: 2},
	}}

	data, err := json.Marshal(d.Short())
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"title":"Flat White","recipe":[{"color":"brown","parts":1},{"color":"white","parts":2}]}`, string(data))

	long := d.Long()
	long.Recipe[0].Name = "changed"
	assert.Equal(t, "espresso", d.Recipe[0].Name)
}

func TestInputValidation(t *testing.T) {
	tests := []struct {
		name   string
		in     Input
		create bool
		ok     bool
	}{
		{"create ok", water(), true, true},
		{"create without title", Input{Recipe: water().Recipe}, true, false},
		{"create without recipe", Input{Title: strPtr("x")}, true, false},
		{"blank title", Input{Title: strPtr("  "), Recipe: water().Recipe}, true, false},
		{"empty recipe", Input{Title: strPtr("x"), Recipe: Recipe{}}, true, false},
		{"zero parts", Input{Title: strPtr("x"), Recipe: Recipe{{Name: "a", Color: "b"}}}, true, false},
		{"missing color", Input{Title: strPtr("x"), Recipe: Recipe{{Name: "a", Parts: 1}}}, true, false},
		{"patch title only", Input{Title: strPtr("Sparkling")}, false, true},
		{"patch nothing", Input{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.create {
				err = tt.in.ValidateCreate()
			} else {
				err = tt.in.ValidatePatch()
			}
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()

	created, err := s.Create(water())
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)

	_, err = s.Create(Input{Title: strPtr("water"), Recipe: water().Recipe})
	assert.ErrorIs(t, err, ErrDuplicateTitle)

	second, err := s.Create(Input{Title: strPtr("Lemonade"), Recipe: Recipe{{Name: "lemon", Color: "yellow", Parts: 2}}})
	require.NoError(t, err)
	assert.Equal(t, 2, second.ID)

	updated, err := s.Update(second.ID, Input{Title: strPtr("Pink Lemonade")})
	require.NoError(t, err)
	assert.Equal(t, "Pink Lemonade", updated.Title)
	assert.Equal(t, second.Recipe, updated.Recipe)

	_, err = s.Update(second.ID, Input{Title: strPtr("Water")})
	assert.ErrorIs(t, err, ErrDuplicateTitle)

	_, err = s.Update(99, Input{Title: strPtr("Ghost")})
	assert.ErrorIs(t, err, ErrNotFound)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, []int{1, 2}, []int{list[0].ID, list[1].ID})

	require.NoError(t, s.Delete(1))
	assert.ErrorIs(t, s.Delete(1), ErrNotFound)
	_, err = s.Get(1)
	assert.ErrorIs(t, err, ErrNotFound)

	// ids are never reused
	third, err := s.Create(water())
	require.NoError(t, err)
	assert.Equal(t, 3, third.ID)
}

func TestStoreConcurrentCreate(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Create(water())
		}()
	}
	wg.Wait()

	assert.Len(t, s.List(), 1)
}

func TestLoadSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
drinks:
  - title: Water
    recipe:
      name: water
      color: blue
      parts: 1
  - title: Lemonade
    recipe:
      - name: lemon
        color: yellow
        parts: 1
      - name: water
        color: blue
        parts: 3
`), 0o600))

	s := NewStore()
	n, err := s.LoadSeed(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	d, err := s.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "Lemonade", d.Title)
	assert.Len(t, d.Recipe, 2)

	_, err = s.LoadSeed(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("drinks:\n  - title: Broken\n"), 0o600))
	_, err = NewStore().LoadSeed(path)
	assert.ErrorIs(t, err, ErrInvalid)
}
