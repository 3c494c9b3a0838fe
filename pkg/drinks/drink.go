// Package drinks holds the drinks catalog: the model, its validation and an
// in-memory store.
package drinks

import (
	"bytes"
	"encoding/json"
	"slices"

	"gopkg.in/yaml.v3"
)

type Ingredient struct {
	Name  string `json:"name" yaml:"name" validate:"required,max=80"`
	Color string `json:"color" yaml:"color" validate:"required,max=40"`
	Parts int    `json:"parts" yaml:"parts" validate:"required,min=1,max=100"`
}

// Recipe is an ordered list of ingredients. A single ingredient object is
// accepted wherever a recipe is decoded.
type Recipe []Ingredient

func (r *Recipe) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var one Ingredient
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*r = Recipe{one}
		return nil
	}
	var many []Ingredient
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*r = many
	return nil
}

func (r *Recipe) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		var one Ingredient
		if err := node.Decode(&one); err != nil {
			return err
		}
		*r = Recipe{one}
		return nil
	}
	var many []Ingredient
	if err := node.Decode(&many); err != nil {
		return err
	}
	*r = many
	return nil
}

type Drink struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Recipe Recipe `json:"recipe"`
}

// ShortIngredient is the public view of an ingredient, without its name.
type ShortIngredient struct {
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

type ShortDrink struct {
	ID     int               `json:"id"`
	Title  string            `json:"title"`
	Recipe []ShortIngredient `json:"recipe"`
}

// Short is the representation served to anonymous callers.
func (d Drink) Short() ShortDrink {
	out := ShortDrink{ID: d.ID, Title: d.Title, Recipe: make([]ShortIngredient, 0, len(d.Recipe))}
	for _, ing := range d.Recipe {
		out.Recipe = append(out.Recipe, ShortIngredient{Color: ing.Color, Parts: ing.Parts})
	}
	return out
}

// Long is the full representation, including ingredient names.
func (d Drink) Long() Drink {
	d.Recipe = slices.Clone(d.Recipe)
	if d.Recipe == nil {
		d.Recipe = Recipe{}
	}
	return d
}
