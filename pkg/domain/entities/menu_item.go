package entities

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MenuItemID represents a unique menu item identifier
type MenuItemID string

// IngredientReference is the amount of one ingredient needed for a single portion
type IngredientReference struct {
	IngredientID IngredientID
	Quantity     decimal.Decimal
	Unit         string
}

// MenuItem is a sellable item together with its recipe
type MenuItem struct {
	id         MenuItemID
	name       string
	price      decimal.Decimal
	references []IngredientReference
}

// NewMenuItem creates a validated MenuItem. Reference quantities are checked at consumption time.
func NewMenuItem(id MenuItemID, name string, price decimal.Decimal, references []IngredientReference) (*MenuItem, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, NewValidationError("menu item id cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, NewValidationError("menu item name cannot be empty")
	}
	if price.IsNegative() {
		return nil, NewValidationError("menu item price cannot be negative, got %s", price.String())
	}

	refs := make([]IngredientReference, len(references))
	copy(refs, references)

	return &MenuItem{
		id:         id,
		name:       name,
		price:      price,
		references: refs,
	}, nil
}

func (m *MenuItem) ID() MenuItemID { return m.id }
func (m *MenuItem) Name() string { return m.name }
func (m *MenuItem) Price() decimal.Decimal { return m.price }

// RequiredIngredients returns a copy of the recipe
func (m *MenuItem) RequiredIngredients() []IngredientReference {
	refs := make([]IngredientReference, len(m.references))
	copy(refs, m.references)
	return refs
}

// IngredientIDs returns the distinct ingredient ids of the recipe in first-seen order
func (m *MenuItem) IngredientIDs() []IngredientID {
	seen := make(map[IngredientID]bool, len(m.references))
	ids := make([]IngredientID, 0, len(m.references))
	for _, ref := range m.references {
		if seen[ref.IngredientID] {
			continue
		}
		seen[ref.IngredientID] = true
		ids = append(ids, ref.IngredientID)
	}
	return ids
}
