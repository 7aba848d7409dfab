package subscription

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// Plan is the subscription tier the customer purchased. The recipe
// count fixes the cart capacity for every week of the plan's life.
type Plan struct {
	ID            uuid.UUID `json:"id" bson:"_id"`
	Name          string    `json:"name" bson:"name"`
	RecipeCount   int       `json:"recipe_count" bson:"recipe_count"`
	BasePrice     float64   `json:"base_price" bson:"base_price"`
	TaxRate       float64   `json:"tax_rate" bson:"tax_rate"`
	IsTaxIncluded bool      `json:"is_tax_included" bson:"is_tax_included"`
	Active        bool      `json:"active" bson:"active"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

func (p *Plan) GetID() uuid.UUID {
	return p.ID
}

func (p *Plan) SetID(id uuid.UUID) {
	p.ID = id
}

func (p *Plan) ResourceType() string {
	return "plan"
}

func NewPlan(name string, recipeCount int, basePrice float64) *Plan {
	return &Plan{
		ID:          apt.GenerateNewID(),
		Name:        name,
		RecipeCount: recipeCount,
		BasePrice:   basePrice,
		Active:      true,
	}
}

func (p *Plan) EnsureID() {
	if p.ID == uuid.Nil {
		p.ID = apt.GenerateNewID()
	}
}

func (p *Plan) BeforeCreate() {
	p.EnsureID()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
}

func (p *Plan) BeforeUpdate() {
	p.UpdatedAt = time.Now()
}
