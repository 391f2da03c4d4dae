// Package specialty keeps the catalogue of medical specialties shown in the public directory.
package specialty

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("specialty not found")
	ErrNameTaken  = errors.New("specialty already exists")
	ErrValidation = errors.New("validation failed")
)

const MaxDescriptionLength = 500

type Specialty struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	IsActive     bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name         *string
	Description  *string
	IsActive     *bool
	DisplayOrder *int
}

func (p Patch) empty() bool {
	return p.Name == nil && p.Description == nil && p.IsActive == nil && p.DisplayOrder == nil
}
