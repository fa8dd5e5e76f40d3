package schema

import (
	"time"
)

// Currency represents the currencies table - the ordered stablecoin registry.
// Slot indices are dense and fixed; the address mapping changes only through
// an atomic bulk replacement of the whole list.
type Currency struct {
	// Idx is the registry slot (0..arity-1)
	Idx int `gorm:"column:idx;primaryKey;autoIncrement:false"`
	// Address is the token contract address registered at this slot
	Address string `gorm:"column:address;not null;type:text"`
	// UpdatedAt is the timestamp of the last registry replacement
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Currency model
func (Currency) TableName() string {
	return "currencies"
}
