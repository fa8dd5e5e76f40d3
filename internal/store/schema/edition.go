package schema

import (
	"time"
)

// Edition represents the editions table - a single row holding the mutable
// edition-level state: role addresses, the sale ladder and cap, and the
// treasury split policy. The row is created at seeding time.
type Edition struct {
	// ID is always 1; the table holds a single row
	ID int64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	// TotalSupply is the fixed number of assets in the edition
	TotalSupply uint64 `gorm:"column:total_supply;not null"`
	// InitialPrice and PriceIncrement define the sale price ladder in whole
	// currency-agnostic units
	InitialPrice   uint64 `gorm:"column:initial_price;not null"`
	PriceIncrement uint64 `gorm:"column:price_increment;not null"`
	// MaxSaleIndex caps which sale indices are currently purchasable
	MaxSaleIndex uint64 `gorm:"column:max_sale_index;not null"`
	// StageFee is the whole-unit fee pulled when a stage change is requested
	StageFee uint64 `gorm:"column:stage_fee;not null"`
	// ArtistShareBps is the artist's share of withdrawals in basis points;
	// the developer receives the exact remainder
	ArtistShareBps uint64 `gorm:"column:artist_share_bps;not null"`
	// AllowStageSkip permits admin stage assignments that jump forward more
	// than one step
	AllowStageSkip bool `gorm:"column:allow_stage_skip;not null;default:false"`
	// OwnerAddress holds the creation-time owner role
	OwnerAddress string `gorm:"column:owner_address;not null;type:text"`
	// AdminAddress holds the admin role (the owner always has admin rights)
	AdminAddress string `gorm:"column:admin_address;not null;type:text"`
	// ArtistAddress and DeveloperAddress are the two withdrawal payees
	ArtistAddress    string `gorm:"column:artist_address;not null;type:text"`
	DeveloperAddress string `gorm:"column:developer_address;not null;type:text"`
	// CustodyAddress is the account under which unsold inventory and sale
	// proceeds are held
	CustodyAddress string `gorm:"column:custody_address;not null;type:text"`
	// BaseURI is the metadata host prefix for tokenURI resolution
	BaseURI string `gorm:"column:base_uri;not null;type:text"`
	// CreatedAt is the seeding timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last configuration change
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Edition model
func (Edition) TableName() string {
	return "editions"
}
