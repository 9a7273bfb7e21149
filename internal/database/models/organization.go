package models

type Organization struct {
	Base
	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	// Relationships
	Users     []User     `gorm:"foreignKey:OrganizationID" json:"-"`
	Clients   []Client   `gorm:"foreignKey:OrganizationID" json:"-"`
	Documents []Document `gorm:"foreignKey:OrganizationID" json:"-"`
	Tasks     []Task     `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}
