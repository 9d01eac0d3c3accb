package models

import "time"

type Supplier struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"index;size:36;not null" json:"tenant_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	GstNumber string    `gorm:"size:20" json:"gst_number"`
	Address   string    `gorm:"type:text" json:"address"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
