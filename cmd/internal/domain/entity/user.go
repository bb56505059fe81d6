package entity

// User is the general basic structure of all agents using the helper tool.
//
// The presence columns (IsOnline, LastSeen) are owned by the presence
// reconciler. Profile updates must never write them.
type User struct {
	ID          int64      `gorm:"primaryKey;autoIncrement:false"`
	SubUUID     string     `gorm:"not null;index"`
	Username    string     `gorm:"not null"`
	Email       string     `gorm:"not null;uniqueIndex"`
	Permissions Permission `gorm:"not null;type:bigint;default:0"`
	Active      bool       `gorm:"not null;default:true"`
	CreatedAt   int64      `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   int64      `gorm:"not null;autoUpdateTime:false"`

	// Presence record
	IsOnline bool  `gorm:"not null;default:false;index"`
	LastSeen int64 `gorm:"not null;default:0"`
}
