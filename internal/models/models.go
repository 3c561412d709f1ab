package models

import "time"

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FullName     string     `gorm:"size:200;not null" json:"full_name"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	IsSuperuser  bool       `gorm:"not null" json:"is_superuser"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ModuleKind string

const (
	ModuleMenu    ModuleKind = "menu"
	ModulePage    ModuleKind = "page"
	ModuleFeature ModuleKind = "feature"
	ModuleAPI     ModuleKind = "api"
)

func (k ModuleKind) Valid() bool {
	switch k {
	case ModuleMenu, ModulePage, ModuleFeature, ModuleAPI:
		return true
	}
	return false
}

type Module struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description *string    `gorm:"type:text" json:"description"`
	Route       *string    `gorm:"size:255" json:"route"`
	Icon        *string    `gorm:"size:100" json:"icon"`
	Kind        ModuleKind `gorm:"size:20;not null" json:"kind"`
	Order       int        `gorm:"column:display_order;not null" json:"order"`
	IsActive    bool       `gorm:"not null" json:"is_active"`
	ParentID    *uint      `gorm:"index" json:"parent_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Permission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Code        string    `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Description *string   `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderOther       Gender = "other"
	GenderUndisclosed Gender = "undisclosed"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUndisclosed:
		return true
	}
	return false
}

// Person is the optional one-to-one profile of a User.
type Person struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	NationalID    *string   `gorm:"size:20;uniqueIndex" json:"national_id"`
	BirthDate     *Date     `gorm:"type:date" json:"birth_date"`
	Gender        *Gender   `gorm:"size:20" json:"gender"`
	Phone         *string   `gorm:"size:20" json:"phone"`
	AltPhone      *string   `gorm:"size:20" json:"alt_phone"`
	AltEmail      *string   `gorm:"size:255" json:"alt_email"`
	Address       *string   `gorm:"type:text" json:"address"`
	City          *string   `gorm:"size:100" json:"city"`
	StateProvince *string   `gorm:"size:100" json:"state_province"`
	PostalCode    *string   `gorm:"size:20" json:"postal_code"`
	Country       *string   `gorm:"size:100" json:"country"`
	PhotoURL      *string   `gorm:"size:500" json:"photo_url"`
	Bio           *string   `gorm:"type:text" json:"bio"`
	Website       *string   `gorm:"size:255" json:"website"`
	LinkedIn      *string   `gorm:"size:255" json:"linkedin"`
	Twitter       *string   `gorm:"size:255" json:"twitter"`
	GitHub        *string   `gorm:"size:255" json:"github"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Junction rows. Each pair is unique; IsActive gates visibility in queries.

type UserRole struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_role" json:"user_id"`
	RoleID     uint      `gorm:"not null;uniqueIndex:idx_user_role;index" json:"role_id"`
	IsActive   bool      `gorm:"not null" json:"is_active"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`
}

type RoleModule struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RoleID     uint      `gorm:"not null;uniqueIndex:idx_role_module" json:"role_id"`
	ModuleID   uint      `gorm:"not null;uniqueIndex:idx_role_module;index" json:"module_id"`
	IsActive   bool      `gorm:"not null" json:"is_active"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`
}

type RolePermission struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RoleID       uint      `gorm:"not null;uniqueIndex:idx_role_permission" json:"role_id"`
	PermissionID uint      `gorm:"not null;uniqueIndex:idx_role_permission;index" json:"permission_id"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	AssignedAt   time.Time `gorm:"not null" json:"assigned_at"`
}

type ModulePermission struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ModuleID     uint      `gorm:"not null;uniqueIndex:idx_module_permission" json:"module_id"`
	PermissionID uint      `gorm:"not null;uniqueIndex:idx_module_permission;index" json:"permission_id"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	AssignedAt   time.Time `gorm:"not null" json:"assigned_at"`
}

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ActorID   *uint     `gorm:"index" json:"actor_id,omitempty"`
	Action    string    `gorm:"size:64;not null" json:"action"`
	Entity    string    `gorm:"size:32;not null" json:"entity"`
	EntityID  uint      `json:"entity_id"`
	Metadata  JSONB     `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Session backs one issued access token, keyed by its jti claim.
type Session struct {
	JTI       string     `gorm:"primaryKey;size:64" json:"jti"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
