package models

import "time"

// Role is a coded permission bundle
type Role struct {
	RoleID      int64      `json:"roleId"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	UserGroupID *int64     `json:"userGroupId"`
	IsActive    bool       `json:"isActive"`
	SortID      *int       `json:"sortId,omitempty"`
	CreatedAt   time.Time  `json:"createdDate"`
	ModifiedAt  *time.Time `json:"modifiedDate,omitempty"`
}

// RoleGrant links a role to one catalog entry
type RoleGrant struct {
	ID                          int64 `json:"id"`
	RoleID                      int64 `json:"roleId"`
	ModuleInterfacePermissionID int64 `json:"moduleInterfacePermissionId"`
	IsActive                    bool  `json:"isActive"`
}

// UserRole assigns a role to an account
type UserRole struct {
	UserID   int64 `json:"userId"`
	RoleID   int64 `json:"roleId"`
	IsActive bool  `json:"isActive"`
	Role     *Role `json:"role,omitempty"`
}

// RoleView is a role with its full permission matrix
type RoleView struct {
	RoleID      int64        `json:"roleId"`
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	UserGroupID *int64       `json:"userGroupId"`
	IsActive    bool         `json:"isActive"`
	Permissions []ModuleView `json:"permissions"`
}

// ModuleView is one module inside a RoleView
type ModuleView struct {
	ModuleID         int64            `json:"moduleId"`
	Code             string           `json:"code"`
	Name             string           `json:"name"`
	Description      string           `json:"description,omitempty"`
	SortID           *int             `json:"sortId,omitempty"`
	IsActive         bool             `json:"isActive"`
	OtherPermissions []PermissionView `json:"otherPermissions"`
	Interfaces       []InterfaceView  `json:"interfaces"`
}

// InterfaceView carries, per CRUD action, whether the catalog defines it (Has*) and
// whether the role holds it
type InterfaceView struct {
	InterfaceID   int64  `json:"interfaceId"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	HasCreate     bool   `json:"hasCreate"`
	Create        bool   `json:"create"`
	HasRead       bool   `json:"hasRead"`
	Read          bool   `json:"read"`
	HasUpdate     bool   `json:"hasUpdate"`
	Update        bool   `json:"update"`
	HasDeactivate bool   `json:"hasDeactivate"`
	Deactivate    bool   `json:"deactivate"`
}

// PermissionView is a non-CRUD permission inside a ModuleView
type PermissionView struct {
	PermissionID int64  `json:"permissionId"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	Checked      bool   `json:"checked"`
}

// UpdateRoleInput is the desired state of a role and its grants
type UpdateRoleInput struct {
	Name        string       `json:"name" validate:"required,max=50"`
	UserGroupID *int64       `json:"userGroupId"`
	IsActive    bool         `json:"isActive"`
	Permissions []ModuleView `json:"permissions"`
}

// CreateRoleInput creates a role with an initial set of grants
type CreateRoleInput struct {
	Code                         string  `json:"code" validate:"required,max=20"`
	Name                         string  `json:"name" validate:"required,max=50"`
	Description                  string  `json:"description" validate:"max=200"`
	UserGroupID                  *int64  `json:"userGroupId"`
	SortID                       *int    `json:"sortId"`
	IsActive                     *bool   `json:"isActive"`
	ModuleInterfacePermissionIDs []int64 `json:"permissionIds"`
}

// RoleListFilter narrows the paginated role list
type RoleListFilter struct {
	Code        string `json:"userRoleId"`
	Description string `json:"userRoleDescription"`
}

// UserRoleWithPermissions is an assigned role with its granted catalog codes
type UserRoleWithPermissions struct {
	RoleID      int64    `json:"roleId"`
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}
