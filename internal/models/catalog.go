package models

import "time"

// CRUD permission codes. Every other permission code is a freeform "other" action.
const (
	PermCreate     = "CREATE"
	PermRead       = "READ"
	PermUpdate     = "UPDATE"
	PermDeactivate = "DEACTIVATE"
)

// CRUDCodes lists the CRUD permission codes in display order.
var CRUDCodes = []string{PermCreate, PermRead, PermUpdate, PermDeactivate}

// Module groups interfaces (screens) of the administrative application
type Module struct {
	ModuleID    int64      `json:"moduleId"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	SortID      *int       `json:"sortId,omitempty"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"-"`
	ModifiedAt  *time.Time `json:"-"`
}

// Interface is a screen within a module
type Interface struct {
	InterfaceID int64  `json:"interfaceId"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SortID      *int   `json:"sortId,omitempty"`
	IsActive    bool   `json:"isActive"`
}

// Permission is an action; IsCrud separates Create/Read/Update/Deactivate from others
type Permission struct {
	PermissionID int64  `json:"permissionId"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	IsCrud       bool   `json:"isCrud"`
	SortID       *int   `json:"sortId,omitempty"`
	IsActive     bool   `json:"isActive"`
}

// ModuleInterfacePermission registers one (module, interface?, permission) triple
type ModuleInterfacePermission struct {
	ID           int64  `json:"moduleInterfacePermissionId"`
	Code         string `json:"code"`
	ModuleID     int64  `json:"moduleId"`
	InterfaceID  *int64 `json:"interfaceId"`
	PermissionID int64  `json:"permissionId"`
	IsEnabled    bool   `json:"isEnabled"`
	IsActive     bool   `json:"-"`
}

// HasInterface reports whether the entry is scoped to a screen.
func (m *ModuleInterfacePermission) HasInterface() bool {
	return m.InterfaceID != nil
}

// CatalogEntryCode derives the unique code of a catalog entry from its parts.
func CatalogEntryCode(moduleCode, interfaceCode, permissionCode string) string {
	if interfaceCode == "" {
		return moduleCode + "_" + permissionCode
	}
	return moduleCode + "_" + interfaceCode + "_" + permissionCode
}

// UserGroup categorises roles
type UserGroup struct {
	UserGroupID int64  `json:"userGroupId"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SortID      *int   `json:"sortId,omitempty"`
	IsActive    bool   `json:"isActive"`
}

// Catalog is a snapshot of the active permission catalog
type Catalog struct {
	Modules     []Module
	Interfaces  map[int64]Interface
	Permissions map[int64]Permission
	Entries     []ModuleInterfacePermission
}

// Resolves reports whether the entry's permission and screen are part of the snapshot.
func (c *Catalog) Resolves(e ModuleInterfacePermission) bool {
	if _, ok := c.Permissions[e.PermissionID]; !ok {
		return false
	}
	if e.HasInterface() {
		_, ok := c.Interfaces[*e.InterfaceID]
		return ok
	}
	return true
}

// EntriesFor returns the resolvable catalog entries of a module, in catalog order.
func (c *Catalog) EntriesFor(moduleID int64) []ModuleInterfacePermission {
	entries := make([]ModuleInterfacePermission, 0)
	for _, e := range c.Entries {
		if e.ModuleID == moduleID && c.Resolves(e) {
			entries = append(entries, e)
		}
	}
	return entries
}

// CreateCatalogEntryInput registers a new catalog triple
type CreateCatalogEntryInput struct {
	ModuleID     int64  `json:"moduleId" validate:"required,gt=0"`
	InterfaceID  *int64 `json:"interfaceId,omitempty"`
	PermissionID int64  `json:"permissionId" validate:"required,gt=0"`
	IsEnabled    *bool  `json:"isEnabled,omitempty"`
}

// ModuleWithPermissions is a module together with the permissions and screens registered under it
type ModuleWithPermissions struct {
	Module
	Permissions []Permission `json:"permissions"`
	Interfaces  []Interface  `json:"interfaces"`
}
