package services

import "github.com/BradenHooton/warden/internal/models"

// BuildRoleView lays a role's grants over the catalog. Every active module appears, each
// with its non-CRUD permissions and its screens. A screen's Has* flags say which CRUD
// actions the catalog enables there; the plain flags and Checked say what the role holds.
// Grants pointing at modules or entries outside the catalog, or at entries whose permission
// or screen is no longer active, are skipped.
func BuildRoleView(role *models.Role, grants []models.RoleGrant, catalog *models.Catalog) *models.RoleView {
	view := &models.RoleView{
		RoleID:      role.RoleID,
		Code:        role.Code,
		Name:        role.Name,
		Description: role.Description,
		UserGroupID: role.UserGroupID,
		IsActive:    role.IsActive,
		Permissions: make([]models.ModuleView, 0, len(catalog.Modules)),
	}

	moduleIndex := make(map[int64]int, len(catalog.Modules))
	for _, module := range catalog.Modules {
		moduleIndex[module.ModuleID] = len(view.Permissions)
		view.Permissions = append(view.Permissions, catalogModuleView(module, catalog))
	}

	entries := make(map[int64]models.ModuleInterfacePermission, len(catalog.Entries))
	for _, e := range catalog.Entries {
		if catalog.Resolves(e) {
			entries[e.ID] = e
		}
	}

	for _, grant := range grants {
		entry, ok := entries[grant.ModuleInterfacePermissionID]
		if !ok {
			continue
		}
		idx, ok := moduleIndex[entry.ModuleID]
		if !ok {
			continue
		}
		module := &view.Permissions[idx]
		permission := catalog.Permissions[entry.PermissionID]

		if entry.HasInterface() {
			iface := findInterfaceView(module, catalog, *entry.InterfaceID)
			setCrudFlag(iface, permission.Code, false, entry.IsEnabled)
			continue
		}

		checkOtherPermission(module, permission, grant.IsActive)
	}

	return view
}

func catalogModuleView(module models.Module, catalog *models.Catalog) models.ModuleView {
	mv := models.ModuleView{
		ModuleID:         module.ModuleID,
		Code:             module.Code,
		Name:             module.Name,
		Description:      module.Description,
		SortID:           module.SortID,
		IsActive:         module.IsActive,
		OtherPermissions: make([]models.PermissionView, 0),
		Interfaces:       make([]models.InterfaceView, 0),
	}

	seenPermissions := make(map[int64]bool)
	for _, entry := range catalog.EntriesFor(module.ModuleID) {
		permission := catalog.Permissions[entry.PermissionID]

		if !permission.IsCrud && !seenPermissions[permission.PermissionID] {
			seenPermissions[permission.PermissionID] = true
			mv.OtherPermissions = append(mv.OtherPermissions, models.PermissionView{
				PermissionID: permission.PermissionID,
				Name:         permission.Name,
				Code:         permission.Code,
			})
		}

		if entry.HasInterface() {
			iface := findInterfaceView(&mv, catalog, *entry.InterfaceID)
			if permission.IsCrud {
				setCrudFlag(iface, permission.Code, true, entry.IsEnabled)
			}
		}
	}

	return mv
}

// findInterfaceView returns the module's node for a screen, adding it when missing
func findInterfaceView(module *models.ModuleView, catalog *models.Catalog, interfaceID int64) *models.InterfaceView {
	for i := range module.Interfaces {
		if module.Interfaces[i].InterfaceID == interfaceID {
			return &module.Interfaces[i]
		}
	}

	iface := catalog.Interfaces[interfaceID]
	module.Interfaces = append(module.Interfaces, models.InterfaceView{
		InterfaceID: interfaceID,
		Name:        iface.Name,
		Code:        iface.Code,
	})
	return &module.Interfaces[len(module.Interfaces)-1]
}

func setCrudFlag(iface *models.InterfaceView, code string, catalogFlag, value bool) {
	switch code {
	case models.PermCreate:
		if catalogFlag {
			iface.HasCreate = value
		} else {
			iface.Create = value
		}
	case models.PermRead:
		if catalogFlag {
			iface.HasRead = value
		} else {
			iface.Read = value
		}
	case models.PermUpdate:
		if catalogFlag {
			iface.HasUpdate = value
		} else {
			iface.Update = value
		}
	case models.PermDeactivate:
		if catalogFlag {
			iface.HasDeactivate = value
		} else {
			iface.Deactivate = value
		}
	}
}

func checkOtherPermission(module *models.ModuleView, permission models.Permission, checked bool) {
	for i := range module.OtherPermissions {
		if module.OtherPermissions[i].PermissionID == permission.PermissionID {
			module.OtherPermissions[i].Checked = checked
			return
		}
	}

	module.OtherPermissions = append(module.OtherPermissions, models.PermissionView{
		PermissionID: permission.PermissionID,
		Name:         permission.Name,
		Code:         permission.Code,
		Checked:      checked,
	})
}

type crudSelection struct {
	code    string
	enabled bool
}

// crudSelections lists the CRUD codes of a screen with the state requested for each
func crudSelections(iface models.InterfaceView) []crudSelection {
	return []crudSelection{
		{models.PermCreate, iface.Create},
		{models.PermRead, iface.Read},
		{models.PermUpdate, iface.Update},
		{models.PermDeactivate, iface.Deactivate},
	}
}
