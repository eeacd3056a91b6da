package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"quiz:view-structure",
	},
	"teacher": {
		"quiz:view-structure",
		"quiz:edit-structure",
		"quiz:edit-marks",
		"section:edit-meta",
	},
	"admin": {
		"*", // everything
	},
}
