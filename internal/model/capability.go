package model

// Capability checks for privileged custody operations. Each returns true only
// for active users; blocked users and RoleUnknown can do nothing.

// CanReceive reports whether u may record incoming stock.
func CanReceive(u *User) bool {
	return u.Active() && hasRole(u, RoleSystemAdmin, RoleManager, RoleStorekeeper)
}

// CanIssue reports whether u may issue warehouse stock to a user.
func CanIssue(u *User) bool {
	return u.Active() && hasRole(u, RoleSystemAdmin, RoleManager, RoleStorekeeper)
}

// CanWriteOff reports whether u may write off warehouse stock.
func CanWriteOff(u *User) bool {
	return u.Active() && hasRole(u, RoleSystemAdmin, RoleStorekeeper)
}

// CanHold reports whether u may hold, transfer and return assets.
func CanHold(u *User) bool {
	return u.Active()
}

// CanApproveReturns reports whether u's role is eligible to approve returns.
// Eligibility alone is not enough; see custody.SelectReturnApprover.
func CanApproveReturns(u *User) bool {
	return u.Active() && hasRole(u, RoleSystemAdmin, RoleStorekeeper)
}

// CanManageUsers reports whether u may change other users' roles and status.
func CanManageUsers(u *User) bool {
	return u.Active() && hasRole(u, RoleSystemAdmin)
}

// CanManageCatalog reports whether u may create categories.
func CanManageCatalog(u *User) bool {
	return u.Active() && hasRole(u, RoleSystemAdmin, RoleManager, RoleStorekeeper)
}

// ReturnPhotoRequired reports whether an approver must attach a photo.
// Administrators are exempt.
func ReturnPhotoRequired(u *User) bool {
	return u.Role != RoleSystemAdmin
}

func hasRole(u *User, roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
