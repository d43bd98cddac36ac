package roles

// Capability names the actions gated by role.
type Capability string

const (
	// CapStaff grants the baseline: create tasks, comment, attach files, chat.
	CapStaff Capability = "staff"
	// CapPrivileged grants cross-user mutation: reassign any task, bulk
	// operations, cancellation.
	CapPrivileged Capability = "privileged"
	// CapAssignToAdmin allows assigning tasks to admin users.
	CapAssignToAdmin Capability = "assign_to_admin"
	// CapManageUsers allows user CRUD.
	CapManageUsers Capability = "manage_users"
	// CapViewUsers allows listing the user directory.
	CapViewUsers Capability = "view_users"
	// CapViewReports allows cross-user productivity reports.
	CapViewReports Capability = "view_reports"
	// CapViewAuditLogs allows reading the audit trail.
	CapViewAuditLogs Capability = "view_audit_logs"
)

const (
	Admin      = "admin"
	Manager    = "manager"
	TeamMember = "team_member"
	Sales      = "sales"
	Operations = "operations"
	Marketing  = "marketing"
	Accounts   = "accounts"
)

// capabilities is the single role -> capability-set table. Adding a role is
// one entry here; an entry with only CapStaff gets baseline staff rights.
// Do not remove existing roles.
var capabilities = map[string]map[Capability]bool{
	Admin: {
		CapStaff:         true,
		CapPrivileged:    true,
		CapAssignToAdmin: true,
		CapManageUsers:   true,
		CapViewUsers:     true,
		CapViewReports:   true,
		CapViewAuditLogs: true,
	},
	Manager: {
		CapStaff:         true,
		CapPrivileged:    true,
		CapAssignToAdmin: true,
		CapViewUsers:     true,
		CapViewReports:   true,
		CapViewAuditLogs: true,
	},
	TeamMember: {CapStaff: true},
	Sales:      {CapStaff: true},
	Operations: {CapStaff: true},
	Marketing:  {CapStaff: true},
	Accounts:   {CapStaff: true},
}

// ValidRoles returns all known role names.
func ValidRoles() []string {
	out := make([]string, 0, len(capabilities))
	for r := range capabilities {
		out = append(out, r)
	}
	return out
}

// IsValid reports whether role is a known role.
func IsValid(role string) bool {
	_, ok := capabilities[role]
	return ok
}

// Has reports whether role carries the capability.
func Has(role string, cap Capability) bool {
	return capabilities[role][cap]
}

// IsPrivileged reports cross-user mutation rights (admin, manager).
func IsPrivileged(role string) bool {
	return Has(role, CapPrivileged)
}

// CanAssignTo decides whether a caller may assign a task to a user holding
// targetRole. Privileged roles may assign to anyone; all other staff may
// assign to anyone except admins.
func CanAssignTo(callerRole, targetRole string) bool {
	if !Has(callerRole, CapStaff) {
		return false
	}
	if targetRole == Admin {
		return Has(callerRole, CapAssignToAdmin)
	}
	return true
}

// CanViewTask implements the current policy: every authenticated staff user
// may view every task. Mutation restrictions are handled per field.
func CanViewTask(callerRole string) bool {
	return Has(callerRole, CapStaff)
}

// CanMutateTaskField decides per-field mutation rights: a non-privileged
// assignee may change only "status"; privileged roles may change any field.
func CanMutateTaskField(callerRole string, isAssignee bool, field string) bool {
	if IsPrivileged(callerRole) {
		return true
	}
	return isAssignee && field == "status"
}

func CanManageUsers(role string) bool   { return Has(role, CapManageUsers) }
func CanViewUsers(role string) bool     { return Has(role, CapViewUsers) }
func CanViewReports(role string) bool   { return Has(role, CapViewReports) }
func CanViewAuditLogs(role string) bool { return Has(role, CapViewAuditLogs) }
