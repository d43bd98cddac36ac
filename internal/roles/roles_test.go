package roles

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsPrivileged(t *testing.T) {
	require.True(t, IsPrivileged(Admin))
	require.True(t, IsPrivileged(Manager))

	for _, role := range []string{TeamMember, Sales, Operations, Marketing, Accounts} {
		require.False(t, IsPrivileged(role), "role %s must not be privileged", role)
	}
}

func TestIsValid(t *testing.T) {
	for _, role := range ValidRoles() {
		require.True(t, IsValid(role))
	}
	require.False(t, IsValid("superuser"))
	require.False(t, IsValid(""))
}

func TestCanAssignTo(t *testing.T) {
	// Privileged callers may assign to anyone, admins included.
	require.True(t, CanAssignTo(Admin, Admin))
	require.True(t, CanAssignTo(Manager, Admin))
	require.True(t, CanAssignTo(Manager, Sales))

	// Staff may assign to other staff but never to admins.
	require.True(t, CanAssignTo(TeamMember, Sales))
	require.True(t, CanAssignTo(Sales, Manager))
	require.False(t, CanAssignTo(TeamMember, Admin))
	require.False(t, CanAssignTo(Accounts, Admin))

	// Unknown roles get nothing.
	require.False(t, CanAssignTo("ghost", TeamMember))
}

func TestCanMutateTaskField(t *testing.T) {
	// Privileged roles may change any field, assignee or not.
	require.True(t, CanMutateTaskField(Admin, false, "title"))
	require.True(t, CanMutateTaskField(Manager, false, "assigned_to"))

	// A non-privileged assignee may only change status.
	require.True(t, CanMutateTaskField(TeamMember, true, "status"))
	require.False(t, CanMutateTaskField(TeamMember, true, "title"))
	require.False(t, CanMutateTaskField(TeamMember, true, "due_date"))

	// A non-privileged non-assignee may change nothing.
	require.False(t, CanMutateTaskField(Sales, false, "status"))
}

func TestViewCapabilities(t *testing.T) {
	require.True(t, CanManageUsers(Admin))
	require.False(t, CanManageUsers(Manager))

	require.True(t, CanViewUsers(Admin))
	require.True(t, CanViewUsers(Manager))
	require.False(t, CanViewUsers(TeamMember))

	require.True(t, CanViewReports(Manager))
	require.False(t, CanViewReports(Marketing))

	require.True(t, CanViewAuditLogs(Admin))
	require.True(t, CanViewAuditLogs(Manager))
	require.False(t, CanViewAuditLogs(Operations))
}
