package rbac

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role string
		perm string
		want bool
	}{
		{RoleAdmin, PermApproveTemplates, true},
		{RoleAdmin, PermViewQueue, true},
		{RoleManager, PermLaunchCampaigns, true},
		{RoleManager, PermApproveTemplates, false},
		{RoleManager, PermViewQueue, false},
		{RoleAgent, PermUseChatbot, true},
		{RoleAgent, PermLaunchCampaigns, false},
		{RoleAgent, PermManageContacts, false},
		{"guest", PermViewCampaigns, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.perm, func(t *testing.T) {
			if got := HasPermission(tt.role, tt.perm); got != tt.want {
				t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
			}
		})
	}
}

func TestEveryRoleCanViewCampaigns(t *testing.T) {
	for role := range RolePermissions {
		if !HasPermission(role, PermViewCampaigns) {
			t.Errorf("role %q cannot view campaigns", role)
		}
	}
}
