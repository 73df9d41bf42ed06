package rbac

// Role constants
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleAgent   = "agent"
)

// Permission constants
const (
	PermViewCampaigns    = "view_campaigns"
	PermManageCampaigns  = "manage_campaigns"
	PermLaunchCampaigns  = "launch_campaigns"
	PermManageContacts   = "manage_contacts"
	PermViewContacts     = "view_contacts"
	PermManageTemplates  = "manage_templates"
	PermApproveTemplates = "approve_templates"
	PermUseChatbot       = "use_chatbot"
	PermViewQueue        = "view_queue"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermViewCampaigns, PermManageCampaigns, PermLaunchCampaigns,
		PermViewContacts, PermManageContacts,
		PermManageTemplates, PermApproveTemplates,
		PermUseChatbot, PermViewQueue,
	},
	RoleManager: {
		PermViewCampaigns, PermManageCampaigns, PermLaunchCampaigns,
		PermViewContacts, PermManageContacts,
		PermManageTemplates,
		PermUseChatbot,
		// Manager CANNOT: PermApproveTemplates, PermViewQueue
	},
	RoleAgent: {
		PermViewCampaigns, PermViewContacts, PermUseChatbot,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

func IsValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
