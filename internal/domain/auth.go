package domain

// PermissionSettingsWrite allows changing the local worker's settings.
const PermissionSettingsWrite = "settings:write"

// AuthPayload is the claim set carried by operator tokens.
type AuthPayload struct {
	Username   string   `json:"username"`
	Permission []string `json:"permission"`
}

func (p AuthPayload) Has(permission string) bool {
	for _, granted := range p.Permission {
		if granted == permission {
			return true
		}
	}
	return false
}
