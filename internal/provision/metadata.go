package provision

// Metadata describes the module to the host.
type Metadata struct {
	DisplayName    string `json:"DisplayName"`
	APIVersion     string `json:"APIVersion"`
	RequiresServer bool   `json:"RequiresServer"`
}

func MetaData() Metadata {
	return Metadata{
		DisplayName:    "MailCow",
		APIVersion:     "1.1",
		RequiresServer: true,
	}
}

// AdminCustomButtons maps admin button labels to the operation they trigger.
func AdminCustomButtons() map[string]string {
	return map[string]string{
		"Change Username": "SyncUsername",
	}
}
