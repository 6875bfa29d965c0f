package entities

// Manifest describes a guest engine from the host's perspective: who it
// claims to be and which module/method calls it has been granted. The host
// derives the per-engine dispatch options from it at attach time.
type Manifest struct {
	Name        string   `json:"name" yaml:"name" validate:"required"`
	Version     string   `json:"version,omitempty" yaml:"version,omitempty"`
	Permissions []string `json:"permissions,omitempty" yaml:"permissions,omitempty"`

	// PermissionMode defaults to deny when empty; see Mode.
	PermissionMode PermissionMode `json:"permissionMode,omitempty" yaml:"permissionMode,omitempty" validate:"omitempty,oneof=allow warn deny"`
}

// Mode returns the manifest's permission mode, defaulting to deny. An
// absent mode must never silently widen what the guest may call.
func (m Manifest) Mode() PermissionMode {
	if m.PermissionMode == "" {
		return ModeDeny
	}
	return m.PermissionMode
}

// PermissionSet compiles the manifest's grant strings.
func (m Manifest) PermissionSet() PermissionSet {
	return NewPermissionSet(m.Permissions...)
}
