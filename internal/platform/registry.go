package platform

// RunKeyPath is the per-user login items key
const RunKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`

// Registry is the subset of the current user's registry the services touch
type Registry interface {
	SetString(path, name, value string) error
	SetDWORD(path, name string, value uint32) error
	DeleteValue(path, name string) error
}

// NewRegistry returns the current user's registry, or one whose every
// call fails with ErrUnsupported off Windows
func NewRegistry() Registry {
	return currentUserRegistry{}
}
