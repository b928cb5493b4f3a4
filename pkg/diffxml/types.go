package diffxml

// FileChange is one proposed whole-file replacement.
type FileChange struct {
	FileName   string // Repository-relative path, validated by the parser.
	NewContent string // Complete replacement text; empty truncates the file.
}

// ChangeSet is an ordered batch of FileChange values in document order.
type ChangeSet []FileChange

// FileNames returns the file names in document order.
func (cs ChangeSet) FileNames() []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.FileName
	}
	return names
}

// Element and attribute names of the wire format.
const (
	RootElement    = "root"
	FileElement    = "file"
	ReplaceElement = "replace"
	NameAttribute  = "name"
)
