package domain

import "fmt"

// PathType tells how a LogSource path is interpreted
type PathType string

const (
	// PathTypeLogName identifies a registered channel by name
	PathTypeLogName PathType = "log_name"
	// PathTypeFilePath identifies a standalone archive file
	PathTypeFilePath PathType = "file_path"
)

// String returns the string representation of PathType
func (p PathType) String() string {
	return string(p)
}

// ParsePathType converts user input ("channel", "log", "file", ...) to a PathType
func ParsePathType(s string) (PathType, error) {
	switch s {
	case "", "log_name", "log", "channel", "name":
		return PathTypeLogName, nil
	case "file_path", "file", "archive", "path":
		return PathTypeFilePath, nil
	default:
		return "", fmt.Errorf("%w: unknown path type %q", ErrInvalidSource, s)
	}
}

// LogSource identifies a channel or an archive file.
// It is a value type and is never mutated after construction.
type LogSource struct {
	Path     string   `json:"path"`
	PathType PathType `json:"path_type"`
}

// NewChannelSource returns a source for a named channel
func NewChannelSource(name string) LogSource {
	return LogSource{Path: name, PathType: PathTypeLogName}
}

// NewFileSource returns a source for an archive file
func NewFileSource(path string) LogSource {
	return LogSource{Path: path, PathType: PathTypeFilePath}
}

// IsChannel returns true if the source is a named channel
func (s LogSource) IsChannel() bool {
	return s.PathType == PathTypeLogName
}

// String returns a human readable form of the source
func (s LogSource) String() string {
	if s.IsChannel() {
		return s.Path
	}
	return "file:" + s.Path
}
