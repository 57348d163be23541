package store

import "time"

// Artifact is a generated document (tutorial, report) kept on disk
type Artifact struct {
	ID        string
	Topic     string
	Path      string // Relative path in the artifact store
	Type      string // e.g., "tutorial", "report"
	CreatedAt time.Time
	Digest    string // Content hash
}

// Storage defines the interface for persistence
type Storage interface {
	// Configuration Management
	SetConfig(key, value string) error
	GetConfig(key string) (string, error)
	ListConfigKeys() ([]string, error)

	// Artifact Management
	// SaveArtifact persists the metadata and the content
	SaveArtifact(artifact *Artifact, content []byte) error
	GetArtifact(id string) (*Artifact, []byte, error)
	ListArtifacts(artifactType string) ([]*Artifact, error)

	Close() error
}
