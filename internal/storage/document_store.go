// ABOUTME: Interface definition for freewrite document storage.
// ABOUTME: Defines the contract for atomic body, sidecar, and attachment file access in one flat directory.
package storage

// DocumentStore is the only component that touches the store directory.
// All names are bare filenames inside that directory.
type DocumentStore interface {
	// WriteBody atomically replaces the body document name with text.
	WriteBody(name, text string) error

	// ReadBody returns the body text, or an error wrapping ErrNotFound.
	ReadBody(name string) (string, error)

	// DeleteBody removes a body document. Deleting a missing file is not an error.
	DeleteBody(name string) error

	// WriteSidecar atomically replaces a sidecar, attachment, or index file.
	WriteSidecar(name string, data []byte) error

	// ReadSidecar returns sidecar bytes, or an error wrapping ErrNotFound.
	ReadSidecar(name string) ([]byte, error)

	// DeleteSidecar removes a sidecar. Deleting a missing file is not an error.
	DeleteSidecar(name string) error

	// ListBodyFilenames lists every body document in the directory, sorted by name.
	ListBodyFilenames() ([]string, error)

	// ListAttachmentFilenames lists every attachment file, sorted by name.
	ListAttachmentFilenames() ([]string, error)

	// Dir returns the store directory.
	Dir() string
}
