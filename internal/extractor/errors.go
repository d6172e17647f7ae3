package extractor

import "fmt"

// DocumentErrorKind distinguishes the user-facing document failures so the
// caller can re-prompt correctly (ask for a password vs. ask for a new file).
type DocumentErrorKind string

const (
	KindPasswordRequired DocumentErrorKind = "password_required"
	KindWrongPassword    DocumentErrorKind = "wrong_password"
	KindCorruptFile      DocumentErrorKind = "corrupt_file"
	KindUnreadable       DocumentErrorKind = "unreadable"
)

// DocumentError reports that a statement file could not be read at all.
// It is always user-facing; row-level parse problems are ParseIssues instead.
type DocumentError struct {
	Kind DocumentErrorKind
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	switch e.Kind {
	case KindPasswordRequired:
		return fmt.Sprintf("%s is password-protected; supply the statement password", e.Path)
	case KindWrongPassword:
		return fmt.Sprintf("wrong password for %s", e.Path)
	case KindCorruptFile:
		return fmt.Sprintf("%s is not a readable PDF: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("no readable text could be extracted from %s; the file may be image-based/scanned or use font encodings that cannot be decoded", e.Path)
	}
}

func (e *DocumentError) Unwrap() error { return e.Err }
