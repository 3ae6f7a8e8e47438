package secrets

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// FileProvider reads secrets from files named ".password.<name>" under Dir.
// That is the layout the CGI predecessor used for its service-account
// password; a single trailing newline is trimmed so hand-edited files work.
type FileProvider struct {
	Dir string
}

// NewFileProvider returns a provider rooted at dir. An empty dir means the
// working directory.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{Dir: dir}
}

var _ Provider = &FileProvider{}

func (p *FileProvider) GetSecret(name string) ([]byte, error) {
	path := filepath.Join(p.Dir, ".password."+name)

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading secret file %q: %w", path, err)
	}

	b = bytes.TrimSuffix(b, []byte("\n"))
	b = bytes.TrimSuffix(b, []byte("\r"))

	if len(b) == 0 {
		return nil, fmt.Errorf("secret file %q is empty", path)
	}

	return b, nil
}
