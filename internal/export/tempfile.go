package export

import (
	"errors"
	"io/fs"
	"os"
)

// TempFile is a rendered export on local disk. The caller streams it to the
// client and must call Remove afterwards, on success and on failure.
type TempFile struct {
	Path string // location on disk
	Name string // attachment file name offered to the client
}

// Remove deletes the file; a file that is already gone is not an error
func (f *TempFile) Remove() error {
	if f == nil || f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// writeTemp creates a temp file in dir and hands it to write. The file is
// removed again when write or close fails.
func writeTemp(dir, pattern, name string, write func(f *os.File) error) (*TempFile, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}

	tmp := &TempFile{Path: f.Name(), Name: name}

	if err := write(f); err != nil {
		f.Close()
		_ = tmp.Remove()
		return nil, err
	}

	if err := f.Close(); err != nil {
		_ = tmp.Remove()
		return nil, err
	}

	return tmp, nil
}
