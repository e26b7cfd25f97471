package utils

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

type Fs struct {
	AppFs afero.Fs
}

func NewFs(appFs afero.Fs) Fs {
	return Fs{AppFs: appFs}
}

// WriteLines writes one line per element, each terminated by a newline.
func (fs Fs) WriteLines(filePath string, lines []string) error {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := fs.AppFs.MkdirAll(dir, os.ModePerm); err != nil {
			return xerrors.Errorf("failed to create %s: %w", dir, err)
		}
	}

	f, err := fs.AppFs.Create(filePath)
	if err != nil {
		return xerrors.Errorf("unable to open a file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err = w.WriteString(line + "\n"); err != nil {
			return xerrors.Errorf("failed to save a file: %w", err)
		}
	}
	if err = w.Flush(); err != nil {
		return xerrors.Errorf("failed to save a file: %w", err)
	}
	return nil
}
