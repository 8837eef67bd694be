package ingest

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/robinjoseph08/golib/logger"
)

// ExtractCover renders the first page of a PDF with pdftoppm and moves it
// to <dir>/<stem>.jpg, or <stem>-N.jpg when that name is taken. It returns
// "" when pdftoppm is not installed or fails. Existing files are never
// replaced.
func ExtractCover(ctx context.Context, pdfPath, dir, stem string) string {
	log := logger.FromContext(ctx)

	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return ""
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return ""
	}

	// pdftoppm picks its own output name, so render into a private dir.
	tmp, err := os.MkdirTemp(dir, ".cover-*")
	if err != nil {
		return ""
	}
	defer os.RemoveAll(tmp)

	prefix := filepath.Join(tmp, "cover")
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-jpeg",
		"-f", "1",
		"-l", "1",
		"-singlefile",
		"-scale-to", "300",
		"-jpegopt", "quality=85",
		pdfPath,
		prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Debug("pdftoppm failed", logger.Data{"path": pdfPath, "err": err.Error(), "output": string(out)})
		return ""
	}

	coverPath := uniquePath(dir, stem, ".jpg")
	if err := os.Rename(prefix+".jpg", coverPath); err != nil {
		return ""
	}
	return coverPath
}
