package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sessiond/internal/common/fsutil"
	"sessiond/pkg/types"
)

// LoadDir scans a directory for *.gguf files and builds a registry from
// filenames. ID is the full filename (including extension); Path is the
// absolute file path. Models are sorted by ID.
func LoadDir(dir string) ([]types.Model, error) {
	abs, err := fsutil.AbsPath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !fsutil.HasModelExt(name) {
			continue
		}
		m := types.Model{
			ID:    name,
			Name:  strings.TrimSuffix(name, filepath.Ext(name)),
			Path:  filepath.Join(abs, name),
			Quant: guessQuant(name),
		}
		if fi, err := e.Info(); err == nil {
			m.SizeBytes = fi.Size()
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Find returns the model whose ID or Name equals id.
func Find(models []types.Model, id string) (types.Model, bool) {
	for _, m := range models {
		if m.ID == id || m.Name == id {
			return m, true
		}
	}
	return types.Model{}, false
}

// guessQuant extracts a llama.cpp quantization tag (Q4_K_M, IQ3_XS, F16, ...)
// from a file name like "tinyllama-1.1b.Q4_K_M.gguf".
func guessQuant(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.FieldsFunc(stem, func(r rune) bool { return r == '.' || r == '-' })
	for i := len(parts) - 1; i >= 0; i-- {
		p := strings.ToUpper(parts[i])
		switch {
		case p == "F16" || p == "F32" || p == "BF16":
			return p
		case len(p) >= 2 && p[0] == 'Q' && p[1] >= '0' && p[1] <= '9':
			return p
		case len(p) >= 3 && strings.HasPrefix(p, "IQ") && p[2] >= '0' && p[2] <= '9':
			return p
		}
	}
	return ""
}
