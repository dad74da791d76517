package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imishinist/nnperf/internal/models"
)

// LoadMatrix reads a variant matrix file, or returns the default matrix when
// path is empty. The result is always validated.
func LoadMatrix(path string) (*models.Matrix, error) {
	if path == "" {
		return models.DefaultMatrix(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	var matrix *models.Matrix
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		matrix, err = ParseJSONMatrix(file)
	case ".yaml", ".yml":
		matrix, err = ParseYAMLMatrix(file)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .json, .yaml, .yml)", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := matrix.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matrix %s: %w", path, err)
	}
	return matrix, nil
}
