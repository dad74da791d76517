package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/imishinist/nnperf/internal/models"
)

func ParseYAMLMatrix(reader io.Reader) (*models.Matrix, error) {
	var data models.Matrix
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML matrix: %w", err)
	}

	return &data, nil
}
