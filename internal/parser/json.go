package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/imishinist/nnperf/internal/models"
)

func ParseJSONMatrix(reader io.Reader) (*models.Matrix, error) {
	var data models.Matrix
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON matrix: %w", err)
	}

	return &data, nil
}
