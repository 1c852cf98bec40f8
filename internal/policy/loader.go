package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for reading policy files from local disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based policy loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "policy-loader").Logger(),
	}
}

// Load reads a JSON policy file containing a list of jurisdictions.
func (l *fileLoader) Load(ctx context.Context, filePath string) ([]Jurisdiction, error) {
	l.logger.Info().Str("file", filePath).Msg("loading policy file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open policy file")
		return nil, fmt.Errorf("failed to open policy file %s: %w", filePath, err)
	}
	defer file.Close()

	var jurisdictions []Jurisdiction
	if err := json.NewDecoder(file).Decode(&jurisdictions); err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to parse policy file")
		return nil, fmt.Errorf("failed to parse policy file %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("jurisdictions", len(jurisdictions)).
		Msg("policy file loaded successfully")

	return jurisdictions, nil
}
