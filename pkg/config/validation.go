package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/dittobrowse/pkg/folder"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for rules that
// cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("sources: at least one source must be configured")
	}

	names := make(map[string]bool)
	for i, src := range cfg.Sources {
		if names[src.Name] {
			return fmt.Errorf("sources[%d]: duplicate source name %q", i, src.Name)
		}
		names[src.Name] = true
	}

	// Favorites must live in a configured source
	if cfg.Browse.FavoritesPath != "" {
		loc := folder.SplitPath(cfg.Browse.FavoritesPath)
		if !names[loc.Source] {
			return fmt.Errorf("browse.favorites_path: source %q is not configured", loc.Source)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
