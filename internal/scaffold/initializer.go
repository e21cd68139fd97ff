package scaffold

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*
var templatesFS embed.FS

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize creates the Anchor project files in the current directory.
// If force is true, it will remove an existing anchor.yml and track.yml first.
func Initialize(force bool) error {
	// Handle --force flag
	if force {
		if err := handleForce(); err != nil {
			return err
		}
	}

	// Get template files
	files, err := getTemplateFiles()
	if err != nil {
		return err
	}

	// Write files
	if err := writeFiles(files); err != nil {
		return err
	}

	// Validate created files
	if err := validateCreatedFiles(); err != nil {
		return err
	}

	return nil
}

// handleForce removes existing files if --force was specified
func handleForce() error {
	for _, name := range []string{"anchor.yml", "track.yml"} {
		if _, err := os.Stat(name); err == nil {
			fmt.Printf("⚠️  Removing existing %s...\n", name)
			if err := os.Remove(name); err != nil {
				return fmt.Errorf("failed to remove %s: %w", name, err)
			}
		}
	}

	return nil
}

// getTemplateFiles reads and processes all template files
func getTemplateFiles() ([]FileInfo, error) {
	files := []FileInfo{}

	// anchor.yml
	anchorYml, err := templatesFS.ReadFile("templates/anchor.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read anchor.yml template: %w", err)
	}
	files = append(files, FileInfo{
		Path:        "anchor.yml",
		Content:     anchorYml,
		Permissions: 0644,
	})

	// track.yml (example replay track for 'anchor run')
	trackYml, err := templatesFS.ReadFile("templates/track.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read track.yml template: %w", err)
	}
	files = append(files, FileInfo{
		Path:        "track.yml",
		Content:     trackYml,
		Permissions: 0644,
	})

	return files, nil
}

// writeFiles writes all template files to disk
func writeFiles(files []FileInfo) error {
	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}

	return nil
}

// validateCreatedFiles validates that created files are parseable YAML
func validateCreatedFiles() error {
	for _, name := range []string{"anchor.yml", "track.yml"} {
		content, err := os.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read created %s: %w", name, err)
		}

		var doc map[string]interface{}
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return fmt.Errorf("created %s is not valid YAML: %w", name, err)
		}
	}

	return nil
}

// PrintSuccess prints the post-init success message
func PrintSuccess() {
	fmt.Println("✓ Anchor project initialized")
	fmt.Println()
	fmt.Println("Created:")
	fmt.Println("  • anchor.yml - Instance configuration (edit map.default_center!)")
	fmt.Println("  • track.yml  - Example replay track for 'anchor run'")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Set map.default_center to your map library's fallback centre")
	fmt.Println("  2. Start backing services: anchor up")
	fmt.Println("  3. Publish samples: anchor run")
}
