package ignore

import (
	"fmt"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
)

// GitignoreFile is the name of the repository ignore file honored as an
// optional extra layer.
const GitignoreFile = ".gitignore"

// LoadGitignore compiles root/.gitignore. A missing file yields a nil layer
// and no error.
func LoadGitignore(root string, logger *zap.Logger) (*gitignore.GitIgnore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path := filepath.Join(root, GitignoreFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logger.Debug("No .gitignore found", zap.String("root", root))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	gi, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		logger.Error("Failed to compile .gitignore", zap.String("filePath", path), zap.Error(err))
		return nil, fmt.Errorf("failed to compile %s: %w", path, err)
	}
	logger.Debug("Loaded .gitignore", zap.String("filePath", path))
	return gi, nil
}
