package main

import (
	"log"
	"os"
	"strings"

	"github.com/drengskapur/repodiff/cmd"
	"github.com/drengskapur/repodiff/pkg/config"
	"github.com/drengskapur/repodiff/pkg/logging"
	"github.com/drengskapur/repodiff/pkg/version"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	logger, err := logging.Setup(logging.Options{
		AppName:    config.AppName,
		AppVersion: version.Version,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if err := cmd.Execute(logger); err != nil {
		// Commands may have replaced the logger after reading config.
		logging.Logger.Fatal("repodiff execution failed", zap.Error(err))
	}

	// Sync fails with EINVAL on pipes and some consoles.
	if term.IsTerminal(int(os.Stderr.Fd())) || isRegularFile(os.Stderr) {
		if syncErr := logging.Logger.Sync(); syncErr != nil {
			if !strings.Contains(strings.ToLower(syncErr.Error()), "invalid argument") {
				log.Printf("Logger sync failed: %v", syncErr)
			}
		}
	}
}

func isRegularFile(f *os.File) bool {
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return fileInfo.Mode().IsRegular()
}
