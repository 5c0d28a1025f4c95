package services

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// WatcherService ingests PDFs dropped into a watched directory without an
// upload request. Uploads are immutable once ingested, so only newly
// written files matter; removals and renames are ignored.
type WatcherService struct {
	ingest *IngestService
	logger *log.Logger
}

// NewWatcherService wires the drop-folder watcher. A nil logger falls back
// to the process default.
func NewWatcherService(ingest *IngestService, logger *log.Logger) *WatcherService {
	if logger == nil {
		logger = log.Default()
	}
	return &WatcherService{ingest: ingest, logger: logger}
}

// WatchDirectory blocks watching dirPath until the context is cancelled.
// Each PDF created or written in the directory runs the ingest pipeline;
// ingest failures are logged and do not stop the watcher.
func (s *WatcherService) WatchDirectory(ctx context.Context, dirPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Printf("WATCHER ERROR: Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	// A single write often fires as a Create/Write event pair; uploads are
	// immutable, so each path is ingested at most once per watcher run.
	seen := make(map[string]bool)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isPDF(event.Name) {
					continue
				}

				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					if seen[event.Name] {
						continue
					}
					seen[event.Name] = true
					s.logger.Printf("WATCHER: New document %s. Ingesting...", event.Name)
					s.ingestFile(ctx, event.Name)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Printf("WATCHER ERROR: %v", err)
			case <-ctx.Done():
				s.logger.Println("WATCHER: Context cancelled, shutting down watcher.")
				return
			}
		}
	}()

	s.logger.Printf("WATCHER: Watching directory: %s", dirPath)
	if err := watcher.Add(dirPath); err != nil {
		s.logger.Printf("WATCHER ERROR: Failed to add path to watcher: %v", err)
		return
	}

	<-ctx.Done()
}

func (s *WatcherService) ingestFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Printf("WATCHER WARN: Could not read file %s: %v", path, err)
		return
	}
	docID, err := s.ingest.Ingest(ctx, filepath.Base(path), data)
	if err != nil {
		s.logger.Printf("WATCHER ERROR: Failed to ingest %s: %v", path, err)
		return
	}
	s.logger.Printf("WATCHER: Ingested %s as doc %s", path, docID)
}

func isPDF(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".pdf"
}
