package server

import (
	"context"
	"path/filepath"

	"github.com/eak1mov/go-tilemark/layer"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads the layer list whenever the config file changes, and the
// file layers whenever anything in filesDir changes, until ctx is done.
// The parent directory of the config is watched, so editors that replace
// the file on save are handled too. An empty filesDir is not watched.
// A config that fails to load keeps the previous list.
func (s *Server) Watch(ctx context.Context, configPath, filesDir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	configPath = filepath.Clean(configPath)
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		return err
	}
	if filesDir != "" {
		filesDir = filepath.Clean(filesDir)
		if err := watcher.Add(filesDir); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(event.Name)
			switch {
			case name == configPath:
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				s.logger.Info("tilemark: layer config changed", "event", event.String())
				s.reload(configPath)
			case filesDir != "" && filepath.Dir(name) == filesDir:
				s.logger.Debug("tilemark: files changed", "event", event.String())
				s.reloadFiles(filesDir)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("tilemark: watch error", "error", err)
		}
	}
}

func (s *Server) reload(configPath string) {
	layers, err := layer.LoadConfig(configPath)
	if err != nil {
		s.logger.Error("tilemark: failed to reload layers", "error", err)
		return
	}
	s.SetLayers(layers)
	s.logger.Info("tilemark: layers reloaded", "count", len(layers))
}

func (s *Server) reloadFiles(filesDir string) {
	files, err := layer.LoadFiles(filesDir, s.logger)
	if err != nil {
		s.logger.Error("tilemark: failed to reload files", "error", err)
		return
	}
	s.SetFiles(files)
}
