package registry

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
)

// Plugin is the symbol a handler plugin exports under the name "Handler".
// It is registered as a named custom handler.
type Plugin interface {
	Handler
	ID() string
}

// LoadPlugins opens every *.so below pluginsPath/handlers and registers the
// exported Handler symbol as a custom handler.
func (r *Registry) LoadPlugins(pluginsPath string) ([]Plugin, error) {
	plugins, err := loadPlugins[Plugin](r.logger, pluginsPath, "Handler")
	if err != nil {
		return nil, err
	}

	for _, p := range plugins {
		r.RegisterCustom(p.ID(), p)
	}

	return plugins, nil
}

func loadPlugins[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := filepath.Join(pluginsPath, "handlers")
	if _, err := os.Stat(rootPath); os.IsNotExist(err) {
		return nil, nil
	}

	pluginPathList, err := fs.Glob(os.DirFS(rootPath), "*/*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", rootPath), slog.String("symbol", symbolName))
	l.Info("Loading plugins", "count", len(pluginPathList))

	pluginList := make([]T, 0, len(pluginPathList))
	for _, p := range pluginPathList {
		plg, err := plugin.Open(filepath.Join(rootPath, p))
		if err != nil {
			return nil, fmt.Errorf("open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("lookup %s in plugin %s: %w", symbolName, p, err)
		}

		castV, ok := v.(T)
		if !ok {
			// Lookup returns a pointer to exported variables.
			if ptr, isPtr := v.(*T); isPtr {
				castV = *ptr
			} else {
				return nil, fmt.Errorf("plugin %s: symbol %s has unexpected type %T", p, symbolName, v)
			}
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded handler plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
