package puppet

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/qmuntal/gltf"
	"github.com/rs/zerolog"

	"github.com/hmaged/voxline/internal/viseme"
)

// Model is a loaded glTF puppet file reduced to what the service needs:
// the morph targets that realize each viseme shape. Rendering stays with
// the external animation engine; this only validates and maps.
type Model struct {
	path string
	log  zerolog.Logger

	mu      sync.RWMutex
	targets map[viseme.Shape]int
	count   int
}

// LoadModel opens a glTF puppet file and resolves its viseme morph targets.
func LoadModel(path string, logger zerolog.Logger) (*Model, error) {
	m := &Model{
		path: path,
		log:  logger.With().Str("component", "puppet-model").Logger(),
	}
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// TargetIndex returns the morph-target index that realizes shape, or -1
// when the model has no target for it.
func (m *Model) TargetIndex(shape viseme.Shape) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.targets[shape]
	if !ok {
		return -1
	}
	return idx
}

// TargetCount returns the number of morph targets the model's face mesh
// carries.
func (m *Model) TargetCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// Watch reloads the model whenever its file changes on disk, until ctx is
// cancelled. A reload that fails keeps the previous mapping.
func (m *Model) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create model watcher: %w", err)
	}
	if err := watcher.Add(m.path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", m.path, err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := m.reload(); err != nil {
					m.log.Warn().Err(err).Msg("model reload failed, keeping previous mapping")
					continue
				}
				m.log.Info().Str("path", m.path).Msg("puppet model reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.log.Warn().Err(err).Msg("model watcher error")
			}
		}
	}()

	return nil
}

func (m *Model) reload() error {
	doc, err := gltf.Open(m.path)
	if err != nil {
		return fmt.Errorf("open gltf: %w", err)
	}

	names, count, err := morphTargets(doc)
	if err != nil {
		return err
	}

	targets := resolveVisemeTargets(names, count)
	if len(targets) < viseme.ShapeCount {
		return fmt.Errorf("model has %d usable viseme targets, need %d", len(targets), viseme.ShapeCount)
	}

	m.mu.Lock()
	m.targets = targets
	m.count = count
	m.mu.Unlock()
	return nil
}

// morphTargets finds the first mesh carrying morph targets and returns the
// target names declared in the mesh extras (may be shorter than count).
func morphTargets(doc *gltf.Document) ([]string, int, error) {
	for _, mesh := range doc.Meshes {
		if len(mesh.Primitives) == 0 {
			continue
		}
		count := len(mesh.Primitives[0].Targets)
		if count == 0 {
			continue
		}

		var names []string
		if extras, ok := mesh.Extras.(map[string]interface{}); ok {
			if raw, ok := extras["targetNames"].([]interface{}); ok {
				for _, v := range raw {
					if s, ok := v.(string); ok {
						names = append(names, s)
					}
				}
			}
		}
		return names, count, nil
	}
	return nil, 0, fmt.Errorf("no mesh with morph targets in model")
}

// resolveVisemeTargets matches target names of the form viseme_<shape>
// (the ARKit/Oculus export convention). When names are missing it falls
// back to positional mapping if the mesh carries enough targets.
func resolveVisemeTargets(names []string, count int) map[viseme.Shape]int {
	targets := make(map[viseme.Shape]int, viseme.ShapeCount)

	for idx, name := range names {
		lowered := strings.ToLower(name)
		for s := viseme.Shape(0); s.Valid(); s++ {
			if lowered == "viseme_"+strings.ToLower(s.String()) {
				targets[s] = idx
				break
			}
		}
	}

	if len(targets) == 0 && count >= viseme.ShapeCount {
		for s := viseme.Shape(0); s.Valid(); s++ {
			targets[s] = int(s)
		}
	}

	return targets
}
