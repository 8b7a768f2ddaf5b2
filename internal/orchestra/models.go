package orchestra

import (
	"context"
	"log"
	"sync"

	"github.com/orchestraai/orchestra/internal/llm"
)

// ModelState tracks the currently selected backend model.
type ModelState struct {
	mu       sync.Mutex
	selected string
}

func NewModelState(initial string) *ModelState {
	return &ModelState{selected: initial}
}

func (m *ModelState) Selected() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

func (m *ModelState) Select(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = name
}

// Initialize picks the first available backend model when none is configured.
// Failure is non-fatal: the conversation starts without a model and the
// operator can select one later.
func (m *ModelState) Initialize(ctx context.Context, client *llm.Client, logger *log.Logger) {
	if m.Selected() != "" {
		return
	}
	models, err := client.ListModels(ctx)
	if err != nil {
		logger.Printf("model discovery failed: %v", err)
		return
	}
	if len(models) == 0 {
		logger.Printf("model discovery: backend reports no models")
		return
	}
	m.Select(models[0])
	logger.Printf("auto-selected model %s", models[0])
}
