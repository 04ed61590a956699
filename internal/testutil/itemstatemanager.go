package testutil

import (
	"sync"

	"github.com/corewell/noderepo/internal/itemstate"
	"github.com/corewell/noderepo/internal/rerr"
)

// FakeItemStateManager is an in-memory ItemStateManager: a map from id
// to the *itemstate.NodeState the test constructed. Structural
// mutations (AddChild, RemoveChild, Rename, ...) are driven directly
// against the NodeState values the test holds; this fake only answers
// lookups, mirroring the teacher's mockReaderAt (a thin, hand-rolled
// stand-in, not a generated mock).
type FakeItemStateManager struct {
	mu         sync.Mutex
	nodes      map[itemstate.NodeId]*itemstate.NodeState
	references map[itemstate.NodeId][]itemstate.PropertyId
}

// NewFakeItemStateManager creates an empty FakeItemStateManager.
func NewFakeItemStateManager() *FakeItemStateManager {
	return &FakeItemStateManager{
		nodes:      make(map[itemstate.NodeId]*itemstate.NodeState),
		references: make(map[itemstate.NodeId][]itemstate.PropertyId),
	}
}

// AddNode registers state so it is resolvable by NodeState.
func (f *FakeItemStateManager) AddNode(state *itemstate.NodeState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[state.ID] = state
}

// RemoveNode drops id from the manager's index, as if the underlying
// persistence layer forgot it (the test is still responsible for
// calling RemoveChild/Discard on the relevant NodeStates to drive
// listener events).
func (f *FakeItemStateManager) RemoveNode(id itemstate.NodeId) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.nodes, id)
}

// NodeState implements hierarchy.ItemStateManager.
func (f *FakeItemStateManager) NodeState(id itemstate.NodeId) (*itemstate.NodeState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.nodes[id]
	if !ok {
		return nil, &rerr.NoSuchItemState{ID: id.String()}
	}
	return state, nil
}

// HasNodeState implements hierarchy.ItemStateManager.
func (f *FakeItemStateManager) HasNodeState(id itemstate.NodeId) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.nodes[id]
	return ok
}

// SetReferences records the REFERENCE properties targeting id, for
// GetNodeReferences/HasNodeReferences to answer.
func (f *FakeItemStateManager) SetReferences(id itemstate.NodeId, refs []itemstate.PropertyId) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.references[id] = refs
}

// GetNodeReferences implements hierarchy.ItemStateManager.
func (f *FakeItemStateManager) GetNodeReferences(id itemstate.NodeId) ([]itemstate.PropertyId, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.references[id], nil
}

// HasNodeReferences implements hierarchy.ItemStateManager.
func (f *FakeItemStateManager) HasNodeReferences(id itemstate.NodeId) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.references[id]) > 0
}
