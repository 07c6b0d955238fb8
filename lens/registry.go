package lens

import "sync"

// Registry assigns ids to constructed nodes and looks them up. It holds non-owning references only, the
// tree owns its nodes.
type Registry struct {
	mu       sync.RWMutex
	elements []Node // elements[id-1]
}

// register assigns the next id to n.
func (r *Registry) register(e *element, n Node) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.elements = append(r.elements, n)
	e.id = ElementID(len(r.elements))
}

// truncate drops every node registered after the first count, used to discard a subtree whose build failed.
func (r *Registry) truncate(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.elements[count:])
	r.elements = r.elements[:count]
}

// Find returns the node with the given id.
func (r *Registry) Find(id ElementID) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id < 1 || int(id) > len(r.elements) {
		return nil, false
	}
	return r.elements[id-1], true
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.elements)
}
