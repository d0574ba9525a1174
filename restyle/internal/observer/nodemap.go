package observer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod/lib/proto"
)

// nodeMap tracks CDP nodeIDs to XPaths so a mutation event can be turned
// back into a locatable element. Rebuilt from DOM.getDocument on start and
// after a document reset, maintained incrementally from child-list events.
type nodeMap struct {
	mu       sync.RWMutex
	paths    map[proto.DOMNodeID]string
	tags     map[proto.DOMNodeID]string
	parent   map[proto.DOMNodeID]proto.DOMNodeID
	children map[proto.DOMNodeID][]proto.DOMNodeID
}

func newNodeMap() *nodeMap {
	nm := &nodeMap{}
	nm.reset()
	return nm
}

func (nm *nodeMap) reset() {
	nm.paths = make(map[proto.DOMNodeID]string)
	nm.tags = make(map[proto.DOMNodeID]string)
	nm.parent = make(map[proto.DOMNodeID]proto.DOMNodeID)
	nm.children = make(map[proto.DOMNodeID][]proto.DOMNodeID)
}

// buildFromDocument replaces the map with the tree returned by
// DOM.getDocument (depth=-1).
func (nm *nodeMap) buildFromDocument(root *proto.DOMNode) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	nm.reset()
	nm.walkNode(root, "")
}

func (nm *nodeMap) walkNode(node *proto.DOMNode, parentPath string) {
	if node == nil {
		return
	}

	xpath := nm.computeXPath(node, parentPath)
	nm.paths[node.NodeID] = xpath
	nm.tags[node.NodeID] = strings.ToLower(node.NodeName)

	for _, child := range node.Children {
		nm.parent[child.NodeID] = node.NodeID
		nm.children[node.NodeID] = append(nm.children[node.NodeID], child.NodeID)
		nm.walkNode(child, xpath)
	}
}

func (nm *nodeMap) computeXPath(node *proto.DOMNode, parentPath string) string {
	name := strings.ToLower(node.NodeName)

	switch node.NodeType {
	case 9: // Document
		return ""
	case 10: // DocumentType
		return parentPath
	case 3: // Text
		return parentPath + "/text()"
	case 8: // Comment
		return parentPath + "/comment()"
	case 1: // Element
	default:
		return parentPath + "/" + name
	}

	switch name {
	case "html":
		return "/html"
	case "head":
		return "/html/head"
	case "body":
		return "/html/body"
	}

	// Positional predicate over same-tag preceding siblings. Always
	// emitted: sibling totals drift as the page mutates, so an
	// unconditional index stays resolvable longer than an elided one.
	idx := 1
	if parentID, ok := nm.parent[node.NodeID]; ok {
		for _, sibID := range nm.children[parentID] {
			if sibID == node.NodeID {
				break
			}
			if nm.tags[sibID] == name {
				idx++
			}
		}
	}
	return fmt.Sprintf("%s/%s[%d]", parentPath, name, idx)
}

// xpath returns the cached XPath for a nodeID, "" when untracked.
func (nm *nodeMap) xpath(id proto.DOMNodeID) string {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.paths[id]
}

// addNode registers a node (and any serialised descendants) inserted under
// parentID.
func (nm *nodeMap) addNode(parentID proto.DOMNodeID, node *proto.DOMNode) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	parentPath, ok := nm.paths[parentID]
	if !ok {
		return
	}
	nm.parent[node.NodeID] = parentID
	nm.children[parentID] = append(nm.children[parentID], node.NodeID)
	nm.walkNode(node, parentPath)
}

// removeNode drops a node and its subtree from the map.
func (nm *nodeMap) removeNode(nodeID proto.DOMNodeID) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	nm.removeNodeLocked(nodeID)
}

func (nm *nodeMap) removeNodeLocked(nodeID proto.DOMNodeID) {
	// Snapshot: each recursive call edits nm.children[nodeID].
	for _, childID := range append([]proto.DOMNodeID(nil), nm.children[nodeID]...) {
		nm.removeNodeLocked(childID)
	}

	if parentID, ok := nm.parent[nodeID]; ok {
		kids := nm.children[parentID]
		for i, id := range kids {
			if id == nodeID {
				nm.children[parentID] = append(kids[:i], kids[i+1:]...)
				break
			}
		}
	}

	delete(nm.paths, nodeID)
	delete(nm.tags, nodeID)
	delete(nm.parent, nodeID)
	delete(nm.children, nodeID)
}
