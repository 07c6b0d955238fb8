package lens

import "strings"

// pathLookup is one collection tried at each level of a path walk. A child whose full name equals the target
// ends the walk when exact is set, a child whose full name is a dot prefix of the target is walked into when
// descend is set.
type pathLookup struct {
	children func(ExecutionNode) []ExecutionNode
	exact    bool
	descend  bool
}

var (
	suitePathLookups = []pathLookup{
		{children: suiteChildren, exact: true, descend: true},
	}
	testPathLookups = []pathLookup{
		{children: testChildren, exact: true},
		{children: suiteChildren, descend: true},
	}
	keywordPathLookups = []pathLookup{
		{children: keywordChildren, exact: true, descend: true},
		{children: testChildren, descend: true},
		{children: suiteChildren, descend: true},
	}
)

// PathToSuite returns the ids from root to the suite named fullName, or nil if there is no such suite.
func PathToSuite(root *Suite, fullName string) []ElementID {
	if root == nil {
		return nil
	} else if fullName == root.FullName() {
		return []ElementID{root.ID()}
	}
	return locatePath(root, fullName, suitePathLookups)
}

// PathToTest returns the ids from root to the test named fullName, or nil if there is no such test.
func PathToTest(root *Suite, fullName string) []ElementID {
	return locatePath(root, fullName, testPathLookups)
}

// PathToKeyword returns the ids from root to the keyword named fullName, or nil if there is no such keyword.
func PathToKeyword(root *Suite, fullName string) []ElementID {
	return locatePath(root, fullName, keywordPathLookups)
}

func locatePath(root *Suite, fullName string, lookups []pathLookup) []ElementID {
	if root == nil || !strings.HasPrefix(fullName, root.FullName()+".") {
		return nil
	}
	return walkPath(root, fullName, lookups, []ElementID{root.ID()})
}

// walkPath descends taking the first matching child in lookup order, siblings sharing a name resolve to the
// first one encoded.
func walkPath(current ExecutionNode, target string, lookups []pathLookup, path []ElementID) []ElementID {
	for _, lookup := range lookups {
		for _, child := range lookup.children(current) {
			name := child.FullName()
			if lookup.exact && target == name {
				return append(path, child.ID())
			} else if lookup.descend && strings.HasPrefix(target, name+".") {
				return walkPath(child, target, lookups, append(path, child.ID()))
			}
		}
	}
	return nil
}

func suiteChildren(n ExecutionNode) []ExecutionNode {
	if s, ok := n.(*Suite); ok {
		return asExecutionNodes(s.suites)
	}
	return nil
}

func testChildren(n ExecutionNode) []ExecutionNode {
	if s, ok := n.(*Suite); ok {
		return asExecutionNodes(s.tests)
	}
	return nil
}

func keywordChildren(n ExecutionNode) []ExecutionNode {
	switch t := n.(type) {
	case *Suite:
		return asExecutionNodes(t.keywords)
	case *Test:
		return asExecutionNodes(t.keywords)
	case *Keyword:
		return asExecutionNodes(t.keywords)
	}
	return nil
}

func asExecutionNodes[T ExecutionNode](nodes []T) []ExecutionNode {
	result := make([]ExecutionNode, len(nodes))
	for i, n := range nodes {
		result[i] = n
	}
	return result
}
