package lens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idPath(n Node) []ElementID {
	var path []ElementID
	for ; n != nil; n = n.Parent() {
		path = append([]ElementID{n.ID()}, path...)
	}
	return path
}

func TestPathRoundTrip(t *testing.T) {
	t.Parallel()

	report := sampleReport(t)
	root, err := report.Suite()
	require.NoError(t, err)

	var checked int
	walkTree(root, func(n Node) {
		var path []ElementID
		switch node := n.(type) {
		case *Suite:
			path = report.PathToSuite(node.FullName())
		case *Test:
			path = report.PathToTest(node.FullName())
		case *Keyword:
			path = report.PathToKeyword(node.FullName())
		default:
			return
		}
		checked++
		assert.Equal(t, idPath(n), path, n.(ExecutionNode).FullName())
		assert.Len(t, path, depth(n)+1)
	})
	assert.Equal(t, 15, checked)
}

func TestPathExamples(t *testing.T) {
	t.Parallel()

	report := sampleReport(t)
	root, err := report.Suite()
	require.NoError(t, err)
	sub := root.Suites()[0]
	deep := sub.Suites()[0]

	assert.Equal(t, []ElementID{root.ID()}, report.PathToSuite("Root"))
	assert.Equal(t, []ElementID{root.ID(), sub.ID(), deep.ID()}, report.PathToSuite("Root.Sub.Deep"))
	assert.Equal(t, []ElementID{root.ID(), sub.ID(), deep.ID(), deep.Tests()[1].ID()},
		report.PathToTest("Root.Sub.Deep.T5"))

	log := root.Tests()[0].Keywords()[0]
	assert.Equal(t, []ElementID{root.ID(), root.Tests()[0].ID(), log.ID(), log.Keywords()[0].ID()},
		report.PathToKeyword("Root.T1.Log.Inner"))
	assert.Equal(t, []ElementID{root.ID(), sub.ID(), sub.Teardown().ID()},
		report.PathToKeyword("Root.Sub.Cleanup"))
}

func TestPathNotFound(t *testing.T) {
	t.Parallel()

	report := sampleReport(t)

	tests := []struct {
		name   string
		locate func(string) []ElementID
		path   string
	}{
		{"suite_unknown_root", report.PathToSuite, "Other"},
		{"suite_unknown_child", report.PathToSuite, "Root.Missing"},
		{"suite_is_test", report.PathToSuite, "Root.T1"},
		{"suite_name_prefix", report.PathToSuite, "Root.Su"},
		{"test_unknown", report.PathToTest, "Root.DoesNotExist"},
		{"test_is_suite", report.PathToTest, "Root.Sub"},
		{"test_is_root", report.PathToTest, "Root"},
		{"test_is_keyword", report.PathToTest, "Root.T1.Log"},
		{"keyword_is_root", report.PathToKeyword, "Root"},
		{"keyword_is_test", report.PathToKeyword, "Root.T1"},
		{"keyword_unknown", report.PathToKeyword, "Root.T1.Log.Missing"},
		{"empty", report.PathToTest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, tt.locate(tt.path))
		})
	}
}

func TestPathDuplicateNamesFirstWins(t *testing.T) {
	t.Parallel()

	e := newPayloadEncoder(t, PoolOptions{})
	root := e.suite("Root", e.status("P", 0, 1), [4]int64{},
		e.test("Same", nil, e.status("P", 0, 1)),
		e.test("Same", nil, e.status("F", 0, 1)))
	report, err := NewReport(e.payload(root), PoolOptions{})
	require.NoError(t, err)

	suite, err := report.Suite()
	require.NoError(t, err)
	require.Len(t, suite.Tests(), 2)
	assert.Equal(t, []ElementID{suite.ID(), suite.Tests()[0].ID()}, report.PathToTest("Root.Same"))
}

func TestPathDottedNames(t *testing.T) {
	t.Parallel()

	e := newPayloadEncoder(t, PoolOptions{})
	root := e.suite("Root", e.status("P", 0, 1), [4]int64{},
		e.suite("A", e.status("P", 0, 1), [4]int64{},
			e.test("B", nil, e.status("P", 0, 1))),
		e.suite("A.B", e.status("P", 0, 1), [4]int64{},
			e.test("C", nil, e.status("P", 0, 1))))
	report, err := NewReport(e.payload(root), PoolOptions{})
	require.NoError(t, err)

	suite, err := report.Suite()
	require.NoError(t, err)
	dotted := suite.Suites()[1]
	assert.Equal(t, "Root.A.B", dotted.FullName())
	assert.Equal(t, []ElementID{suite.ID(), suite.Suites()[0].ID(), suite.Suites()[0].Tests()[0].ID()},
		report.PathToTest("Root.A.B"))
	// "Root.A" is walked into first, the dotted sibling is never reached
	assert.Empty(t, report.PathToTest("Root.A.B.C"))
}

func TestPathNilRoot(t *testing.T) {
	t.Parallel()

	assert.Empty(t, PathToSuite(nil, "Root"))
	assert.Empty(t, PathToTest(nil, "Root.T"))
	assert.Empty(t, PathToKeyword(nil, "Root.K"))
}
