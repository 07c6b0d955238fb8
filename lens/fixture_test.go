package lens

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testEpoch = int64(1700000000000)

// payloadEncoder builds payloads the way the report writer does: de-duplicated pools referenced by index.
type payloadEncoder struct {
	t           testing.TB
	opts        PoolOptions
	predecoded  bool // store strings with the decoded marker instead of compressed
	strings     []string
	stringIndex map[string]int
	integers    []int64
	intIndex    map[int64]int
}

func newPayloadEncoder(t testing.TB, opts PoolOptions) *payloadEncoder {
	t.Helper()

	return &payloadEncoder{
		t:           t,
		opts:        opts,
		stringIndex: make(map[string]int),
		intIndex:    make(map[int64]int),
	}
}

func (e *payloadEncoder) str(s string) int64 {
	if i, ok := e.stringIndex[s]; ok {
		return int64(i)
	}
	raw := "*" + s
	if !e.predecoded {
		var err error
		raw, err = EncodeString(s, e.opts)
		require.NoError(e.t, err)
	}
	e.strings = append(e.strings, raw)
	e.stringIndex[s] = len(e.strings) - 1
	return int64(len(e.strings) - 1)
}

func (e *payloadEncoder) num(n int64) int64 {
	if i, ok := e.intIndex[n]; ok {
		return int64(-1 - i)
	}
	e.integers = append(e.integers, n)
	e.intIndex[n] = len(e.integers) - 1
	return int64(-len(e.integers))
}

func (e *payloadEncoder) status(code string, start, elapsed int64, message ...string) []any {
	record := []any{e.str(code), e.num(start), e.num(elapsed)}
	if len(message) > 0 {
		record = append(record, e.str(message[0]))
	}
	return record
}

func (e *payloadEncoder) notRun() []any {
	return []any{e.str("N"), nil, e.num(0)}
}

func (e *payloadEncoder) message(offset int64, level, text string) []any {
	return []any{e.num(offset), e.str(level), e.str(text)}
}

func (e *payloadEncoder) keyword(tag, name string, status []any, children ...[]any) []any {
	elem := []any{e.str(tag), e.str(name), e.str(""), e.str(name + " doc"), e.str("arg1, arg2")}
	for _, c := range children {
		elem = append(elem, c)
	}
	return append(elem, status)
}

func (e *payloadEncoder) test(name string, tags []string, status []any, keywords ...[]any) []any {
	elem := []any{e.str("test"), e.str(name), e.str("1 minute"), e.str("Y"), e.str(name + " doc")}
	for _, kw := range keywords {
		elem = append(elem, kw)
	}
	tagRefs := make([]any, len(tags))
	for i, tag := range tags {
		tagRefs[i] = e.str(tag)
	}
	return append(elem, tagRefs, status)
}

func (e *payloadEncoder) suite(name string, status []any, stats [4]int64, children ...[]any) []any {
	elem := []any{e.str("suite"), e.str("/tests/" + name), e.str(name), e.str(name + " doc"),
		[]any{e.str("Version"), e.str("1.0")}}
	for _, c := range children {
		elem = append(elem, c)
	}
	statRefs := make([]any, len(stats))
	for i, n := range stats {
		statRefs[i] = e.num(n)
	}
	return append(elem, status, statRefs)
}

func (e *payloadEncoder) payload(suite []any, errors ...[]any) *Payload {
	errs := make([]any, len(errors))
	for i, err := range errors {
		errs[i] = err
	}
	return &Payload{
		BaseMillis:      testEpoch,
		GeneratedMillis: 5000,
		Strings:         e.strings,
		Integers:        e.integers,
		Errors:          errs,
		Stats: [][]map[string]any{
			{
				{"label": "Critical Tests", "pass": 2, "fail": 3},
				{"label": "All Tests", "pass": 2, "fail": 3},
			},
			{
				{"label": "smoke", "pass": 1, "fail": 0, "doc": "Smoke tests"},
				{"label": "regression", "pass": 0, "fail": 2},
			},
			{
				{"label": "Root", "pass": 2, "fail": 3, "id": "s1", "name": "Root"},
			},
		},
		Suite: suite,
	}
}

// samplePayload builds:
//
//	Root (setup "Prepare")
//	  T1 [smoke]: Log (message, Inner (message))
//	  T2 failed "boom"
//	  Sub (teardown "Cleanup" failed)
//	    T3 encoded as passed
//	    Deep
//	      T4 encoded as passed
//	      T5 encoded as failed "err"
func samplePayload(t testing.TB, opts PoolOptions) *Payload {
	t.Helper()
	e := newPayloadEncoder(t, opts)

	deep := e.suite("Deep", e.status("P", 40, 5), [4]int64{2, 0, 2, 0},
		e.test("T4", nil, e.status("P", 41, 1),
			e.keyword("kw", "Noop", e.status("P", 41, 1))),
		e.test("T5", []string{"regression"}, e.status("F", 42, 1, "err")))
	sub := e.suite("Sub", e.status("P", 30, 20), [4]int64{3, 0, 3, 0},
		e.test("T3", []string{"regression"}, e.status("P", 31, 2),
			e.keyword("kw", "Check", e.status("P", 31, 1))),
		deep,
		e.keyword("teardown", "Cleanup", e.status("F", 48, 2),
			e.message(49, "F", "cleanup failed")))
	root := e.suite("Root", e.status("F", 0, 50), [4]int64{5, 2, 5, 2},
		e.keyword("setup", "Prepare", e.status("P", 1, 2),
			e.message(2, "I", "preparing")),
		e.test("T1", []string{"smoke"}, e.status("P", 5, 10),
			e.keyword("kw", "Log", e.status("P", 6, 4),
				e.message(7, "I", "first"),
				e.keyword("kw", "Inner", e.status("P", 8, 1),
					e.message(8, "D", "inner debug")),
				e.message(9, "H", "<b>last</b>"))),
		e.test("T2", nil, e.status("F", 20, 5, "boom"),
			e.keyword("kw", "Fail", e.status("F", 21, 1),
				e.message(21, "F", "boom"))),
		sub)
	return e.payload(root, e.message(100, "E", "oops"), e.message(120, "W", "careful"))
}

func sampleReport(t testing.TB) *Report {
	t.Helper()

	report, err := NewReport(samplePayload(t, PoolOptions{}), PoolOptions{})
	require.NoError(t, err)
	return report
}

// walkTree calls fn for every node below and including root, messages included.
func walkTree(root *Suite, fn func(Node)) {
	var walkKeyword func(*Keyword)
	walkKeyword = func(kw *Keyword) {
		fn(kw)
		for _, c := range kw.Children() {
			if child, ok := c.(*Keyword); ok {
				walkKeyword(child)
			} else {
				fn(c)
			}
		}
	}
	var walkSuite func(*Suite)
	walkSuite = func(s *Suite) {
		fn(s)
		for _, kw := range s.Keywords() {
			walkKeyword(kw)
		}
		for _, test := range s.Tests() {
			fn(test)
			for _, kw := range test.Keywords() {
				walkKeyword(kw)
			}
		}
		for _, child := range s.Suites() {
			walkSuite(child)
		}
	}
	walkSuite(root)
}

func depth(n Node) int {
	var d int
	for p := n.Parent(); p != nil; p = p.Parent() {
		d++
	}
	return d
}
