package lens

import (
	"time"
)

// ElementID identifies a node within a Report, ids are dense and start at 1.
type ElementID int

// Status is the execution status of a suite, test, or keyword.
type Status string

const (
	StatusPass   Status = "PASS"
	StatusFail   Status = "FAIL"
	StatusNotRun Status = "NOT_RUN"
)

// KeywordType is the role a keyword had within its parent.
type KeywordType string

const (
	KeywordTypeKeyword  KeywordType = "KEYWORD"
	KeywordTypeSetup    KeywordType = "SETUP"
	KeywordTypeTeardown KeywordType = "TEARDOWN"
	KeywordTypeForLoop  KeywordType = "FOR-LOOP"
	KeywordTypeForItem  KeywordType = "FOR-ITEM"
)

// Level is the log level of a Message.
type Level string

const (
	LevelInfo  Level = "info"
	LevelTrace Level = "trace"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelDebug Level = "debug"
	LevelFail  Level = "fail"
)

// teardownFailureMessage and teardownFailureSuffix are used when a parent suite teardown failed.
const teardownFailureMessage = "Teardown of the parent suite failed."
const teardownFailureSuffix = "\n\nAlso teardown of the parent suite failed."

// Times holds execution timing, Start and End are zero when the node never started.
type Times struct {
	// Start is the absolute start time.
	Start time.Time
	// End is Start plus the elapsed time.
	End time.Time
	// ElapsedMillis is the execution time in milliseconds.
	ElapsedMillis int64
}

// Started reports if the node has a start time.
func (t Times) Started() bool {
	return !t.Start.IsZero()
}

// Node is any element of the report tree.
type Node interface {
	// ID returns the report unique identifier.
	ID() ElementID
	// Parent returns the owning node, nil for the root suite and report level messages.
	Parent() Node
	// Index returns the position among siblings of the same kind.
	Index() int
}

// ExecutionNode is a suite, test, or keyword, the nodes addressable by full name.
type ExecutionNode interface {
	Node
	Name() string
	// FullName is the dot joined names from the root suite to this node.
	FullName() string
	Status() Status
	Times() Times
}

type element struct {
	id     ElementID
	parent Node
	index  int
}

func (e *element) ID() ElementID {
	return e.id
}

func (e *element) Parent() Node {
	return e.parent
}

func (e *element) Index() int {
	return e.index
}

type execution struct {
	element

	name     string
	fullName string
	status   Status
	times    Times
}

func (e *execution) Name() string {
	return e.name
}

func (e *execution) FullName() string {
	return e.fullName
}

func (e *execution) Status() Status {
	return e.status
}

func (e *execution) Times() Times {
	return e.times
}

// MetadataItem is a single suite metadata entry.
type MetadataItem struct {
	Key   string
	Value string
}

// SuiteStatistics are the test counters recorded for a suite and its descendants.
type SuiteStatistics struct {
	Total          int64
	TotalPassed    int64
	TotalFailed    int64
	Critical       int64
	CriticalPassed int64
	CriticalFailed int64
}

// Suite is a test suite with nested suites, tests, and setup / teardown keywords.
type Suite struct {
	execution

	// Source is the path of the suite file or directory.
	Source string
	Doc    string
	// Message is the suite failure message.
	Message    string
	Metadata   []MetadataItem
	Statistics SuiteStatistics

	suites   []*Suite
	tests    []*Test
	keywords []*Keyword
	// parentTeardownFailed is carried down from the ancestors at construction.
	parentTeardownFailed bool
}

// Suites returns the child suites in encoded order.
func (s *Suite) Suites() []*Suite {
	return s.suites
}

// Tests returns the child tests in encoded order.
func (s *Suite) Tests() []*Test {
	return s.tests
}

// Keywords returns the setup and teardown keywords in encoded order.
func (s *Suite) Keywords() []*Keyword {
	return s.keywords
}

// Setup returns the suite setup keyword or nil.
func (s *Suite) Setup() *Keyword {
	return s.keywordOfType(KeywordTypeSetup)
}

// Teardown returns the suite teardown keyword or nil.
func (s *Suite) Teardown() *Keyword {
	return s.keywordOfType(KeywordTypeTeardown)
}

func (s *Suite) keywordOfType(kwType KeywordType) *Keyword {
	for _, kw := range s.keywords {
		if kw.Type == kwType {
			return kw
		}
	}
	return nil
}

// HasTeardownFailure reports if this suite's teardown, or the teardown of any ancestor suite, failed.
func (s *Suite) HasTeardownFailure() bool {
	if s.parentTeardownFailed {
		return true
	}
	teardown := s.Teardown()
	return teardown != nil && teardown.Status() == StatusFail
}

// Test is a single test case.
type Test struct {
	execution

	Doc     string
	Timeout string
	// Critical reports if the test affects the overall status.
	Critical bool
	// Message is the failure message, including parent suite teardown failures.
	Message string
	Tags    []string

	keywords []*Keyword
}

// Keywords returns the test keywords in encoded order.
func (t *Test) Keywords() []*Keyword {
	return t.keywords
}

// Keyword is an executed keyword, including setups, teardowns, and for loops.
type Keyword struct {
	execution

	Type    KeywordType
	Args    string
	Doc     string
	Timeout string

	children []Node // interleaved *Keyword and *Message
	keywords []*Keyword
	messages []*Message
}

// Keywords returns the nested keywords in encoded order.
func (k *Keyword) Keywords() []*Keyword {
	return k.keywords
}

// Messages returns the logged messages in encoded order.
func (k *Keyword) Messages() []*Message {
	return k.messages
}

// Children returns nested keywords and messages interleaved in encoded order.
func (k *Keyword) Children() []Node {
	return k.children
}

// Message is a log message.
type Message struct {
	element

	Level     Level
	Timestamp time.Time
	Text      string
	// HTML reports if Text should be rendered as html.
	HTML bool
}
