package lens

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-analyze/bulk"
)

// Positional layouts of the encoded nodes:
//
//	suite:   [tag, source, name, doc, metadata, children..., status, statistics]
//	test:    [tag, name, timeout, critical, doc, children..., tags, status]
//	keyword: [tag, name, timeout, doc, args, children..., status]
//	message: [timestamp, level, text(, html)]
//	status:  [code, start, elapsed(, message)]
const (
	suiteMinArity   = 7
	testMinArity    = 7
	keywordMinArity = 6
	childrenStart   = 5
)

var keywordTypes = map[string]KeywordType{
	"kw":       KeywordTypeKeyword,
	"setup":    KeywordTypeSetup,
	"teardown": KeywordTypeTeardown,
	"forloop":  KeywordTypeForLoop,
	"foritem":  KeywordTypeForItem,
}

var levels = map[string]Level{
	"I": LevelInfo,
	"H": LevelInfo, // info level with html content
	"T": LevelTrace,
	"W": LevelWarn,
	"E": LevelError,
	"D": LevelDebug,
	"F": LevelFail,
}

var statusCodes = map[string]Status{
	"P": StatusPass,
	"F": StatusFail,
	"N": StatusNotRun,
}

// childKind classifies an entry in a node's child region.
type childKind uint8

const (
	childUnclaimed childKind = iota
	childSuite
	childTest
	childKeyword
	childMessage
)

type encodedChild struct {
	kind  childKind
	entry []any
}

// treeBuilder constructs the typed tree from the structural encoding in a single top-down pass.
type treeBuilder struct {
	pool     *ValuePool
	registry *Registry
	epoch    int64
}

func (b *treeBuilder) timestamp(offset int64) time.Time {
	return time.UnixMilli(b.epoch + offset).UTC()
}

// classify maps a child entry to the node kind it encodes. Tags are resolved through the pool so the check for
// the tag and the message shape are mutually exclusive: a tag resolves to a string, a message starts with a number.
func (b *treeBuilder) classify(entry any) (childKind, []any, error) {
	seq, ok := entry.([]any)
	if !ok || len(seq) == 0 {
		return childUnclaimed, nil, nil
	} else if _, ok := seq[0].(int64); !ok {
		return childUnclaimed, nil, nil
	}
	head, err := b.pool.Resolve(seq[0])
	if err != nil {
		return childUnclaimed, nil, err
	}
	if tag, ok := head.Text(); ok {
		if _, ok := keywordTypes[tag]; ok {
			return childKeyword, seq, nil
		}
		switch tag {
		case "test":
			return childTest, seq, nil
		case "suite":
			return childSuite, seq, nil
		}
		return childUnclaimed, nil, nil
	}
	if _, ok := head.Int(); !ok || (len(seq) != 3 && len(seq) != 4) {
		return childUnclaimed, nil, nil
	}
	for _, ref := range seq[1:3] {
		if _, ok := ref.(int64); !ok {
			return childUnclaimed, nil, nil
		}
		v, err := b.pool.Resolve(ref)
		if err != nil {
			return childUnclaimed, nil, err
		} else if _, ok := v.Text(); !ok {
			return childUnclaimed, nil, nil
		}
	}
	return childMessage, seq, nil
}

// children classifies the entries of elem[from:to], dropping unclaimed entries.
func (b *treeBuilder) children(elem []any, from, to int) ([]encodedChild, error) {
	var result []encodedChild
	for i := from; i < to; i++ {
		kind, seq, err := b.classify(elem[i])
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		} else if kind != childUnclaimed {
			result = append(result, encodedChild{kind: kind, entry: seq})
		}
	}
	return result, nil
}

// field returns the reference at position i, failing if absent or a nested sequence.
func field(elem []any, i int) (any, error) {
	if i < 0 || i >= len(elem) {
		return nil, fmt.Errorf("%w: missing field %d of %d", ErrShapeMismatch, i, len(elem))
	} else if _, ok := elem[i].([]any); ok {
		return nil, fmt.Errorf("%w: field %d is a sequence, expected a reference", ErrShapeMismatch, i)
	}
	return elem[i], nil
}

// sequence returns the nested sequence at position i.
func sequence(elem []any, i int) ([]any, error) {
	if i < 0 || i >= len(elem) {
		return nil, fmt.Errorf("%w: missing sequence %d of %d", ErrShapeMismatch, i, len(elem))
	}
	seq, ok := elem[i].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: field %d is not a sequence", ErrShapeMismatch, i)
	}
	return seq, nil
}

func (b *treeBuilder) value(elem []any, i int) (Value, error) {
	ref, err := field(elem, i)
	if err != nil {
		return Value{}, err
	}
	return b.pool.Resolve(ref)
}

// text resolves position i as text, null resolves to empty.
func (b *treeBuilder) text(elem []any, i int) (string, error) {
	v, err := b.value(elem, i)
	if err != nil {
		return "", err
	}
	switch v.Kind() {
	case ValueString:
		return v.s, nil
	case ValueInt:
		return strconv.FormatInt(v.i, 10), nil
	default:
		return "", nil
	}
}

// integer resolves position i as an integer, null resolves to zero.
func (b *treeBuilder) integer(elem []any, i int) (int64, error) {
	v, err := b.value(elem, i)
	if err != nil {
		return 0, err
	}
	switch v.Kind() {
	case ValueInt:
		return v.i, nil
	case ValueString:
		return 0, fmt.Errorf("%w: field %d is text %q, expected an integer", ErrShapeMismatch, i, v.s)
	default:
		return 0, nil
	}
}

type statusRecord struct {
	status  Status
	times   Times
	message string
}

// parseStatus reads a status record, forcing FAIL when a parent suite teardown failed.
func (b *treeBuilder) parseStatus(record []any, teardownFailed bool) (statusRecord, error) {
	var result statusRecord
	if len(record) != 3 && len(record) != 4 {
		return result, fmt.Errorf("%w: status record arity %d", ErrShapeMismatch, len(record))
	}
	code, err := b.text(record, 0)
	if err != nil {
		return result, err
	}
	status, ok := statusCodes[code]
	if !ok {
		return result, fmt.Errorf("%w: unknown status code %q", ErrShapeMismatch, code)
	} else if teardownFailed {
		status = StatusFail
	}
	result.status = status

	start, err := b.value(record, 1)
	if err != nil {
		return result, err
	}
	elapsed, err := b.integer(record, 2)
	if err != nil {
		return result, err
	}
	result.times.ElapsedMillis = elapsed
	if offset, ok := start.Int(); ok {
		result.times.Start = b.timestamp(offset)
		result.times.End = result.times.Start.Add(time.Duration(elapsed) * time.Millisecond)
	} else if !start.IsNull() {
		return result, fmt.Errorf("%w: start time is not an integer", ErrShapeMismatch)
	}

	if len(record) == 4 {
		if result.message, err = b.text(record, 3); err != nil {
			return result, err
		}
	}
	return result, nil
}

// failureMessage adds the parent suite teardown failure to an encoded message.
func failureMessage(message string, parentTeardownFailed bool) string {
	if !parentTeardownFailed {
		return message
	} else if message != "" {
		return message + teardownFailureSuffix
	}
	return teardownFailureMessage
}

func childFullName(parent ExecutionNode, name string) string {
	if parent == nil {
		return name
	}
	return parent.FullName() + "." + name
}

// position describes a node by its parent and index, used in errors before the name is known.
func position(kind string, parent ExecutionNode, index int) string {
	if parent == nil {
		return "root " + kind
	}
	return fmt.Sprintf("%s %d of %q", kind, index, parent.FullName())
}

func (b *treeBuilder) suite(parent *Suite, elem []any, index int) (*Suite, error) {
	s := &Suite{}
	b.registry.register(&s.element, s)
	s.index = index
	var parentNode ExecutionNode
	if parent != nil {
		s.parent = parent
		s.parentTeardownFailed = parent.HasTeardownFailure()
		parentNode = parent
	}
	where := position("suite", parentNode, index)
	fail := func(err error) (*Suite, error) {
		return nil, fmt.Errorf("%s: %w", where, err)
	}
	if len(elem) < suiteMinArity {
		return fail(fmt.Errorf("%w: arity %d, expected at least %d", ErrShapeMismatch, len(elem), suiteMinArity))
	}

	var err error
	if s.name, err = b.text(elem, 2); err != nil {
		return fail(err)
	}
	s.fullName = childFullName(parentNode, s.name)
	where = fmt.Sprintf("suite %q", s.fullName)
	if s.Source, err = b.text(elem, 1); err != nil {
		return fail(err)
	} else if s.Doc, err = b.text(elem, 3); err != nil {
		return fail(err)
	} else if s.Metadata, err = b.metadata(elem, 4); err != nil {
		return fail(err)
	}

	record, err := sequence(elem, len(elem)-2)
	if err != nil {
		return fail(err)
	}
	// status is resolved again once the suite's own teardown is known
	status, err := b.parseStatus(record, false)
	if err != nil {
		return fail(err)
	}
	s.times = status.times
	s.Message = failureMessage(status.message, s.parentTeardownFailed)
	if s.Statistics, err = b.suiteStatistics(elem, len(elem)-1); err != nil {
		return fail(err)
	}

	children, err := b.children(elem, childrenStart, len(elem)-2)
	if err != nil {
		return fail(err)
	}
	byKind := bulk.SliceToGroupsBy(func(c encodedChild) childKind {
		return c.kind
	}, children)

	// keywords first, the teardown status decides the status of everything below
	for i, c := range byKind[childKeyword] {
		kw, err := b.keyword(s, c.entry, i, s.parentTeardownFailed)
		if err != nil {
			return nil, err
		}
		s.keywords = append(s.keywords, kw)
	}
	s.status = status.status
	if s.HasTeardownFailure() {
		s.status = StatusFail
	}
	for i, c := range byKind[childTest] {
		test, err := b.test(s, c.entry, i)
		if err != nil {
			return nil, err
		}
		s.tests = append(s.tests, test)
	}
	for i, c := range byKind[childSuite] {
		child, err := b.suite(s, c.entry, i)
		if err != nil {
			return nil, err
		}
		s.suites = append(s.suites, child)
	}
	return s, nil
}

func (b *treeBuilder) metadata(elem []any, i int) ([]MetadataItem, error) {
	data, err := sequence(elem, i)
	if err != nil {
		return nil, err
	} else if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: metadata has odd length %d", ErrShapeMismatch, len(data))
	}
	metadata := make([]MetadataItem, 0, len(data)/2)
	for j := 0; j < len(data); j += 2 {
		key, err := b.text(data, j)
		if err != nil {
			return nil, err
		}
		value, err := b.text(data, j+1)
		if err != nil {
			return nil, err
		}
		metadata = append(metadata, MetadataItem{Key: key, Value: value})
	}
	return metadata, nil
}

func (b *treeBuilder) suiteStatistics(elem []any, i int) (SuiteStatistics, error) {
	var stats SuiteStatistics
	data, err := sequence(elem, i)
	if err != nil {
		return stats, err
	} else if len(data) != 4 {
		return stats, fmt.Errorf("%w: suite statistics arity %d", ErrShapeMismatch, len(data))
	}
	counts := make([]int64, len(data))
	for j := range data {
		if counts[j], err = b.integer(data, j); err != nil {
			return stats, err
		}
	}
	stats.Total = counts[0]
	stats.TotalPassed = counts[1]
	stats.TotalFailed = counts[0] - counts[1]
	stats.Critical = counts[2]
	stats.CriticalPassed = counts[3]
	stats.CriticalFailed = counts[2] - counts[3]
	return stats, nil
}

func (b *treeBuilder) test(suite *Suite, elem []any, index int) (*Test, error) {
	t := &Test{}
	b.registry.register(&t.element, t)
	t.parent = suite
	t.index = index
	teardownFailed := suite.HasTeardownFailure()
	where := position("test", suite, index)
	fail := func(err error) (*Test, error) {
		return nil, fmt.Errorf("%s: %w", where, err)
	}
	if len(elem) < testMinArity {
		return fail(fmt.Errorf("%w: arity %d, expected at least %d", ErrShapeMismatch, len(elem), testMinArity))
	}

	var err error
	if t.name, err = b.text(elem, 1); err != nil {
		return fail(err)
	}
	t.fullName = childFullName(suite, t.name)
	where = fmt.Sprintf("test %q", t.fullName)
	if t.Timeout, err = b.text(elem, 2); err != nil {
		return fail(err)
	}
	critical, err := b.text(elem, 3)
	if err != nil {
		return fail(err)
	}
	t.Critical = critical == "Y"
	if t.Doc, err = b.text(elem, 4); err != nil {
		return fail(err)
	}

	tags, err := sequence(elem, len(elem)-2)
	if err != nil {
		return fail(err)
	}
	t.Tags = make([]string, len(tags))
	for i := range tags {
		if t.Tags[i], err = b.text(tags, i); err != nil {
			return fail(err)
		}
	}

	record, err := sequence(elem, len(elem)-1)
	if err != nil {
		return fail(err)
	}
	status, err := b.parseStatus(record, teardownFailed)
	if err != nil {
		return fail(err)
	}
	t.status = status.status
	t.times = status.times
	t.Message = failureMessage(status.message, teardownFailed)

	children, err := b.children(elem, childrenStart, len(elem)-2)
	if err != nil {
		return fail(err)
	}
	for _, c := range children {
		if c.kind != childKeyword {
			continue // only keywords belong to a test
		}
		kw, err := b.keyword(t, c.entry, len(t.keywords), teardownFailed)
		if err != nil {
			return nil, err
		}
		t.keywords = append(t.keywords, kw)
	}
	return t, nil
}

func (b *treeBuilder) keyword(parent ExecutionNode, elem []any, index int, teardownFailed bool) (*Keyword, error) {
	kw := &Keyword{}
	b.registry.register(&kw.element, kw)
	kw.parent = parent
	kw.index = index
	where := position("keyword", parent, index)
	fail := func(err error) (*Keyword, error) {
		return nil, fmt.Errorf("%s: %w", where, err)
	}
	if len(elem) < keywordMinArity {
		return fail(fmt.Errorf("%w: arity %d, expected at least %d", ErrShapeMismatch, len(elem), keywordMinArity))
	}

	tag, err := b.text(elem, 0)
	if err != nil {
		return fail(err)
	}
	kw.Type = keywordTypes[tag] // classification guarantees a known tag
	if kw.name, err = b.text(elem, 1); err != nil {
		return fail(err)
	}
	kw.fullName = childFullName(parent, kw.name)
	where = fmt.Sprintf("keyword %q", kw.fullName)
	if kw.Timeout, err = b.text(elem, 2); err != nil {
		return fail(err)
	} else if kw.Doc, err = b.text(elem, 3); err != nil {
		return fail(err)
	} else if kw.Args, err = b.text(elem, 4); err != nil {
		return fail(err)
	}

	record, err := sequence(elem, len(elem)-1)
	if err != nil {
		return fail(err)
	}
	status, err := b.parseStatus(record, teardownFailed)
	if err != nil {
		return fail(err)
	}
	kw.status = status.status
	kw.times = status.times

	children, err := b.children(elem, childrenStart, len(elem)-1)
	if err != nil {
		return fail(err)
	}
	for _, c := range children {
		switch c.kind {
		case childKeyword:
			child, err := b.keyword(kw, c.entry, len(kw.keywords), teardownFailed)
			if err != nil {
				return nil, err
			}
			kw.keywords = append(kw.keywords, child)
			kw.children = append(kw.children, child)
		case childMessage:
			msg, err := b.message(kw, c.entry, len(kw.messages))
			if err != nil {
				return fail(err)
			}
			kw.messages = append(kw.messages, msg)
			kw.children = append(kw.children, msg)
		}
	}
	return kw, nil
}

// message builds a log message, parent is nil for report level errors.
func (b *treeBuilder) message(parent Node, elem []any, index int) (*Message, error) {
	msg := &Message{}
	b.registry.register(&msg.element, msg)
	msg.parent = parent
	msg.index = index
	if len(elem) != 3 && len(elem) != 4 {
		return nil, fmt.Errorf("message %d: %w: arity %d", index, ErrShapeMismatch, len(elem))
	}

	offset, err := b.integer(elem, 0)
	if err != nil {
		return nil, fmt.Errorf("message %d: %w", index, err)
	}
	msg.Timestamp = b.timestamp(offset)
	code, err := b.text(elem, 1)
	if err != nil {
		return nil, fmt.Errorf("message %d: %w", index, err)
	}
	level, ok := levels[code]
	if !ok {
		return nil, fmt.Errorf("message %d: %w: unknown level %q", index, ErrShapeMismatch, code)
	}
	msg.Level = level
	msg.HTML = code == "H"
	if msg.Text, err = b.text(elem, 2); err != nil {
		return nil, fmt.Errorf("message %d: %w", index, err)
	}
	if len(elem) == 4 {
		html, err := b.value(elem, 3)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", index, err)
		}
		msg.HTML = msg.HTML || truthy(html)
	}
	return msg, nil
}

func truthy(v Value) bool {
	switch v.Kind() {
	case ValueInt:
		return v.i != 0
	case ValueString:
		return v.s != "" && v.s != "0" && v.s != "false"
	default:
		return false
	}
}
