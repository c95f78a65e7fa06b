package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		kind LineKind
		rest string
	}{
		{"", LineBlank, ""},
		{"   \t", LineBlank, ""},
		{"Q: What?", LineQuestion, "What?"},
		{"  Q:What?  ", LineQuestion, "What?"},
		{"问: 什么?", LineQuestion, "什么?"},
		{"A: Because.", LineAnswer, "Because."},
		{"答:因为", LineAnswer, "因为"},
		{"A:", LineAnswer, ""},
		{"q: lowercase", LineContinuation, "q: lowercase"},
		{"问：full-width colon", LineContinuation, "问：full-width colon"},
		{"Question: long form", LineContinuation, "Question: long form"},
		{"  detail  ", LineContinuation, "detail"},
	}
	for _, tc := range tests {
		kind, rest := Classify(tc.line)
		assert.Equal(t, tc.kind, kind, "line %q", tc.line)
		assert.Equal(t, tc.rest, rest, "line %q", tc.line)
	}
}

func TestParse_MultilineAnswers(t *testing.T) {
	input := "Q: What is X?\nA: X is Y.\nmore detail\nQ: Second?\nA: Second answer."

	got := Parse(input)

	want := []QAPair{
		{Question: "What is X?", Answer: "X is Y.\nmore detail"},
		{Question: "Second?", Answer: "Second answer."},
	}
	assert.Equal(t, want, got)
}

func TestParse_LocalizedPrefixes(t *testing.T) {
	ascii := Parse("Q: 闭包是什么?\nA: 捕获外部变量的函数。\n\nQ: defer 何时执行?\nA: 函数返回前。")
	local := Parse("问: 闭包是什么?\n答: 捕获外部变量的函数。\n\n问: defer 何时执行?\n答: 函数返回前。")

	require.Len(t, local, 2)
	assert.Equal(t, ascii, local)
}

func TestParse_MixedPrefixes(t *testing.T) {
	got := Parse("问: one\nA: 1\nQ: two\n答: 2")
	assert.Equal(t, []QAPair{{"one", "1"}, {"two", "2"}}, got)
}

func TestParse_TrailingQuestionWithoutAnswerDropped(t *testing.T) {
	got := Parse("Q: kept\nA: yes\nQ: dangling")
	assert.Equal(t, []QAPair{{"kept", "yes"}}, got)
}

func TestParse_QuestionWithoutAnswerDroppedMidStream(t *testing.T) {
	got := Parse("Q: no answer\nQ: has answer\nA: yes")
	assert.Equal(t, []QAPair{{"has answer", "yes"}}, got)
}

func TestParse_ContinuationWithoutAnswerMarker(t *testing.T) {
	got := Parse("Q: loose\nthe model forgot the marker")
	assert.Equal(t, []QAPair{{"loose", "the model forgot the marker"}}, got)
}

func TestParse_RepeatedAnswerMarkerRestartsAnswer(t *testing.T) {
	got := Parse("Q: q\nA: first\ncontinued\nA: second")
	assert.Equal(t, []QAPair{{"q", "second"}}, got)
}

func TestParse_PreambleIgnored(t *testing.T) {
	input := "好的，以下是问答对：\nA: stray answer\n\nQ: real\nA: answer"
	assert.Equal(t, []QAPair{{"real", "answer"}}, Parse(input))
}

func TestParse_BlankLinesSkipped(t *testing.T) {
	got := Parse("\n\nQ: q\n\nA: a\n\n  \nmore\n\n")
	assert.Equal(t, []QAPair{{"q", "a\nmore"}}, got)
}

func TestParse_EmptyQuestionOrAnswerNeverEmitted(t *testing.T) {
	assert.Empty(t, Parse("Q:\nA: orphan answer\ntext"))
	assert.Empty(t, Parse("Q: question\nA:"))
}

func TestParse_NoMarkers(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("I cannot help with that."))
}

func TestParse_CRLF(t *testing.T) {
	got := Parse("Q: q\r\nA: a\r\nb\r\n")
	assert.Equal(t, []QAPair{{"q", "a\nb"}}, got)
}

func TestFormatParseRoundTrip(t *testing.T) {
	pairs := []QAPair{
		{Question: "What is X?", Answer: "X is Y.\nmore detail"},
		{Question: "二分查找的时间复杂度?", Answer: "O(log n)"},
		{Question: "Second?", Answer: "line one\nline two\nline three"},
	}

	text := Format(pairs)
	assert.Equal(t, pairs, Parse(text))
	assert.Equal(t, text, Format(Parse(text)))
}

func TestFormat_Empty(t *testing.T) {
	assert.Equal(t, "", Format(nil))
}
